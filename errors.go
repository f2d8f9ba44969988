package instanceinfo

import (
	"github.com/friendsofgo/errors"
)

// HostResolutionError is returned when the local host name cannot be determined
type HostResolutionError struct {
	Err error
}

func (e *HostResolutionError) Error() string {
	return "failed to resolve local host name: " + e.Err.Error()
}

func (e *HostResolutionError) Unwrap() error {
	return e.Err
}

// IsHostResolutionError reports whether any error in err's chain is a *HostResolutionError
func IsHostResolutionError(err error) bool {
	var hre *HostResolutionError
	return errors.As(err, &hre)
}
