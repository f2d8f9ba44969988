package instanceinfo

import (
	"context"
	"os"

	"github.com/friendsofgo/errors"
)

// HostResolver provides the network name of the local host
type HostResolver interface {
	// Hostname should return the local host name, or a non-nil error if it could not be determined
	Hostname(ctx context.Context) (string, error)
}

// OSHostResolver resolves the host name reported by the operating system
type OSHostResolver struct{}

func (OSHostResolver) Hostname(context.Context) (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("operating system reported an empty host name")
	}
	return name, nil
}

// HostResolverFunc adapts a plain function to the HostResolver interface
type HostResolverFunc func(ctx context.Context) (string, error)

func (f HostResolverFunc) Hostname(ctx context.Context) (string, error) {
	return f(ctx)
}
