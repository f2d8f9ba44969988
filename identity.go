package instanceinfo

import (
	"github.com/google/uuid"
)

// InstanceIDEnv is the environment variable holding a fixed instance identifier
const InstanceIDEnv = "INSTANCE_ID"

// ResolveInstanceID returns the value of INSTANCE_ID when it is set and non-empty,
// and a random (version 4) UUID otherwise.
// Callers are expected to resolve the identifier once and keep it for the process lifetime.
func ResolveInstanceID(lookup LookupEnvFn) string {
	if lookup != nil {
		if id, ok := lookup(InstanceIDEnv); ok && id != "" {
			return id
		}
	}
	return uuid.New().String()
}
