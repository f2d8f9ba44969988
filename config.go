package instanceinfo

import (
	"time"

	"github.com/hashicorp/consul/api"
)

type LogFn func(format string, args ...interface{})

// LookupEnvFn has the signature of os.LookupEnv
type LookupEnvFn func(key string) (string, bool)

type ServiceConfig struct {
	// A function that will be used for logging.
	// Optional
	// Default: log.Printf
	Log LogFn
	// The environment lookup used to read INSTANCE_ID once, on construction.
	// Optional
	// Default: os.LookupEnv
	LookupEnv LookupEnvFn
	// Resolves the local host name on every info request.
	// Optional
	// Default: OSHostResolver
	HostResolver HostResolver
}

type HandlerConfig struct {
	// A function that will be used for logging.
	// Optional
	// Default: log.Printf
	Log LogFn
}

type RegistrationSpec struct {
	// The name the instance is registered under in Consul.
	// Mandatory
	ServiceName string
	// The address advertised to Consul.
	// Optional
	// Default: "" (Consul falls back to the agent's node address)
	Address string
	// The port advertised to Consul.
	// Optional
	// Default: 0
	Port int
	// Consul tags attached to the registration.
	// Optional
	// Default: nil
	Tags []string
}

type RegistrarConfig struct {
	// A function that will be used for logging.
	// Optional
	// Default: log.Printf
	Log LogFn
	// The identifier of this instance, used as the Consul service ID
	// Mandatory
	InstanceID string
	// The registration the registrar will maintain
	// Mandatory
	Spec RegistrationSpec
	// The consul client
	// Mandatory
	Client *api.Client
	// Time between two checks that the registration is still present in the agent.
	// Optional
	// Default: 10s
	RefreshInterval time.Duration
}
