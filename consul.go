package instanceinfo

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/friendsofgo/errors"
	"github.com/hashicorp/consul/api"
	"go.uber.org/ratelimit"
)

const (
	defaultRefreshInterval = 10 * time.Second
	instanceIDMetaKey      = "instanceId"
)

// AgentProvider provides the Consul agent operations needed to keep a local service registration alive
type AgentProvider interface {
	ServiceRegister(service *api.AgentServiceRegistration) error
	ServiceDeregister(serviceID string) error
	Services() (map[string]*api.AgentService, error)
}

type ServiceRegistrar struct {
	log          LogFn
	ctx          context.Context
	agent        AgentProvider
	registration *api.AgentServiceRegistration
	interval     time.Duration
	init         chan struct{}
	initDone     sync.Once
	done         chan struct{}
}

// NewConsulRegistrar creates a new Consul Registrar, announcing this instance in the local agent
// ctx - a context used for graceful termination of the registration go routine.
// Canceling the context deregisters the instance; Done is closed once that happened.
// conf - the registrar's config
func NewConsulRegistrar(ctx context.Context, conf RegistrarConfig) (*ServiceRegistrar, error) {

	if conf.Client == nil {
		return nil, errors.New("consul client must not be nil")
	}

	if conf.Spec.ServiceName == "" {
		return nil, errors.New("service name must not be empty")
	}

	if conf.InstanceID == "" {
		return nil, errors.New("instance id must not be empty")
	}

	if conf.RefreshInterval <= 0 {
		conf.RefreshInterval = defaultRefreshInterval
	}

	if conf.Log == nil {
		conf.Log = log.Printf
	}

	registrar := newServiceRegistrar(ctx, conf, conf.Client.Agent())

	go registrar.maintainRegistration()

	return registrar, nil
}

func newServiceRegistrar(ctx context.Context, conf RegistrarConfig, agent AgentProvider) *ServiceRegistrar {
	return &ServiceRegistrar{
		log:   conf.Log,
		ctx:   ctx,
		agent: agent,
		registration: &api.AgentServiceRegistration{
			ID:      conf.InstanceID,
			Name:    conf.Spec.ServiceName,
			Address: conf.Spec.Address,
			Port:    conf.Spec.Port,
			Tags:    conf.Spec.Tags,
			Meta:    map[string]string{instanceIDMetaKey: conf.InstanceID},
		},
		interval: conf.RefreshInterval,
		init:     make(chan struct{}),
		initDone: sync.Once{},
		done:     make(chan struct{}),
	}
}

// ServiceID returns the ID the instance is registered under
func (r *ServiceRegistrar) ServiceID() string {
	return r.registration.ID
}

// Registered blocks until the instance was registered for the first time
func (r *ServiceRegistrar) Registered(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		select {
		case <-r.init:
			return nil
		default:
			return errors.New("registrar stopped before the instance was registered")
		}
	case <-r.init:
		return nil
	}
}

// Done is closed after the registrar stopped and deregistered the instance
func (r *ServiceRegistrar) Done() <-chan struct{} {
	return r.done
}

func (r *ServiceRegistrar) maintainRegistration() {
	defer close(r.done)

	rl := ratelimit.New(1) // limit agent round trips to 1 per second
	bck := backoff.NewExponentialBackOff()
	bck.MaxElapsedTime = 0
	bck.MaxInterval = time.Second * 30

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for r.ctx.Err() == nil {
		rl.Take()
		err := backoff.RetryNotify(
			r.ensureRegistered,
			backoff.WithContext(bck, r.ctx),
			func(err error, duration time.Duration) {
				r.log("[Consul Registrar] failure registering in consul, sleeping %s - %s", duration, err.Error())
			},
		)
		if err != nil && r.ctx.Err() == nil {
			r.log("[Consul Registrar] failure registering in consul - %s", err.Error())
		}

		select {
		case <-r.ctx.Done():
		case <-ticker.C:
		}
	}

	r.log("[Consul Registrar] context canceled, deregistering %s", r.registration.ID)
	if err := r.agent.ServiceDeregister(r.registration.ID); err != nil {
		r.log("[Consul Registrar] failure deregistering %s - %s", r.registration.ID, err.Error())
	}
}

// ensureRegistered registers the instance unless the agent already knows it.
// Agents lose their local registrations on restart, so presence is checked on every round.
func (r *ServiceRegistrar) ensureRegistered() error {
	services, err := r.agent.Services()
	if err != nil {
		return errors.Wrap(err, "failed listing agent services")
	}

	if _, ok := services[r.registration.ID]; !ok {
		r.log("[Consul Registrar] registering %s as %s", r.registration.ID, r.registration.Name)
		if err := r.agent.ServiceRegister(r.registration); err != nil {
			return errors.Wrapf(err, "failed registering service %s", r.registration.Name)
		}
	}

	r.initDone.Do(func() {
		close(r.init)
	})
	return nil
}
