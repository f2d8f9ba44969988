package instanceinfo

import (
	"context"
	"log"
	"os"
	"sync/atomic"
)

// Info describes the instance that served a request
type Info struct {
	InstanceID    string `json:"instanceId"`
	RequestNumber int64  `json:"requestNumber"`
	Hostname      string `json:"hostname"`
}

// InfoProvider provides the Info reported for a single request.
// Every call counts as one served request.
type InfoProvider interface {
	GetInfo(ctx context.Context) (Info, error)
}

type InfoService struct {
	counter    int64 // first for 64-bit alignment on 32-bit platforms
	log        LogFn
	instanceID string
	hosts      HostResolver
}

// NewInfoService creates a new InfoService.
// The instance identifier is resolved here, once, and never changes afterwards.
// conf - the service's config
func NewInfoService(conf ServiceConfig) (*InfoService, error) {

	if conf.Log == nil {
		conf.Log = log.Printf
	}

	if conf.LookupEnv == nil {
		conf.LookupEnv = os.LookupEnv
	}

	if conf.HostResolver == nil {
		conf.HostResolver = OSHostResolver{}
	}

	svc := &InfoService{
		log:        conf.Log,
		instanceID: ResolveInstanceID(conf.LookupEnv),
		hosts:      conf.HostResolver,
	}
	svc.log("[Info Service] serving as instance %s", svc.instanceID)

	return svc, nil
}

// InstanceID returns the identifier of this instance
func (s *InfoService) InstanceID() string {
	return s.instanceID
}

// GetInfo counts the request and returns the instance identifier, the request number and the local host name.
// The request is counted even when host name resolution fails.
func (s *InfoService) GetInfo(ctx context.Context) (Info, error) {
	n := atomic.AddInt64(&s.counter, 1)

	host, err := s.hosts.Hostname(ctx)
	if err != nil {
		return Info{}, &HostResolutionError{Err: err}
	}

	return Info{
		InstanceID:    s.instanceID,
		RequestNumber: n,
		Hostname:      host,
	}, nil
}
