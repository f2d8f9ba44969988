package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"

	instanceinfo "github.com/AppsFlyer/go-instance-info"
)

const (
	serviceName = "instance-info"
)

type Suite struct {
	suite.Suite
	network         testcontainers.Network
	instances       []serviceInstance
	consulContainer testcontainers.Container
	consulClient    *api.Client
}

func (s *Suite) SetupSuite() {

	dockerNetwork, _ := uuid.NewRandom()
	network, err := createNetwork(dockerNetwork.String())
	if err != nil {
		s.T().Fatal(err)
	}
	s.network = network

	s.consulContainer = startConsulContainer(s.T(), dockerNetwork.String())
	s.consulClient = newConsulClient(s.T(), s.consulContainer)

	s.instances = startServiceContainers(s.T(), serviceName, []string{"0", "1", ""}, dockerNetwork.String())
}

func (s *Suite) TearDownSuite() {
	ctx := context.Background()
	for i := range s.instances {
		_ = s.instances[i].container.Terminate(ctx)
	}
	if s.consulContainer != nil {
		_ = s.consulContainer.Terminate(ctx)
	}

	_ = s.network.Remove(ctx)
}

func (s *Suite) TestInstanceIdentity() {
	ids := map[string]bool{}
	for _, inst := range s.instances {
		first := s.getInfo(inst)
		second := s.getInfo(inst)

		s.Assert().Equal(first.InstanceID, second.InstanceID)
		s.Assert().Equal(first.RequestNumber+1, second.RequestNumber)
		s.Assert().NotEmpty(first.Hostname)

		if inst.instanceID != "" {
			s.Assert().Equal(inst.instanceID, first.InstanceID)
		} else {
			_, err := uuid.Parse(first.InstanceID)
			s.Assert().NoError(err)
		}
		ids[first.InstanceID] = true
	}
	s.Assert().Len(ids, len(s.instances))
}

func (s *Suite) TestConcurrentRequests() {
	const requests = 50
	addr := endpoint(s.T(), s.instances[0].container, servicePort)

	mu := sync.Mutex{}
	var numbers []int64
	wg := sync.WaitGroup{}
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := fetchInfo(addr)
			s.Assert().NoError(err)
			mu.Lock()
			numbers = append(numbers, info.RequestNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	s.Require().Len(numbers, requests)
	for i := 1; i < len(numbers); i++ {
		s.Assert().Equal(numbers[i-1]+1, numbers[i])
	}
}

func (s *Suite) TestInstancesRegisterInConsul() {

	s.Assert().Eventually(func() bool {
		svcs, _, err := s.consulClient.Catalog().Service(serviceName, "", nil)
		return len(svcs) == len(s.instances) && err == nil
	},
		30*time.Second,
		1*time.Second)

	svcs, _, err := s.consulClient.Catalog().Service(serviceName, "", nil)
	s.Require().NoError(err)

	registered := map[string]string{}
	for _, svc := range svcs {
		registered[svc.ServiceID] = svc.ServiceMeta["instanceId"]
	}

	for _, inst := range s.instances {
		id := s.getInfo(inst).InstanceID
		s.Assert().Equal(id, registered[id], "instance %s not registered", id)
	}
}

func (s *Suite) getInfo(inst serviceInstance) instanceinfo.Info {
	info, err := fetchInfo(endpoint(s.T(), inst.container, servicePort))
	if err != nil {
		s.T().Fatal(err)
	}
	return info
}

func fetchInfo(addr string) (instanceinfo.Info, error) {
	res, err := http.Get(fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return instanceinfo.Info{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return instanceinfo.Info{}, errors.Errorf("unexpected status %d", res.StatusCode)
	}

	var info instanceinfo.Info
	err = json.NewDecoder(res.Body).Decode(&info)
	return info, err
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite requires docker")
	}
	suite.Run(t, new(Suite))
}
