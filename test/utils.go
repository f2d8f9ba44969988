package test

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/hashicorp/consul/api"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	consulPort  nat.Port = "8500/tcp"
	servicePort nat.Port = "8080/tcp"
)

// serviceInstance is an instance-info container and the INSTANCE_ID it was started with ("" for a generated one)
type serviceInstance struct {
	container  testcontainers.Container
	instanceID string
}

func createNetwork(name string) (testcontainers.Network, error) {
	return testcontainers.GenericNetwork(context.Background(), testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           name,
			CheckDuplicate: true,
		},
	})
}

func startConsulContainer(t *testing.T, network string) testcontainers.Container {
	req := &testcontainers.ContainerRequest{
		Image:        "consul:1.9.5",
		Env:          map[string]string{"CONSUL_BIND_INTERFACE": "eth0"},
		ExposedPorts: []string{string(consulPort)},
		Networks:     []string{network},
		Name:         "consul",
		WaitingFor:   wait.ForListeningPort(consulPort),
	}

	return startContainer(t, req)
}

// startServiceContainers starts one container per entry in instanceIDs, an empty entry leaves INSTANCE_ID unset
func startServiceContainers(t *testing.T, serviceName string, instanceIDs []string, network string) (res []serviceInstance) {
	for i, id := range instanceIDs {
		name := fmt.Sprintf("service_%d", i)
		env := map[string]string{
			"CONSUL_HTTP_ADDR":       "consul:8500",
			"CONSUL_SERVICE_NAME":    serviceName,
			"CONSUL_SERVICE_ADDRESS": name,
		}
		if id != "" {
			env["INSTANCE_ID"] = id
		}

		req := &testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    "..",
				Dockerfile: "test/docker/Dockerfile",
			},
			Env:          env,
			ExposedPorts: []string{string(servicePort)},
			Networks:     []string{network},
			Name:         name,
			// probing the info endpoint would count requests, so only wait for the port
			WaitingFor: wait.ForListeningPort(servicePort),
		}
		res = append(res, serviceInstance{container: startContainer(t, req), instanceID: id})
	}
	return
}

func startContainer(t *testing.T, req *testcontainers.ContainerRequest) testcontainers.Container {
	c, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: *req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// endpoint returns the host:port the container's port is published on
func endpoint(t *testing.T, c testcontainers.Container, port nat.Port) string {
	ctx := context.Background()
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("%s:%d", host, mapped.Int())
}

func newConsulClient(t *testing.T, c testcontainers.Container) *api.Client {
	client, err := api.NewClient(&api.Config{Address: endpoint(t, c, consulPort)})
	if err != nil {
		t.Fatal(err)
	}
	return client
}
