package main

import (
	"net"
	"strconv"
	"strings"

	"github.com/friendsofgo/errors"

	instanceinfo "github.com/AppsFlyer/go-instance-info"
)

const (
	listenAddrEnv     = "LISTEN_ADDR"
	serviceNameEnv    = "CONSUL_SERVICE_NAME"
	serviceAddressEnv = "CONSUL_SERVICE_ADDRESS"
	servicePortEnv    = "CONSUL_SERVICE_PORT"
	serviceTagsEnv    = "CONSUL_SERVICE_TAGS"

	defaultListenAddr = ":8080"
)

type config struct {
	ListenAddr string
	// nil when self-registration is disabled
	Registration *instanceinfo.RegistrationSpec
}

func loadConfig(lookup instanceinfo.LookupEnvFn) (config, error) {
	conf := config{ListenAddr: defaultListenAddr}
	if v, ok := lookup(listenAddrEnv); ok && v != "" {
		conf.ListenAddr = v
	}

	name, ok := lookup(serviceNameEnv)
	if !ok || name == "" {
		return conf, nil
	}

	spec := &instanceinfo.RegistrationSpec{ServiceName: name}
	if v, ok := lookup(serviceAddressEnv); ok {
		spec.Address = v
	}

	port, err := registrationPort(lookup, conf.ListenAddr)
	if err != nil {
		return config{}, err
	}
	spec.Port = port

	if v, ok := lookup(serviceTagsEnv); ok {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				spec.Tags = append(spec.Tags, tag)
			}
		}
	}

	conf.Registration = spec
	return conf, nil
}

// registrationPort prefers an explicit CONSUL_SERVICE_PORT and falls back to the listen port
func registrationPort(lookup instanceinfo.LookupEnvFn, listenAddr string) (int, error) {
	raw, ok := lookup(servicePortEnv)
	if !ok || raw == "" {
		_, p, err := net.SplitHostPort(listenAddr)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid %s %q", listenAddrEnv, listenAddr)
		}
		raw = p
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, errors.Errorf("invalid service port %q", raw)
	}
	return port, nil
}
