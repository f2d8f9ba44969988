package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/consul/api"

	instanceinfo "github.com/AppsFlyer/go-instance-info"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("[Instance Info] %s", err.Error())
	}
}

func run() error {
	conf, err := loadConfig(os.LookupEnv)
	if err != nil {
		return err
	}

	svc, err := instanceinfo.NewInfoService(instanceinfo.ServiceConfig{Log: log.Printf})
	if err != nil {
		return err
	}

	handler, err := instanceinfo.NewInfoHandler(svc, instanceinfo.HandlerConfig{Log: log.Printf})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var registrar *instanceinfo.ServiceRegistrar
	if conf.Registration != nil {
		if registrar, err = startRegistrar(ctx, svc.InstanceID(), *conf.Registration); err != nil {
			return err
		}
	}

	server := &http.Server{Addr: conf.ListenAddr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[Instance Info] listening on %s", conf.ListenAddr)
		serveErr <- server.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-serveErr:
	case s := <-sig:
		log.Printf("[Instance Info] received %s, shutting down", s)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		err = server.Shutdown(shutdownCtx)
		cancelShutdown()
	}

	cancel()
	if registrar != nil {
		<-registrar.Done()
	}

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func startRegistrar(ctx context.Context, instanceID string, spec instanceinfo.RegistrationSpec) (*instanceinfo.ServiceRegistrar, error) {
	if spec.Address == "" {
		if host, err := os.Hostname(); err == nil {
			spec.Address = host
		}
	}

	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, err
	}

	return instanceinfo.NewConsulRegistrar(ctx, instanceinfo.RegistrarConfig{
		Log:        log.Printf,
		InstanceID: instanceID,
		Spec:       spec,
		Client:     client,
	})
}
