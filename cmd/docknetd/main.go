package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/docknetio/docknet"
	"github.com/docknetio/docknet/netapi"
	"github.com/docknetio/docknet/netop"
	"github.com/docknetio/docknet/server"
	docknetutil "github.com/docknetio/docknet/util"
)

// Period between the readiness probes of the network service during the
// daemon startup.
const serviceWaitInterval = 2 * time.Second

// Number of the readiness probes attempted before the startup is aborted.
const serviceWaitTries = 30

// Starts the shim daemon: waits for the network service, then serves the
// Docker-style network API until a termination signal arrives.
func runServer(settings *cli.Context) error {
	docknetutil.SetupLogging(settings.String("log-level"))
	log.Printf("Starting docknetd, version %s, build date %s", docknet.Version, docknet.BuildDate)

	client := netapi.NewClient(settings.String("netapi-url"))
	client.SetRequestTimeout(settings.Duration("request-timeout"))

	// The network service usually comes up together with the shim, so probe
	// it for a while instead of failing the first provisioning requests.
	_, err := backoff.Retry(context.Background(), func() (any, error) {
		return nil, client.Ping(uuid.NewString())
	}, backoff.WithBackOff(backoff.NewConstantBackOff(serviceWaitInterval)), backoff.WithMaxTries(serviceWaitTries))
	if err != nil {
		return errors.WithMessage(err, "the network service is not reachable")
	}

	manager := netop.NewManager(client)
	httpServer := server.NewServer(manager)

	go func() {
		address := settings.String("listen-address")
		log.WithField("address", address).Info("Listening for the network API requests")
		if err := httpServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Cannot start the HTTP server")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	sig := <-signals
	log.WithField("signal", sig.String()).Info("Shutting down the docknet daemon")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func main() {
	app := &cli.App{
		Name:    "docknetd",
		Usage:   "Docker-style network management shim over the platform network service",
		Version: fmt.Sprintf("%s (build date %s)", docknet.Version, docknet.BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "netapi-url",
				Usage:    "Base URL of the network service, excluding the version path",
				Required: true,
				EnvVars:  []string{"DOCKNET_NETAPI_URL"},
			},
			&cli.StringFlag{
				Name:    "listen-address",
				Usage:   "Address to listen on for the network API requests",
				Value:   ":8370",
				EnvVars: []string{"DOCKNET_LISTEN_ADDRESS"},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Usage:   "Timeout of a single request to the network service",
				Value:   10 * time.Second,
				EnvVars: []string{"DOCKNET_REQUEST_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"DOCKNET_LOG_LEVEL"},
			},
		},
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("Cannot start the docknet daemon")
	}
}
