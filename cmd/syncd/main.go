// Command syncd runs the sync worker and/or the stalled-job janitor, and
// can also run the HTTP API in a single process for local development via
// the serve subcommand.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-labs/cardano-wallet-sync/core/worker"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/bootstrap"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/config"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/logging"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/controllers"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/routes"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/services"
)

func main() {
	root := &cobra.Command{Use: "syncd", Short: "Cardano wallet sync daemon"}
	root.AddCommand(workerCmd(), janitorCmd(), serveCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func rootContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "claim and process wallet sync jobs until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, log := mustLoad()
			deps, err := bootstrap.Build(cfg, log)
			if err != nil {
				log.WithError(err).Fatal("failed to build dependencies")
			}
			defer deps.Store.Close()

			w := worker.New(worker.Config{
				BatchSize:      cfg.Worker.BatchSize,
				PollInterval:   cfg.Worker.PollInterval,
				HashDelay:      cfg.Worker.HashDelay,
				StuckThreshold: cfg.Worker.StuckThreshold,
			}, deps.Indexer, deps.Store, deps.Queue, deps.Registry, deps.Cache, log.WithField("component", "worker"))

			w.Run(rootContext())
		},
	}
}

func janitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "janitor",
		Short: "periodically reclaim sync jobs stuck in processing",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, log := mustLoad()
			deps, err := bootstrap.Build(cfg, log)
			if err != nil {
				log.WithError(err).Fatal("failed to build dependencies")
			}
			defer deps.Store.Close()

			j := worker.NewJanitor(deps.Queue, cfg.Worker.PollInterval, cfg.Worker.StuckThreshold, log.WithField("component", "janitor"))
			j.Run(rootContext())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API adapter",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, log := mustLoad()
			deps, err := bootstrap.Build(cfg, log)
			if err != nil {
				log.WithError(err).Fatal("failed to build dependencies")
			}
			defer deps.Store.Close()

			svc := services.NewJobService(deps.Queue, deps.Store)
			ctrl := controllers.NewJobController(svc, log)

			r := mux.NewRouter()
			routes.Register(r, ctrl)

			log.WithField("addr", cfg.API.Addr).Info("wallet sync API listening")
			if err := http.ListenAndServe(cfg.API.Addr, r); err != nil {
				log.WithError(err).Fatal("api server stopped")
			}
		},
	}
}

func mustLoad() (*config.Config, *logrus.Entry) {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	return cfg, logging.New(cfg.Logging.Level)
}
