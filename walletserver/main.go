// Command walletserver runs the HTTP API adapter: enqueue, inspect, and
// cancel wallet sync jobs. It does not itself process jobs; run cmd/syncd
// alongside it for that.
package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/synnergy-labs/cardano-wallet-sync/pkg/bootstrap"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/config"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/logging"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/controllers"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/routes"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Logging.Level)

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
}
