// Package routes wires the job controller's handlers onto a gorilla/mux
// router.
package routes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/controllers"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/middleware"
)

// Register mounts the API boundary described in SPEC_FULL.md §6 plus a
// Prometheus scrape endpoint.
func Register(r *mux.Router, jc *controllers.JobController) {
	r.Use(middleware.Logger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/wallets/{address}/sync", jc.EnqueueWalletSync).Methods("POST")
	api.HandleFunc("/wallets/{address}/jobs", jc.GetJobsByWallet).Methods("GET")
	api.HandleFunc("/wallets/{address}/transactions", jc.ListTransactions).Methods("GET")
	api.HandleFunc("/jobs/{id}", jc.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/cancel", jc.CancelJob).Methods("POST")
	api.HandleFunc("/stats", jc.Stats).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
