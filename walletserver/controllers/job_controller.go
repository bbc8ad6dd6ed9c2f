// Package controllers holds the HTTP handlers exposing the job service's
// operations over gorilla/mux: thin handlers that decode a request, call
// into services, and write JSON back out.
package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/services"
)

// JobController serves the §6 external interface over HTTP.
type JobController struct {
	svc *services.JobService
	log *logrus.Entry
}

// NewJobController wraps svc.
func NewJobController(svc *services.JobService, log *logrus.Entry) *JobController {
	return &JobController{svc: svc, log: log}
}

type enqueueRequest struct {
	UserID    string `json:"userId"`
	FromBlock uint64 `json:"fromBlock"`
	Priority  int    `json:"priority"`
}

// EnqueueWalletSync handles POST /api/wallets/{address}/sync.
func (jc *JobController) EnqueueWalletSync(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("malformed request body"))
		return
	}
	if address == "" || req.UserID == "" {
		writeError(w, apperrors.Validation("address and userId are required"))
		return
	}

	result, err := jc.svc.EnqueueWalletSync(r.Context(), address, req.UserID, req.FromBlock, req.Priority)
	if err != nil {
		jc.log.WithError(err).WithField("wallet", address).Error("enqueue sync failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":   result.JobID,
		"status":  result.Status,
		"created": result.Created,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (jc *JobController) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := jc.svc.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		writeError(w, apperrors.NotFound("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetJobsByWallet handles GET /api/wallets/{address}/jobs?userId=....
func (jc *JobController) GetJobsByWallet(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, apperrors.Validation("userId query parameter is required"))
		return
	}
	jobs, err := jc.svc.GetJobsByWallet(r.Context(), userID, address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// CancelJob handles POST /api/jobs/{id}/cancel.
func (jc *JobController) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := jc.svc.CancelJob(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// ListTransactions handles GET /api/wallets/{address}/transactions.
func (jc *JobController) ListTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, apperrors.Validation("userId query parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := jc.svc.ListTransactions(r.Context(), userID, address, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// Stats handles GET /api/stats.
func (jc *JobController) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := jc.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.KindValidation):
		status = http.StatusBadRequest
	case apperrors.Is(err, apperrors.KindNotFound):
		status = http.StatusNotFound
	case apperrors.IsTransient(err):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
