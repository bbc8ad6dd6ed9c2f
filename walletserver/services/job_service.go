// Package services wraps the job queue and wallet store behind the
// operations the HTTP API and operator CLI call, translating between their
// request shapes and core/queue + core/store.
package services

import (
	"context"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
	"github.com/synnergy-labs/cardano-wallet-sync/core/queue"
	"github.com/synnergy-labs/cardano-wallet-sync/core/store"
)

// JobService implements the §6 external interface: enqueue, inspect, list,
// and cancel wallet sync jobs.
type JobService struct {
	queue queue.SyncStore
	store *store.Store
}

// NewJobService wraps q and st.
func NewJobService(q queue.SyncStore, st *store.Store) *JobService {
	return &JobService{queue: q, store: st}
}

// EnqueueResult is the §6 EnqueueWalletSync response shape.
type EnqueueResult struct {
	JobID   string
	Status  model.JobStatus
	Created bool
}

// EnqueueWalletSync creates a sync job for (userID, walletAddress), or
// returns the already-active job if one exists. fromBlock, if non-zero and
// lower than the wallet's recorded cursor, rewinds the cursor so the next
// run re-pulls history from that height.
func (s *JobService) EnqueueWalletSync(ctx context.Context, walletAddress, userID string, fromBlock uint64, priority int) (EnqueueResult, error) {
	wallet, err := s.store.EnsureWallet(ctx, userID, walletAddress)
	if err != nil {
		return EnqueueResult{}, err
	}
	if fromBlock > 0 && fromBlock < wallet.SyncedBlockHeight {
		if err := s.store.UpdateWalletCursor(ctx, userID, walletAddress, fromBlock, wallet.BalanceBase, *wallet.LastSyncedAt); err != nil {
			return EnqueueResult{}, err
		}
	}

	job, created, err := s.queue.Enqueue(ctx, walletAddress, userID, priority)
	if err != nil {
		return EnqueueResult{}, err
	}
	return EnqueueResult{JobID: job.ID, Status: job.Status, Created: created}, nil
}

// GetJob returns job jobID, or nil if it does not exist.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.SyncJob, error) {
	return s.queue.Get(ctx, jobID)
}

// GetJobsByWallet returns every job ever queued for (userID, walletAddress).
func (s *JobService) GetJobsByWallet(ctx context.Context, userID, walletAddress string) ([]model.SyncJob, error) {
	return s.queue.GetByWallet(ctx, userID, walletAddress)
}

// CancelJob cancels jobID if it is pending or processing.
func (s *JobService) CancelJob(ctx context.Context, jobID string) error {
	return s.queue.Cancel(ctx, jobID)
}

// Stats reports current queue depth by status, for the operator CLI.
func (s *JobService) Stats(ctx context.Context) (queue.Stats, error) {
	return s.queue.Stats(ctx)
}

// ListTransactions returns a wallet's persisted transactions, most recent
// first.
func (s *JobService) ListTransactions(ctx context.Context, userID, walletAddress string, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListTransactions(ctx, userID, walletAddress, limit, offset)
}
