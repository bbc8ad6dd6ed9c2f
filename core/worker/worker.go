// Package worker runs the sync job loop: claim a job, stream the wallet's
// new transactions from the indexer, parse and categorize each one, batch-
// persist the results, and advance the wallet's cursor. A companion janitor
// reclaims jobs left in "processing" by a worker that died mid-claim.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/cardano-wallet-sync/core/cache"
	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/metrics"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
	"github.com/synnergy-labs/cardano-wallet-sync/core/queue"
	"github.com/synnergy-labs/cardano-wallet-sync/core/store"
	"github.com/synnergy-labs/cardano-wallet-sync/core/wallettx"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

// errCancelled signals that a worker noticed its job's cancellation token
// mid-sync and stopped cooperatively; process() routes it through Fail the
// same as any other error, where Fail's processing-only guard turns it into
// a no-op because the job's status is already cancelled.
var errCancelled = apperrors.New(apperrors.KindValidation, "job cancelled")

// Config holds the tunables the worker and janitor loops read at startup.
type Config struct {
	BatchSize      int
	PollInterval   time.Duration
	HashDelay      time.Duration
	StuckThreshold time.Duration
}

// Worker claims and processes sync jobs one at a time per poll tick. Safe
// to run multiple instances concurrently against the same queue: ClaimNext
// guarantees each job is handed to exactly one worker.
type Worker struct {
	cfg      Config
	idx      indexer.Client
	store    *store.Store
	queue    queue.SyncStore
	resolver wallettx.TokenResolver
	cache    *cache.Safe
	log      *logrus.Entry

	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// New builds a Worker from its dependencies.
func New(cfg Config, idx indexer.Client, st *store.Store, q queue.SyncStore, resolver wallettx.TokenResolver, c *cache.Safe, log *logrus.Entry) *Worker {
	return &Worker{cfg: cfg, idx: idx, store: st, queue: q, resolver: resolver, cache: c, log: log, stopCh: make(chan struct{})}
}

// Run polls the queue until ctx is cancelled or Stop is called.
func (w *Worker) Run(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.log.WithField("poll_interval", w.cfg.PollInterval).Info("sync worker starting")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.drainQueue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("sync worker stopping: context done")
			w.wg.Wait()
			return
		case <-w.stopCh:
			w.wg.Wait()
			return
		case <-ticker.C:
			w.drainQueue(ctx)
		}
	}
}

// Stop requests the loop exit after its current tick.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// drainQueue claims and processes jobs until the queue reports no more
// claimable work, so one poll tick can catch up a backlog instead of
// processing a single job per PollInterval.
func (w *Worker) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		job, err := w.queue.ClaimNext(ctx)
		if err != nil {
			w.log.WithError(err).Error("claim next job failed")
			return
		}
		if job == nil {
			return
		}
		metrics.JobsClaimed.Inc()
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *model.SyncJob) {
	log := w.log.WithFields(logrus.Fields{"job_id": job.ID, "wallet": job.WalletAddress})
	log.Info("processing sync job")

	result, err := w.syncWallet(ctx, job.ID, job.UserID, job.WalletAddress)
	if err != nil {
		terminal := job.RetryCount >= job.MaxRetries
		metrics.JobsFailed.WithLabelValues(fmt.Sprintf("%t", terminal)).Inc()
		log.WithError(err).Warn("sync job failed")
		if ferr := w.queue.Fail(ctx, job.ID, err); ferr != nil {
			log.WithError(ferr).Error("failed to record job failure")
		}
		return
	}

	complete := map[string]any{"processed": result.Processed, "errors": result.Errors, "tip": result.Tip}
	if err := w.queue.Complete(ctx, job.ID, complete); err != nil {
		log.WithError(err).Error("failed to mark job complete")
		return
	}
	metrics.JobsCompleted.Inc()
	log.WithFields(logrus.Fields{"processed": result.Processed, "errors": result.Errors}).Info("sync job completed")
}

// syncResult is the {processed, errors, tip} shape persisted to job.metadata
// on a successful Complete.
type syncResult struct {
	Processed int
	Errors    int
	Tip       uint64
}

// syncWallet pulls every transaction newer than the wallet's recorded
// cursor, parses and persists them in batches, then advances the cursor.
// Transient indexer/store errors propagate so the caller can retry the job;
// a bad transaction hash (fetch or parse failure) is counted in
// result.Errors and skipped, never aborting the rest of the sync. The job's
// cancellation flag is polled at every page and hash boundary so an
// operator-issued Cancel is noticed promptly.
func (w *Worker) syncWallet(ctx context.Context, jobID, userID, address string) (syncResult, error) {
	var result syncResult

	wallet, err := w.store.EnsureWallet(ctx, userID, address)
	if err != nil {
		return result, err
	}

	tip, err := w.idx.CurrentBlockHeight(ctx)
	if err != nil {
		return result, err
	}
	result.Tip = tip
	if tip <= wallet.SyncedBlockHeight {
		return result, nil // already caught up; nothing to do
	}

	pages := w.idx.ListTxHashes(ctx, address, wallet.SyncedBlockHeight)

	var batchTxs []model.Transaction
	flowsByHash := make(map[string][]model.AssetFlow)
	highest := wallet.SyncedBlockHeight

	flush := func() error {
		if len(batchTxs) == 0 {
			return nil
		}
		saved, err := w.store.SaveBatch(ctx, userID, batchTxs, flowsByHash)
		if err != nil {
			return err
		}
		metrics.TransactionsInserted.Add(float64(saved.Inserted))
		metrics.TransactionsSkipped.Add(float64(saved.Skipped))
		batchTxs = batchTxs[:0]
		flowsByHash = make(map[string][]model.AssetFlow)
		if perr := w.queue.UpdateProgress(ctx, jobID, result.Processed, result.Errors); perr != nil {
			w.log.WithError(perr).WithField("job_id", jobID).Warn("failed to persist sync progress")
		}
		return nil
	}

	for {
		if cancelled, cerr := w.queue.IsCancelled(ctx, jobID); cerr != nil {
			w.log.WithError(cerr).WithField("job_id", jobID).Warn("cancellation check failed, continuing")
		} else if cancelled {
			return result, errCancelled
		}

		page, ok, err := pages.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			break
		}

		for _, hash := range page.Hashes {
			if cancelled, cerr := w.queue.IsCancelled(ctx, jobID); cerr != nil {
				w.log.WithError(cerr).WithField("job_id", jobID).Warn("cancellation check failed, continuing")
			} else if cancelled {
				return result, errCancelled
			}

			raw, err := w.idx.FetchTxDetail(ctx, hash)
			if err != nil {
				result.Errors++
				w.log.WithError(err).WithField("tx_hash", hash).Warn("fetch failed, skipping transaction")
				continue
			}

			parsed, err := wallettx.Parse(ctx, raw, address, w.resolver)
			if err != nil {
				result.Errors++
				w.log.WithError(err).WithField("tx_hash", hash).Warn("parse failed, skipping transaction")
				continue
			}
			if parsed == nil {
				continue
			}

			metrics.TransactionsParsed.WithLabelValues(string(parsed.Transaction.Action)).Inc()
			batchTxs = append(batchTxs, parsed.Transaction)
			flowsByHash[parsed.Transaction.TxHash] = parsed.Flows
			result.Processed++
			if raw.BlockHeight > highest {
				highest = raw.BlockHeight
			}

			if len(batchTxs) >= w.cfg.BatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}

			if w.cfg.HashDelay > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(w.cfg.HashDelay):
				}
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	balance, _, err := w.idx.FetchAddressBalance(ctx, address)
	if err != nil {
		return result, err
	}
	if err := w.store.UpdateWalletCursor(ctx, userID, address, highest, balance, time.Now().UTC()); err != nil {
		return result, err
	}

	w.cache.DeletePattern(ctx, cache.WalletKeyPrefix+address+"*")
	w.cache.DeletePattern(ctx, cache.TransactionKeyPrefix+address+"*")
	return result, nil
}

// Janitor periodically reclaims jobs stuck in processing past the
// configured threshold, so a worker crash never permanently strands a job.
type Janitor struct {
	q        queue.SyncStore
	interval time.Duration
	stuck    time.Duration
	log      *logrus.Entry
}

// NewJanitor builds a Janitor running every interval against q.
func NewJanitor(q queue.SyncStore, interval, stuck time.Duration, log *logrus.Entry) *Janitor {
	return &Janitor{q: q, interval: interval, stuck: stuck, log: log}
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.q.ResetStuck(ctx, j.stuck)
			if err != nil {
				j.log.WithError(err).Error("reset stuck jobs failed")
				continue
			}
			if n > 0 {
				metrics.JobsStuckReset.Add(float64(n))
				j.log.WithField("count", n).Warn("reclaimed stalled jobs")
			}
		}
	}
}
