package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

// Memory is an in-process SyncStore for tests and the single-process
// development mode; it implements the same claim/retry semantics as Store.
type Memory struct {
	mu         sync.Mutex
	jobs       map[string]*model.SyncJob
	maxRetries int
}

// NewMemory creates an empty in-memory job queue. maxRetries mirrors
// Store's constructor: a value <= 0 falls back to defaultMaxRetries.
func NewMemory(maxRetries int) *Memory {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Memory{jobs: make(map[string]*model.SyncJob), maxRetries: maxRetries}
}

func (m *Memory) Enqueue(ctx context.Context, walletAddress, userID string, priority int) (model.SyncJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.WalletAddress == walletAddress && j.UserID == userID && j.JobType == model.JobTypeWalletSync &&
			(j.Status == model.JobPending || j.Status == model.JobProcessing) {
			return *j, false, nil
		}
	}
	job := model.SyncJob{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		UserID:        userID,
		JobType:       model.JobTypeWalletSync,
		Status:        model.JobPending,
		Priority:      priority,
		MaxRetries:    m.maxRetries,
		ScheduledAt:   time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	m.jobs[job.ID] = &job
	return job, true, nil
}

func (m *Memory) ClaimNext(ctx context.Context) (*model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []*model.SyncJob
	now := time.Now().UTC()
	for _, j := range m.jobs {
		if j.Status == model.JobPending && !j.ScheduledAt.After(now) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].ScheduledAt.Before(candidates[k].ScheduledAt)
	})
	j := candidates[0]
	j.Status = model.JobProcessing
	started := time.Now().UTC()
	j.StartedAt = &started
	cp := *j
	return &cp, nil
}

func (m *Memory) Complete(ctx context.Context, id string, result map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	if j.Status != model.JobProcessing {
		return nil // already cancelled or otherwise no longer in flight: no-op
	}
	j.Status = model.JobCompleted
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.ErrorMessage = ""
	j.Metadata = result
	return nil
}

func (m *Memory) Fail(ctx context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	if j.Status != model.JobProcessing {
		return nil // already cancelled or otherwise no longer in flight: no-op
	}
	if cause != nil {
		j.ErrorMessage = cause.Error()
	}
	if j.RetryCount >= j.MaxRetries {
		j.Status = model.JobFailed
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	}
	j.RetryCount++
	j.Status = model.JobPending
	j.StartedAt = nil
	j.ScheduledAt = time.Now().UTC().Add(Backoff(j.RetryCount))
	return nil
}

func (m *Memory) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	if j.Status != model.JobPending && j.Status != model.JobProcessing {
		return apperrors.Validation("job is not cancellable in its current state")
	}
	j.Status = model.JobCancelled
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// IsCancelled reports whether id currently has status = cancelled.
func (m *Memory) IsCancelled(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	return j.Status == model.JobCancelled, nil
}

// UpdateProgress writes a {processed, errors} snapshot into id's metadata,
// leaving status untouched.
func (m *Memory) UpdateProgress(ctx context.Context, id string, processed, errs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	if j.Status != model.JobProcessing {
		return nil
	}
	j.Metadata = map[string]any{"processed": processed, "errors": errs}
	return nil
}

func (m *Memory) ResetStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	n := 0
	for _, j := range m.jobs {
		if j.Status == model.JobProcessing && j.StartedAt != nil && j.StartedAt.Before(cutoff) {
			j.Status = model.JobPending
			j.StartedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *Memory) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	n := 0
	for id, j := range m.jobs {
		if (j.Status == model.JobCompleted || j.Status == model.JobCancelled) && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *Memory) GetByWallet(ctx context.Context, userID, walletAddress string) ([]model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SyncJob
	for _, j := range m.jobs {
		if j.UserID == userID && j.WalletAddress == walletAddress {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st Stats
	for _, j := range m.jobs {
		switch j.Status {
		case model.JobPending:
			st.Pending++
		case model.JobProcessing:
			st.Processing++
		case model.JobCompleted:
			st.Completed++
		case model.JobFailed:
			st.Failed++
		case model.JobCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}
