package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

func TestEnqueueDedupesActiveJob(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	j1, created1, err := m.Enqueue(ctx, "addr1", "user1", 0)
	require.NoError(t, err)
	assert.True(t, created1)

	j2, created2, err := m.Enqueue(ctx, "addr1", "user1", 0)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, j1.ID, j2.ID)
}

func TestClaimNextRespectsPriorityThenAge(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	low, _, _ := m.Enqueue(ctx, "addr_low", "user1", 0)
	high, _, _ := m.Enqueue(ctx, "addr_high", "user1", 10)

	claimed, err := m.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, high.ID, claimed.ID)
	assert.Equal(t, model.JobProcessing, claimed.Status)

	claimed2, err := m.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, low.ID, claimed2.ID)
}

func TestClaimNextEmptyQueue(t *testing.T) {
	m := NewMemory(0)
	job, err := m.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestCompleteMarksCompleted(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)
	_, _ = m.ClaimNext(ctx)

	require.NoError(t, m.Complete(ctx, j.ID, map[string]any{"processed": 3, "errors": 0}))
	got, err := m.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestFailReschedulesUntilMaxRetries(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)

	m.mu.Lock()
	m.jobs[j.ID].MaxRetries = 2
	m.mu.Unlock()

	_, _ = m.ClaimNext(ctx)
	require.NoError(t, m.Fail(ctx, j.ID, errors.New("transient")))
	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)

	// Make the rescheduled job claimable now instead of waiting out Backoff.
	m.mu.Lock()
	m.jobs[j.ID].ScheduledAt = time.Now().UTC().Add(-time.Second)
	m.mu.Unlock()

	_, _ = m.ClaimNext(ctx)
	require.NoError(t, m.Fail(ctx, j.ID, errors.New("transient again")))
	got, _ = m.Get(ctx, j.ID)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Equal(t, 2, got.RetryCount)

	m.mu.Lock()
	m.jobs[j.ID].ScheduledAt = time.Now().UTC().Add(-time.Second)
	m.mu.Unlock()

	_, _ = m.ClaimNext(ctx)
	require.NoError(t, m.Fail(ctx, j.ID, errors.New("transient a third time")))
	got, _ = m.Get(ctx, j.ID)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, 2, got.RetryCount)
}

func TestCancelOnlyActiveJobs(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)

	require.NoError(t, m.Cancel(ctx, j.ID))
	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, model.JobCancelled, got.Status)

	err := m.Cancel(ctx, j.ID)
	assert.Error(t, err)
}

func TestResetStuckReclaimsOldProcessingJobs(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)
	_, _ = m.ClaimNext(ctx)

	stale := time.Now().UTC().Add(-time.Hour)
	m.mu.Lock()
	m.jobs[j.ID].StartedAt = &stale
	m.mu.Unlock()

	n, err := m.ResetStuck(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, model.JobPending, got.Status)
}

func TestStatsCountsByStatus(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	_, _, _ = m.Enqueue(ctx, "addr1", "user1", 0)
	_, _, _ = m.Enqueue(ctx, "addr2", "user1", 0)

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Pending)
}

func TestCompleteIsNoOpOnCancelledJob(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)
	_, _ = m.ClaimNext(ctx)

	require.NoError(t, m.Cancel(ctx, j.ID))
	require.NoError(t, m.Complete(ctx, j.ID, map[string]any{"processed": 1}))

	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, model.JobCancelled, got.Status)
}

func TestFailIsNoOpOnCancelledJob(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)
	_, _ = m.ClaimNext(ctx)

	require.NoError(t, m.Cancel(ctx, j.ID))
	require.NoError(t, m.Fail(ctx, j.ID, errors.New("noticed too late")))

	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, model.JobCancelled, got.Status)
	assert.Equal(t, 0, got.RetryCount)
}

func TestIsCancelledReflectsStatus(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)

	cancelled, err := m.IsCancelled(ctx, j.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	require.NoError(t, m.Cancel(ctx, j.ID))
	cancelled, err = m.IsCancelled(ctx, j.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestUpdateProgressWritesMetadataWhileProcessing(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j, _, _ := m.Enqueue(ctx, "addr1", "user1", 0)
	_, _ = m.ClaimNext(ctx)

	require.NoError(t, m.UpdateProgress(ctx, j.ID, 7, 2))
	got, _ := m.Get(ctx, j.ID)
	assert.Equal(t, 7, got.Metadata["processed"])
	assert.Equal(t, 2, got.Metadata["errors"])
}

func TestEnqueueUsesConfiguredMaxRetries(t *testing.T) {
	m := NewMemory(9)
	j, _, _ := m.Enqueue(context.Background(), "addr1", "user1", 0)
	assert.Equal(t, 9, j.MaxRetries)
}

func TestBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	assert.Equal(t, baseBackoff, Backoff(1))
	assert.Equal(t, baseBackoff*2, Backoff(2))
	assert.Equal(t, baseBackoff*4, Backoff(3))
	assert.Equal(t, maxBackoff, Backoff(20))
}
