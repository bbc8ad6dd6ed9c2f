// Package queue is the durable job queue backing wallet sync work: pending
// jobs are claimed atomically by a worker pool, retried with exponential
// backoff on transient failure, and recovered by a janitor if a worker dies
// mid-claim. See SyncStore for the full state machine.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

// baseBackoff and maxBackoff bound the exponential retry delay: attempt N
// waits min(maxBackoff, baseBackoff * 2^(N-1)).
const (
	baseBackoff = 30 * time.Second
	maxBackoff  = 30 * time.Minute
)

// Backoff returns the delay before retry number n (1-indexed) of a job.
func Backoff(n int) time.Duration {
	d := baseBackoff
	for i := 1; i < n && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// SyncStore is the persistence contract for the job queue, satisfied by
// both Store (MySQL) and Memory (tests).
type SyncStore interface {
	// Enqueue creates a pending job unless the wallet already has an
	// active (pending or processing) job, in which case it returns the
	// existing job and created=false.
	Enqueue(ctx context.Context, walletAddress, userID string, priority int) (job model.SyncJob, created bool, err error)
	// ClaimNext atomically reserves and returns the highest-priority,
	// earliest-scheduled pending job, marking it processing. Returns
	// nil, nil if no job is claimable.
	ClaimNext(ctx context.Context) (*model.SyncJob, error)
	// Complete marks id completed and stores result in its metadata. A
	// no-op if the job is no longer processing (e.g. it was cancelled
	// concurrently): per the cancellation contract, a worker that finishes
	// before noticing a cancellation must not flip the job back to
	// completed.
	Complete(ctx context.Context, id string, result map[string]any) error
	// Fail records a failure. If the job has retries remaining
	// (RetryCount < MaxRetries) it is rescheduled with exponential backoff,
	// its RetryCount incremented, and returned to pending;
	// otherwise it is marked failed terminally. A no-op if the job is no
	// longer processing, for the same reason as Complete.
	Fail(ctx context.Context, id string, cause error) error
	Cancel(ctx context.Context, id string) error
	// IsCancelled reports whether id's current status is cancelled, so a
	// worker can poll it at hash/page boundaries and stop cooperatively.
	IsCancelled(ctx context.Context, id string) (bool, error)
	// UpdateProgress writes {processed, errors} into id's metadata at a
	// batch boundary, without changing its status.
	UpdateProgress(ctx context.Context, id string, processed, errs int) error
	// ResetStuck reclaims jobs stuck in processing past olderThan,
	// returning them to pending for re-claim. Returns the count reset.
	ResetStuck(ctx context.Context, olderThan time.Duration) (int, error)
	// Cleanup deletes terminal (completed/cancelled) jobs older than
	// olderThan, returning the count removed.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)
	Get(ctx context.Context, id string) (*model.SyncJob, error)
	GetByWallet(ctx context.Context, userID, walletAddress string) ([]model.SyncJob, error)
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes queue depth by status, used by the operator CLI and the
// /stats API endpoint.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// defaultMaxRetries is used when NewStore/NewMemory is constructed with
// maxRetries <= 0, so zero-value callers (and existing tests) keep working.
const defaultMaxRetries = 5

// Store is the MySQL-backed SyncStore.
type Store struct {
	db         *sql.DB
	maxRetries int
}

// NewStore wraps an existing *sql.DB (shared with core/store.Store).
// maxRetries sets the default MaxRetries stamped on jobs at Enqueue time;
// it comes from the WORKER_MAX_RETRIES / JOB_MAX_RETRIES config knob, not
// hardcoded. A value <= 0 falls back to defaultMaxRetries.
func NewStore(db *sql.DB, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Store{db: db, maxRetries: maxRetries}
}

func (s *Store) Enqueue(ctx context.Context, walletAddress, userID string, priority int) (model.SyncJob, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SyncJob{}, false, apperrors.Wrap(apperrors.KindTransient, err, "begin enqueue")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id FROM sync_jobs
		WHERE user_id = ? AND wallet_address = ? AND job_type = ? AND status IN ('pending','processing')
		LIMIT 1 FOR UPDATE`, userID, walletAddress, model.JobTypeWalletSync)
	var existingID string
	switch err := row.Scan(&existingID); {
	case err == nil:
		existing, err := getTx(ctx, tx, existingID)
		if err != nil {
			return model.SyncJob{}, false, err
		}
		return *existing, false, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return model.SyncJob{}, false, apperrors.Wrap(apperrors.KindTransient, err, "check active job")
	}

	job := model.SyncJob{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		UserID:        userID,
		JobType:       model.JobTypeWalletSync,
		Status:        model.JobPending,
		Priority:      priority,
		MaxRetries:    s.maxRetries,
		ScheduledAt:   time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := insert(ctx, tx, job); err != nil {
		return model.SyncJob{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return model.SyncJob{}, false, apperrors.Wrap(apperrors.KindTransient, err, "commit enqueue")
	}
	return job, true, nil
}

func insert(ctx context.Context, tx *sql.Tx, j model.SyncJob) error {
	meta, err := json.Marshal(j.Metadata)
	if err != nil {
		return apperrors.Wrap(apperrors.KindFatal, err, "marshal job metadata")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_jobs
			(id, wallet_address, user_id, job_type, status, priority, retry_count, max_retries, scheduled_at, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		j.ID, j.WalletAddress, j.UserID, j.JobType, string(j.Status), j.Priority, j.MaxRetries, j.ScheduledAt, meta, j.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return apperrors.New(apperrors.KindValidation, "job already exists")
		}
		return apperrors.Wrap(apperrors.KindTransient, err, "insert job")
	}
	return nil
}

// ClaimNext uses a two-step claim: find a candidate, then update it
// conditioned on status still being pending, so two workers racing on the
// same row never both believe they claimed it.
func (s *Store) ClaimNext(ctx context.Context) (*model.SyncJob, error) {
	for {
		var id string
		row := s.db.QueryRowContext(ctx, `
			SELECT id FROM sync_jobs
			WHERE status = 'pending' AND scheduled_at <= ?
			ORDER BY priority DESC, scheduled_at ASC
			LIMIT 1`, time.Now().UTC())
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, apperrors.Wrap(apperrors.KindTransient, err, "find claimable job")
		}

		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'processing', started_at = ?
			WHERE id = ? AND status = 'pending'`, now, id)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, err, "claim job")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, err, "claim job rows affected")
		}
		if n == 0 {
			continue // lost the race to another worker; retry the scan
		}
		return s.Get(ctx, id)
	}
}

func (s *Store) Complete(ctx context.Context, id string, result map[string]any) error {
	meta, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrap(apperrors.KindFatal, err, "marshal job result")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = 'completed', completed_at = ?, error_message = '', metadata = ?
		WHERE id = ? AND status = 'processing'`, now, meta, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "complete job")
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return apperrors.NotFound("job not found")
	}
	if job.Status != model.JobProcessing {
		return nil // already cancelled or otherwise no longer in flight: no-op
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	retry := job.RetryCount + 1
	if job.RetryCount >= job.MaxRetries {
		_, err := s.db.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'failed', retry_count = ?, completed_at = ?, error_message = ?
			WHERE id = ? AND status = 'processing'`, job.RetryCount, time.Now().UTC(), msg, id)
		if err != nil {
			return apperrors.Wrap(apperrors.KindTransient, err, "fail job terminally")
		}
		return nil
	}
	nextRun := time.Now().UTC().Add(Backoff(retry))
	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = 'pending', retry_count = ?, scheduled_at = ?, started_at = NULL, error_message = ?
		WHERE id = ? AND status = 'processing'`, retry, nextRun, msg, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "reschedule job")
	}
	return nil
}

// IsCancelled reports whether id currently has status = cancelled.
func (s *Store) IsCancelled(ctx context.Context, id string) (bool, error) {
	var status string
	row := s.db.QueryRowContext(ctx, `SELECT status FROM sync_jobs WHERE id = ?`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.KindTransient, err, "check job cancellation")
	}
	return model.JobStatus(status) == model.JobCancelled, nil
}

// UpdateProgress writes a {processed, errors} snapshot into id's metadata,
// leaving status untouched. Called at each batch boundary so GetJob's
// progress field reflects an in-flight sync.
func (s *Store) UpdateProgress(ctx context.Context, id string, processed, errs int) error {
	meta, err := json.Marshal(map[string]any{"processed": processed, "errors": errs})
	if err != nil {
		return apperrors.Wrap(apperrors.KindFatal, err, "marshal job progress")
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_jobs SET metadata = ? WHERE id = ? AND status = 'processing'`, meta, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "update job progress")
	}
	return nil
}

func (s *Store) Cancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = 'cancelled', completed_at = ?
		WHERE id = ? AND status IN ('pending','processing')`, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "cancel job")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.Validation("job is not cancellable in its current state")
	}
	return nil
}

func (s *Store) ResetStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = 'pending', started_at = NULL
		WHERE status = 'processing' AND started_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindTransient, err, "reset stuck jobs")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_jobs WHERE status IN ('completed','cancelled') AND completed_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindTransient, err, "cleanup jobs")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Get(ctx context.Context, id string) (*model.SyncJob, error) {
	return getTx(ctx, s.db, id)
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTx(ctx context.Context, q queryRower, id string) (*model.SyncJob, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, wallet_address, user_id, job_type, status, priority, retry_count, max_retries,
		       scheduled_at, started_at, completed_at, error_message, metadata, created_at
		FROM sync_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func scanJob(row *sql.Row) (*model.SyncJob, error) {
	var j model.SyncJob
	var status string
	var started, completed sql.NullTime
	var meta sql.NullString
	if err := row.Scan(&j.ID, &j.WalletAddress, &j.UserID, &j.JobType, &status, &j.Priority, &j.RetryCount, &j.MaxRetries,
		&j.ScheduledAt, &started, &completed, &j.ErrorMessage, &meta, &j.CreatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseJobStatus(status)
	if err != nil {
		return nil, err
	}
	j.Status = st
	if started.Valid {
		j.StartedAt = &started.Time
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	if meta.Valid && meta.String != "" && meta.String != "null" {
		_ = json.Unmarshal([]byte(meta.String), &j.Metadata)
	}
	return &j, nil
}

func (s *Store) GetByWallet(ctx context.Context, userID, walletAddress string) ([]model.SyncJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_address, user_id, job_type, status, priority, retry_count, max_retries,
		       scheduled_at, started_at, completed_at, error_message, metadata, created_at
		FROM sync_jobs WHERE user_id = ? AND wallet_address = ?
		ORDER BY created_at DESC`, userID, walletAddress)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, err, "list jobs by wallet")
	}
	defer rows.Close()

	var out []model.SyncJob
	for rows.Next() {
		var j model.SyncJob
		var status string
		var started, completed sql.NullTime
		var meta sql.NullString
		if err := rows.Scan(&j.ID, &j.WalletAddress, &j.UserID, &j.JobType, &status, &j.Priority, &j.RetryCount, &j.MaxRetries,
			&j.ScheduledAt, &started, &completed, &j.ErrorMessage, &meta, &j.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, err, "scan job")
		}
		st, err := model.ParseJobStatus(status)
		if err != nil {
			return nil, err
		}
		j.Status = st
		if started.Valid {
			j.StartedAt = &started.Time
		}
		if completed.Valid {
			j.CompletedAt = &completed.Time
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			_ = json.Unmarshal([]byte(meta.String), &j.Metadata)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, apperrors.Wrap(apperrors.KindTransient, err, "queue stats")
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, apperrors.Wrap(apperrors.KindTransient, err, "scan stats row")
		}
		switch model.JobStatus(status) {
		case model.JobPending:
			st.Pending = count
		case model.JobProcessing:
			st.Processing = count
		case model.JobCompleted:
			st.Completed = count
		case model.JobFailed:
			st.Failed = count
		case model.JobCancelled:
			st.Cancelled = count
		}
	}
	return st, rows.Err()
}
