package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cronforge/scheduler/internal/domain"
)

// Store implements the scheduler's store.ExecutionStore on top of
// Postgres, following the teacher's PG*Store shape (a thin struct
// wrapping *sql.DB, one method per operation, $N placeholders).
type Store struct {
	db *sql.DB
}

// NewStore wraps an open *sql.DB (see OpenDB) as a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobSelectCols = `id, name, description, cron_expression, timezone, target_url, method,
	headers, body, query, enabled, retry_budget, per_attempt_timeout_ms, owner_id,
	created_at, updated_at, lifecycle_status, last_fired_at, next_fire_at`

func scanJob(row interface{ Scan(...any) error }) (domain.Job, error) {
	var j domain.Job
	var headersJSON, queryJSON []byte
	var perAttemptMs int64
	var lastFired, nextFire sql.NullTime
	err := row.Scan(
		&j.ID, &j.Name, &j.Description, &j.CronExpression, &j.Timezone, &j.TargetURL, &j.Method,
		&headersJSON, &j.Body, &queryJSON, &j.Enabled, &j.RetryBudget, &perAttemptMs, &j.OwnerID,
		&j.CreatedAt, &j.UpdatedAt, &j.LifecycleStatus, &lastFired, &nextFire,
	)
	if err != nil {
		return domain.Job{}, err
	}
	j.PerAttemptTimeout = time.Duration(perAttemptMs) * time.Millisecond
	if len(headersJSON) > 0 {
		_ = json.Unmarshal(headersJSON, &j.Headers)
	}
	if len(queryJSON) > 0 {
		_ = json.Unmarshal(queryJSON, &j.Query)
	}
	if lastFired.Valid {
		j.LastFiredAt = &lastFired.Time
	}
	if nextFire.Valid {
		j.NextFireAt = &nextFire.Time
	}
	return j, nil
}

func (s *Store) ListEnabledJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobSelectCols+` FROM jobs WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("list enabled jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobSelectCols+` FROM jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, &domain.NotFoundError{Kind: "job", ID: jobID}
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *Store) CreateJob(ctx context.Context, job domain.Job) error {
	headersJSON, _ := json.Marshal(job.Headers)
	queryJSON, _ := json.Marshal(job.Query)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, description, cron_expression, timezone, target_url, method,
		 headers, body, query, enabled, retry_budget, per_attempt_timeout_ms, owner_id,
		 created_at, updated_at, lifecycle_status, last_fired_at, next_fire_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		job.ID, job.Name, job.Description, job.CronExpression, job.Timezone, job.TargetURL, job.Method,
		headersJSON, job.Body, queryJSON, job.Enabled, job.RetryBudget, job.PerAttemptTimeout.Milliseconds(), job.OwnerID,
		job.CreatedAt, job.UpdatedAt, job.LifecycleStatus, job.LastFiredAt, job.NextFireAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job domain.Job) error {
	headersJSON, _ := json.Marshal(job.Headers)
	queryJSON, _ := json.Marshal(job.Query)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET name=$1, description=$2, cron_expression=$3, timezone=$4, target_url=$5,
		 method=$6, headers=$7, body=$8, query=$9, enabled=$10, retry_budget=$11,
		 per_attempt_timeout_ms=$12, updated_at=$13, lifecycle_status=$14, last_fired_at=$15, next_fire_at=$16
		 WHERE id=$17`,
		job.Name, job.Description, job.CronExpression, job.Timezone, job.TargetURL,
		job.Method, headersJSON, job.Body, queryJSON, job.Enabled, job.RetryBudget,
		job.PerAttemptTimeout.Milliseconds(), job.UpdatedAt, job.LifecycleStatus, job.LastFiredAt, job.NextFireAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *Store) CreateExecution(ctx context.Context, exec domain.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, job_id, started_at, completed_at, status,
		 response_status_code, response_body, error_message, duration_ms, attempt_number)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		exec.ID, exec.JobID, exec.StartedAt, exec.CompletedAt, exec.Status,
		exec.ResponseStatusCode, exec.ResponseBody, exec.ErrorMessage, exec.DurationMs, exec.AttemptNumber,
	)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// TerminalUpdate writes the Execution's terminal state and the parent
// Job's lifecycleStatus/nextFireAt inside a single transaction, per
// spec §4.3's cross-entity atomicity requirement.
func (s *Store) TerminalUpdate(ctx context.Context, exec domain.Execution, job domain.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin terminal update: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE executions SET completed_at=$1, status=$2, response_status_code=$3,
		 response_body=$4, error_message=$5, duration_ms=$6, attempt_number=$7 WHERE id=$8`,
		exec.CompletedAt, exec.Status, exec.ResponseStatusCode, exec.ResponseBody,
		exec.ErrorMessage, exec.DurationMs, exec.AttemptNumber, exec.ID,
	)
	if err != nil {
		return fmt.Errorf("terminal update execution: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET lifecycle_status=$1, last_fired_at=$2, next_fire_at=$3, updated_at=$4 WHERE id=$5`,
		job.LifecycleStatus, job.LastFiredAt, job.NextFireAt, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("terminal update job: %w", err)
	}

	return tx.Commit()
}

func (s *Store) AppendScheduleChange(ctx context.Context, change domain.ScheduleChange) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_changes (id, job_id, old_expression, new_expression, reason, author_id, changed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		change.ID, change.JobID, change.OldExpression, change.NewExpression, change.Reason, change.AuthorID, change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("append schedule change: %w", err)
	}
	return nil
}

func (s *Store) RecentExecutions(ctx context.Context, jobID string, limit int) ([]domain.Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, started_at, completed_at, status, response_status_code,
		 response_body, error_message, duration_ms, attempt_number
		 FROM executions WHERE job_id = $1 ORDER BY started_at DESC LIMIT $2`,
		jobID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent executions: %w", err)
	}
	defer rows.Close()

	var out []domain.Execution
	for rows.Next() {
		var e domain.Execution
		var completedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.JobID, &e.StartedAt, &completedAt, &e.Status,
			&e.ResponseStatusCode, &e.ResponseBody, &e.ErrorMessage, &e.DurationMs, &e.AttemptNumber); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		if completedAt.Valid {
			e.CompletedAt = &completedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
