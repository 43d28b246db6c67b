package cockroach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wavelink-backend/internal/domain"
	apperrors "wavelink-backend/pkg/errors"
)

// CallLogRepository handles durable call-log records. The table is
// append-only: rows are inserted once at session termination and never
// updated.
type CallLogRepository struct {
	pool *pgxpool.Pool
}

// NewCallLogRepository creates a new call log repository
func NewCallLogRepository(pool *pgxpool.Pool) *CallLogRepository {
	return &CallLogRepository{pool: pool}
}

// Create inserts a concluded call. The lifecycle controller guarantees a
// single writer per call, so there is no upsert handling here.
func (r *CallLogRepository) Create(ctx context.Context, entry *domain.CallLogEntry) error {
	query := `
		INSERT INTO call_logs (
			id,
			caller_id, caller_display_name, caller_avatar_url,
			callee_id, callee_display_name, callee_avatar_url,
			call_type, status, start_time, end_time, duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Caller.Identity,
		entry.Caller.DisplayName,
		entry.Caller.AvatarURL,
		entry.Callee.Identity,
		entry.Callee.DisplayName,
		entry.Callee.AvatarURL,
		entry.CallType,
		entry.Status,
		entry.StartTime,
		entry.EndTime,
		entry.DurationSeconds,
	)

	if err != nil {
		return apperrors.DatabaseError(err)
	}

	return nil
}

// ListForUser retrieves call logs where the user was caller or callee,
// newest first.
func (r *CallLogRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.CallLogEntry, error) {
	query := `
		SELECT id,
		       caller_id, caller_display_name, caller_avatar_url,
		       callee_id, callee_display_name, callee_avatar_url,
		       call_type, status, start_time, end_time, duration_seconds
		FROM call_logs
		WHERE caller_id = $1 OR callee_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer rows.Close()

	var entries []*domain.CallLogEntry
	for rows.Next() {
		entry := &domain.CallLogEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Caller.Identity,
			&entry.Caller.DisplayName,
			&entry.Caller.AvatarURL,
			&entry.Callee.Identity,
			&entry.Callee.DisplayName,
			&entry.Callee.AvatarURL,
			&entry.CallType,
			&entry.Status,
			&entry.StartTime,
			&entry.EndTime,
			&entry.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
