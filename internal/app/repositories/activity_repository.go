package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/db"
)

// ActivityRepository appends to and reads the audit trail
type ActivityRepository struct {
	db *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{
		db: db,
	}
}

// Create appends an entry
func (r *ActivityRepository) Create(ctx context.Context, l *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, description)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp
	`

	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, l.UserID, l.Action, l.Description).Scan(&l.ID, &l.Timestamp); err != nil {
		return fmt.Errorf("error creating activity log: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, user_id, action, description, timestamp
		FROM activity_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing activity logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Description, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning activity log: %w", err)
		}
		logs = append(logs, &l)
	}

	return logs, rows.Err()
}
