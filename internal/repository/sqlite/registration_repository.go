package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	comment TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	UNIQUE (event_id, user_id)
);
`

type RegistrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) repository.RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRegistrationsTable); err != nil {
		return fmt.Errorf("create registrations table: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *domain.Registration) (int64, error) {
	reg.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
INSERT INTO registrations (event_id, user_id, comment, created_at)
VALUES (?, ?, ?, ?)`,
		reg.EventID,
		reg.UserID,
		reg.Comment,
		reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("registration: %w", repository.ErrConflict)
		}
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("registration last insert id: %w", err)
	}
	reg.ID = id
	return id, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, eventID int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return requireAffected(res, "registration")
}

func (r *RegistrationRepository) Exists(ctx context.Context, eventID int64, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count registrations: %w", err)
	}
	return n > 0, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.event_id, r.user_id, u.username, u.name, r.comment, r.created_at
FROM registrations r
JOIN users u ON u.id = r.user_id
WHERE r.event_id = ?
ORDER BY r.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(
			&reg.ID,
			&reg.EventID,
			&reg.UserID,
			&reg.Username,
			&reg.Name,
			&reg.Comment,
			&reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}
