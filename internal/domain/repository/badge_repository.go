package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// BadgeRepository is the collaborator surface for badge ownership. Both
// high-score transfers and triumphant grants go through it.
type BadgeRepository interface {
	// GrantToUser is idempotent: granting an already-owned badge is a no-op.
	GrantToUser(ctx context.Context, userID, badgeID string) error
	RevokeFromUser(ctx context.Context, userID, badgeID string) error
	// ListTriumphBadgeIDs returns the badges granted on first acceptance
	// of an exercise.
	ListTriumphBadgeIDs(ctx context.Context, exerciseID string) ([]string, error)
}

type pgBadgeRepository struct {
	db *sql.DB
}

func NewPgBadgeRepository(db *sql.DB) BadgeRepository {
	return &pgBadgeRepository{db: db}
}

func (r *pgBadgeRepository) GrantToUser(ctx context.Context, userID, badgeID string) error {
	query := `INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2)
	          ON CONFLICT (user_id, badge_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, badgeID); err != nil {
		return fmt.Errorf("pgBadgeRepository.GrantToUser: %w", err)
	}
	return nil
}

func (r *pgBadgeRepository) RevokeFromUser(ctx context.Context, userID, badgeID string) error {
	query := `DELETE FROM user_badges WHERE user_id = $1 AND badge_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, badgeID); err != nil {
		return fmt.Errorf("pgBadgeRepository.RevokeFromUser: %w", err)
	}
	return nil
}

func (r *pgBadgeRepository) ListTriumphBadgeIDs(ctx context.Context, exerciseID string) ([]string, error) {
	query := `SELECT badge_id FROM exercise_badges WHERE exercise_id = $1`
	rows, err := r.db.QueryContext(ctx, query, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("pgBadgeRepository.ListTriumphBadgeIDs query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgBadgeRepository.ListTriumphBadgeIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
