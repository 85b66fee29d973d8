package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codequest/internal/common"
	"codequest/internal/domain/model"
)

type ProgressionRepository interface {
	// ListLevelRules returns the rule set sorted ascending by level.
	ListLevelRules(ctx context.Context) ([]model.LevelRule, error)
	// FindActiveSeason returns the season whose date range contains at,
	// or common.ErrNotFound when no season is running.
	FindActiveSeason(ctx context.Context, at time.Time) (*model.Season, error)
	// DeleteAttempt clears the user's in-progress draft for an exercise.
	DeleteAttempt(ctx context.Context, userID, exerciseID string) error
}

type pgProgressionRepository struct {
	db *sql.DB
}

func NewPgProgressionRepository(db *sql.DB) ProgressionRepository {
	return &pgProgressionRepository{db: db}
}

func (r *pgProgressionRepository) ListLevelRules(ctx context.Context) ([]model.LevelRule, error) {
	query := `SELECT level, min_xp FROM level_rules ORDER BY level ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgProgressionRepository.ListLevelRules query: %w", err)
	}
	defer rows.Close()

	var rules []model.LevelRule
	for rows.Next() {
		var rule model.LevelRule
		if err := rows.Scan(&rule.Level, &rule.MinXP); err != nil {
			return nil, fmt.Errorf("pgProgressionRepository.ListLevelRules scan: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *pgProgressionRepository) FindActiveSeason(ctx context.Context, at time.Time) (*model.Season, error) {
	query := `SELECT id, name, starts_at, ends_at FROM seasons
	          WHERE starts_at <= $1 AND ends_at >= $1
	          ORDER BY starts_at DESC LIMIT 1`
	season := &model.Season{}
	err := r.db.QueryRowContext(ctx, query, at).Scan(&season.ID, &season.Name, &season.StartsAt, &season.EndsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressionRepository.FindActiveSeason: %w", err)
	}
	return season, nil
}

func (r *pgProgressionRepository) DeleteAttempt(ctx context.Context, userID, exerciseID string) error {
	query := `DELETE FROM attempts WHERE user_id = $1 AND exercise_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, exerciseID); err != nil {
		return fmt.Errorf("pgProgressionRepository.DeleteAttempt: %w", err)
	}
	return nil
}
