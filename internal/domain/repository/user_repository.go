package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codequest/internal/common"
	"codequest/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	// CreditXP atomically adds xp to the user's total and returns the
	// new total, so the caller can recompute the level from it.
	CreditXP(ctx context.Context, userID string, xp int) (int, error)
	SetLevel(ctx context.Context, userID string, level int) error
	IncrementSolvedCount(ctx context.Context, userID string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, username, xp_total, level, solved_count, created_at, updated_at
	          FROM users WHERE id = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.XPTotal, &user.Level, &user.SolvedCount, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) CreditXP(ctx context.Context, userID string, xp int) (int, error) {
	query := `UPDATE users SET xp_total = xp_total + $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 RETURNING xp_total`
	var newTotal int
	if err := r.db.QueryRowContext(ctx, query, xp, userID).Scan(&newTotal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgUserRepository.CreditXP: %w", err)
	}
	return newTotal, nil
}

func (r *pgUserRepository) SetLevel(ctx context.Context, userID string, level int) error {
	query := `UPDATE users SET level = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, level, userID); err != nil {
		return fmt.Errorf("pgUserRepository.SetLevel: %w", err)
	}
	return nil
}

func (r *pgUserRepository) IncrementSolvedCount(ctx context.Context, userID string) error {
	query := `UPDATE users SET solved_count = solved_count + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("pgUserRepository.IncrementSolvedCount: %w", err)
	}
	return nil
}
