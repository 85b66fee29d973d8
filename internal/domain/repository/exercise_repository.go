package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codequest/internal/common"
	"codequest/internal/domain/model"
)

type ExerciseRepository interface {
	FindByID(ctx context.Context, id string) (*model.Exercise, error)
	GetTests(ctx context.Context, exerciseID string) ([]model.TestCase, error)
	GetLanguageByID(ctx context.Context, id string) (*model.Language, error)
	UpdateHighScoreWinner(ctx context.Context, exerciseID string, winner model.HighScoreWinner) error
	// IncrementSolveCount is an atomic counter update so concurrent
	// acceptances cannot lose increments.
	IncrementSolveCount(ctx context.Context, exerciseID string) error
	CreateExercise(ctx context.Context, ex *model.Exercise) error
	ReplaceTests(ctx context.Context, exerciseID string, tests []model.TestCase) error
}

type pgExerciseRepository struct {
	db *sql.DB
}

func NewPgExerciseRepository(db *sql.DB) ExerciseRepository {
	return &pgExerciseRepository{db: db}
}

func (r *pgExerciseRepository) FindByID(ctx context.Context, id string) (*model.Exercise, error) {
	query := `
        SELECT id, title, slug, status, difficulty, base_xp, language_id, badge_rarity,
               high_score_badge_id, high_score_winner_user_id, high_score_winner_submission_id,
               high_score_winner_score, high_score_winner_time_ms,
               solve_count, last_solved_at, created_at, updated_at
        FROM exercises WHERE id = $1`

	ex := &model.Exercise{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ex.ID, &ex.Title, &ex.Slug, &ex.Status, &ex.Difficulty, &ex.BaseXP, &ex.LanguageID, &ex.BadgeRarity,
		&ex.HighScoreBadgeID, &ex.HighScoreWinnerUserID, &ex.HighScoreWinnerSubmissionID,
		&ex.HighScoreWinnerScore, &ex.HighScoreWinnerTimeMs,
		&ex.SolveCount, &ex.LastSolvedAt, &ex.CreatedAt, &ex.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExerciseRepository.FindByID: %w", err)
	}
	return ex, nil
}

func (r *pgExerciseRepository) GetTests(ctx context.Context, exerciseID string) ([]model.TestCase, error) {
	query := `SELECT test_index, input, expected_output
              FROM exercise_tests WHERE exercise_id = $1 ORDER BY test_index ASC`
	rows, err := r.db.QueryContext(ctx, query, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("pgExerciseRepository.GetTests query: %w", err)
	}
	defer rows.Close()

	var tests []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.Index, &tc.Input, &tc.ExpectedOutput); err != nil {
			return nil, fmt.Errorf("pgExerciseRepository.GetTests scan: %w", err)
		}
		tests = append(tests, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExerciseRepository.GetTests rows.Err: %w", err)
	}
	return tests, nil
}

func (r *pgExerciseRepository) GetLanguageByID(ctx context.Context, id string) (*model.Language, error) {
	query := `SELECT id, name, slug, runtime_id, is_active, created_at
              FROM languages WHERE id = $1 AND is_active = TRUE`
	lang := &model.Language{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lang.ID, &lang.Name, &lang.Slug, &lang.RuntimeID, &lang.IsActive, &lang.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExerciseRepository.GetLanguageByID: %w", err)
	}
	return lang, nil
}

func (r *pgExerciseRepository) UpdateHighScoreWinner(ctx context.Context, exerciseID string, w model.HighScoreWinner) error {
	query := `UPDATE exercises SET
                high_score_winner_user_id = $1,
                high_score_winner_submission_id = $2,
                high_score_winner_score = $3,
                high_score_winner_time_ms = $4,
                updated_at = CURRENT_TIMESTAMP
              WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, w.UserID, w.SubmissionID, w.FinalScore, w.TimeSpentMs, exerciseID); err != nil {
		return fmt.Errorf("pgExerciseRepository.UpdateHighScoreWinner: %w", err)
	}
	return nil
}

func (r *pgExerciseRepository) CreateExercise(ctx context.Context, ex *model.Exercise) error {
	query := `
        INSERT INTO exercises (id, title, slug, status, difficulty, base_xp, language_id, badge_rarity, high_score_badge_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		ex.ID, ex.Title, ex.Slug, ex.Status, ex.Difficulty, ex.BaseXP,
		ex.LanguageID, ex.BadgeRarity, ex.HighScoreBadgeID,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Errorf("exercise slug %q already exists: %w", ex.Slug, common.ErrConflict)
		}
		return fmt.Errorf("pgExerciseRepository.CreateExercise: %w", err)
	}
	return nil
}

func (r *pgExerciseRepository) ReplaceTests(ctx context.Context, exerciseID string, tests []model.TestCase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgExerciseRepository.ReplaceTests begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exercise_tests WHERE exercise_id = $1`, exerciseID); err != nil {
		return fmt.Errorf("pgExerciseRepository.ReplaceTests delete: %w", err)
	}
	insert := `INSERT INTO exercise_tests (exercise_id, test_index, input, expected_output) VALUES ($1, $2, $3, $4)`
	for _, tc := range tests {
		if _, err := tx.ExecContext(ctx, insert, exerciseID, tc.Index, tc.Input, tc.ExpectedOutput); err != nil {
			return fmt.Errorf("pgExerciseRepository.ReplaceTests insert: %w", err)
		}
	}
	return tx.Commit()
}

func (r *pgExerciseRepository) IncrementSolveCount(ctx context.Context, exerciseID string) error {
	query := `UPDATE exercises SET
                solve_count = solve_count + 1,
                last_solved_at = CURRENT_TIMESTAMP,
                updated_at = CURRENT_TIMESTAMP
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, exerciseID); err != nil {
		return fmt.Errorf("pgExerciseRepository.IncrementSolveCount: %w", err)
	}
	return nil
}
