package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codequest/internal/common"
	"codequest/internal/domain/model"
)

type SubmissionRepository interface {
	// Create inserts one immutable submission row. A concurrent second
	// acceptance for the same (user, exercise) trips the partial unique
	// index and is surfaced as common.ErrAlreadyCompleted.
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	HasAccepted(ctx context.Context, userID, exerciseID string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)
	ListByExercise(ctx context.Context, exerciseID string, limit, offset int) ([]model.Submission, int, error)
	// ListAcceptedByExercise returns every accepted submission with a
	// username attached, unordered; the ranking engine sorts them.
	ListAcceptedByExercise(ctx context.Context, exerciseID string) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	testResults, err := json.Marshal(sub.TestResults)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create marshal test results: %w", err)
	}
	var complexity []byte
	if sub.Complexity != nil {
		complexity, err = json.Marshal(sub.Complexity)
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.Create marshal complexity: %w", err)
		}
	}

	query := `INSERT INTO submissions
	            (id, user_id, exercise_id, season_id, status, code, time_spent_ms,
	             test_results, test_score, complexity_score, complexity, bonus_points,
	             final_score, xp_awarded)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ExerciseID, sub.SeasonID, sub.Status, sub.Code, sub.TimeSpentMs,
		testResults, sub.TestScore, sub.ComplexityScore, complexity, sub.BonusPoints,
		sub.FinalScore, sub.XPAwarded,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("accepted submission already exists for this exercise: %w", common.ErrAlreadyCompleted)
		}
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

const submissionColumns = `
    s.id, s.user_id, s.exercise_id, s.season_id, s.status, s.code, s.time_spent_ms,
    s.test_results, s.test_score, s.complexity_score, s.complexity, s.bonus_points,
    s.final_score, s.xp_awarded, s.created_at`

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.Submission, error) {
	sub := &model.Submission{}
	var testResults []byte
	var complexity []byte
	err := scanner.Scan(
		&sub.ID, &sub.UserID, &sub.ExerciseID, &sub.SeasonID, &sub.Status, &sub.Code, &sub.TimeSpentMs,
		&testResults, &sub.TestScore, &sub.ComplexityScore, &complexity, &sub.BonusPoints,
		&sub.FinalScore, &sub.XPAwarded, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(testResults) > 0 {
		if err := json.Unmarshal(testResults, &sub.TestResults); err != nil {
			return nil, fmt.Errorf("unmarshal test results: %w", err)
		}
	}
	if len(complexity) > 0 {
		sub.Complexity = &model.ComplexityMetrics{}
		if err := json.Unmarshal(complexity, sub.Complexity); err != nil {
			return nil, fmt.Errorf("unmarshal complexity: %w", err)
		}
	}
	return sub, nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions s WHERE s.id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) HasAccepted(ctx context.Context, userID, exerciseID string) (bool, error) {
	query := `SELECT EXISTS(
	            SELECT 1 FROM submissions
	            WHERE user_id = $1 AND exercise_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, exerciseID, model.StatusAccepted).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.HasAccepted: %w", err)
	}
	return exists, nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM submissions WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser count: %w", err)
	}

	query := `SELECT` + submissionColumns + `
	          FROM submissions s WHERE s.user_id = $1
	          ORDER BY s.created_at DESC LIMIT $2 OFFSET $3`
	subs, err := r.querySubmissions(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser: %w", err)
	}
	return subs, total, nil
}

func (r *pgSubmissionRepository) ListByExercise(ctx context.Context, exerciseID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM submissions WHERE exercise_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, exerciseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByExercise count: %w", err)
	}

	query := `SELECT` + submissionColumns + `
	          FROM submissions s WHERE s.exercise_id = $1
	          ORDER BY s.created_at DESC LIMIT $2 OFFSET $3`
	subs, err := r.querySubmissions(ctx, query, exerciseID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByExercise: %w", err)
	}
	// Source code is not exposed on exercise-wide listings.
	for i := range subs {
		subs[i].Code = nil
	}
	return subs, total, nil
}

func (r *pgSubmissionRepository) querySubmissions(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) ListAcceptedByExercise(ctx context.Context, exerciseID string) ([]model.Submission, error) {
	query := `SELECT` + submissionColumns + `, u.username
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          WHERE s.exercise_id = $1 AND s.status = $2`
	rows, err := r.db.QueryContext(ctx, query, exerciseID, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedByExercise query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		sub := &model.Submission{}
		var testResults, complexity []byte
		var username string
		err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ExerciseID, &sub.SeasonID, &sub.Status, &sub.Code, &sub.TimeSpentMs,
			&testResults, &sub.TestScore, &sub.ComplexityScore, &complexity, &sub.BonusPoints,
			&sub.FinalScore, &sub.XPAwarded, &sub.CreatedAt, &username,
		)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedByExercise scan: %w", err)
		}
		if len(testResults) > 0 {
			if err := json.Unmarshal(testResults, &sub.TestResults); err != nil {
				return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedByExercise unmarshal: %w", err)
			}
		}
		if len(complexity) > 0 {
			sub.Complexity = &model.ComplexityMetrics{}
			if err := json.Unmarshal(complexity, sub.Complexity); err != nil {
				return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedByExercise unmarshal: %w", err)
			}
		}
		sub.UserName = &username
		sub.Code = nil
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
