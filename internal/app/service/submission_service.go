package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"codequest/internal/app/grading"
	"codequest/internal/common"
	"codequest/internal/domain/model"
	"codequest/internal/domain/repository"

	"github.com/google/uuid"
)

// SubmissionService orchestrates the end-to-end grading of a submission:
// guard, validation, complexity analysis, score fusion, XP, persistence
// and the post-acceptance side effects.
type SubmissionService struct {
	submissionRepo  repository.SubmissionRepository
	exerciseRepo    repository.ExerciseRepository
	userRepo        repository.UserRepository
	progressionRepo repository.ProgressionRepository
	badgeRepo       repository.BadgeRepository
	validation      *ValidationService
	ranking         *RankingService
	logger          *slog.Logger
	now             func() time.Time
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	exerciseRepo repository.ExerciseRepository,
	userRepo repository.UserRepository,
	progressionRepo repository.ProgressionRepository,
	badgeRepo repository.BadgeRepository,
	validation *ValidationService,
	ranking *RankingService,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo:  submissionRepo,
		exerciseRepo:    exerciseRepo,
		userRepo:        userRepo,
		progressionRepo: progressionRepo,
		badgeRepo:       badgeRepo,
		validation:      validation,
		ranking:         ranking,
		logger:          slog.Default().With("module", "submission"),
		now:             time.Now,
	}
}

type CreateSubmissionRequest struct {
	ExerciseID  string   `json:"exercise_id"`
	Code        *string  `json:"code,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	TimeSpentMs int64    `json:"time_spent_ms"`
}

// CreateSubmission grades one submission attempt. The submission row is
// persisted whether it is accepted or rejected; only acceptance triggers
// XP credit, badges, attempt cleanup and the high-score transfer, each
// independently best-effort.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if req.ExerciseID == "" {
		return nil, common.Errorf("exercise id is required: %w", common.ErrValidation)
	}

	// Fail-fast guard; the partial unique index catches the race this
	// check-then-act cannot.
	accepted, err := s.submissionRepo.HasAccepted(ctx, userID, req.ExerciseID)
	if err != nil {
		return nil, common.Errorf("failed to check prior acceptance: %w", err)
	}
	if accepted {
		return nil, common.ErrAlreadyCompleted
	}

	exercise, err := s.exerciseRepo.FindByID(ctx, req.ExerciseID)
	if err != nil {
		return nil, common.Errorf("exercise lookup failed: %w", err)
	}
	if exercise.Status != model.ExercisePublished {
		return nil, common.Errorf("exercise is not published: %w", common.ErrValidation)
	}
	exercise.Tests, err = s.exerciseRepo.GetTests(ctx, exercise.ID)
	if err != nil {
		return nil, common.Errorf("failed to load exercise tests: %w", err)
	}
	if len(exercise.Tests) < model.MinGradableTests {
		return nil, common.Errorf("not enough tests configured for exercise %s: %w", exercise.ID, common.ErrValidation)
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		ExerciseID:  exercise.ID,
		TimeSpentMs: max64(0, req.TimeSpentMs),
		CreatedAt:   s.now(),
	}

	// Optional season linkage; grading proceeds without one.
	if season, err := s.progressionRepo.FindActiveSeason(ctx, s.now()); err == nil {
		sub.SeasonID = &season.ID
	} else if !errors.Is(err, common.ErrNotFound) {
		s.logger.Warn("active season lookup failed", "error", err)
	}

	if err := s.grade(ctx, exercise, req, sub); err != nil {
		return nil, err
	}

	sub.Status = model.StatusRejected
	if sub.FinalScore >= model.AcceptanceThreshold {
		sub.Status = model.StatusAccepted
	}

	// XP is computed once at creation, for every submission; it is only
	// credited on acceptance.
	sub.XPAwarded = grading.ApplyRarity(grading.CalculateXP(grading.XPParams{
		BaseXP:      exercise.BaseXP,
		Difficulty:  exercise.Difficulty,
		Score:       sub.FinalScore,
		TimeSpentMs: sub.TimeSpentMs,
	}), exercise.BadgeRarity)

	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		if errors.Is(err, common.ErrAlreadyCompleted) {
			// Lost the acceptance race to a concurrent request.
			return nil, common.ErrAlreadyCompleted
		}
		return nil, common.Errorf("failed to persist submission: %w", err)
	}

	if sub.Status == model.StatusAccepted {
		s.applyAcceptanceSideEffects(ctx, exercise, sub)
	}

	return sub, nil
}

// grade fills the score fields of sub from either the code path (test
// validation + complexity analysis) or the score-only path.
func (s *SubmissionService) grade(ctx context.Context, exercise *model.Exercise, req CreateSubmissionRequest, sub *model.Submission) error {
	if req.Code != nil && strings.TrimSpace(*req.Code) != "" {
		report, err := s.validation.Validate(ctx, exercise, *req.Code)
		if err != nil {
			return err
		}
		analysis := grading.AnalyzeComplexity(*req.Code)

		sub.Code = req.Code
		sub.TestResults = report.Results
		sub.TestScore = report.TestScore
		score := analysis.Score
		sub.ComplexityScore = &score
		metrics := analysis.Metrics
		sub.Complexity = &metrics
		sub.BonusPoints = analysis.BonusPoints
		sub.FinalScore = math.Min(100, report.TestScore+analysis.BonusPoints)
		return nil
	}

	if req.Score != nil {
		score := math.Min(100, math.Max(0, *req.Score))
		sub.TestScore = score
		sub.FinalScore = score
		return nil
	}

	return common.Errorf("either code or score is required: %w", common.ErrValidation)
}

// applyAcceptanceSideEffects runs the post-acceptance updates. Each is
// independently best-effort: a failure is logged and must not roll back
// the submission or block the others.
func (s *SubmissionService) applyAcceptanceSideEffects(ctx context.Context, exercise *model.Exercise, sub *model.Submission) {
	s.creditXP(ctx, sub)
	s.grantTriumphBadges(ctx, exercise.ID, sub.UserID)

	if err := s.progressionRepo.DeleteAttempt(ctx, sub.UserID, exercise.ID); err != nil {
		s.logger.Warn("attempt cleanup failed", "user_id", sub.UserID, "exercise_id", exercise.ID, "error", err)
	}

	s.ranking.SyncHighScore(ctx, exercise.ID)

	if err := s.userRepo.IncrementSolvedCount(ctx, sub.UserID); err != nil {
		s.logger.Warn("user solved-count update failed", "user_id", sub.UserID, "error", err)
	}
	if err := s.exerciseRepo.IncrementSolveCount(ctx, exercise.ID); err != nil {
		s.logger.Warn("exercise solve-count update failed", "exercise_id", exercise.ID, "error", err)
	}
}

func (s *SubmissionService) creditXP(ctx context.Context, sub *model.Submission) {
	newTotal, err := s.userRepo.CreditXP(ctx, sub.UserID, sub.XPAwarded)
	if err != nil {
		s.logger.Error("xp credit failed", "user_id", sub.UserID, "xp", sub.XPAwarded, "error", err)
		return
	}
	rules, err := s.progressionRepo.ListLevelRules(ctx)
	if err != nil {
		s.logger.Error("level rules lookup failed", "user_id", sub.UserID, "error", err)
		return
	}
	if err := s.userRepo.SetLevel(ctx, sub.UserID, grading.LevelFor(newTotal, rules)); err != nil {
		s.logger.Error("level update failed", "user_id", sub.UserID, "error", err)
	}
}

func (s *SubmissionService) grantTriumphBadges(ctx context.Context, exerciseID, userID string) {
	badgeIDs, err := s.badgeRepo.ListTriumphBadgeIDs(ctx, exerciseID)
	if err != nil {
		s.logger.Warn("triumph badge lookup failed", "exercise_id", exerciseID, "error", err)
		return
	}
	for _, badgeID := range badgeIDs {
		if err := s.badgeRepo.GrantToUser(ctx, userID, badgeID); err != nil {
			s.logger.Warn("triumph badge grant failed", "user_id", userID, "badge_id", badgeID, "error", err)
		}
	}
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.submissionRepo.FindByID(ctx, id)
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, page, pageSize int) ([]model.Submission, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.submissionRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *SubmissionService) ListExerciseSubmissions(ctx context.Context, exerciseID string, page, pageSize int) ([]model.Submission, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.submissionRepo.ListByExercise(ctx, exerciseID, limit, offset)
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
