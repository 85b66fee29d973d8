package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"codequest/internal/domain/model"
	"codequest/internal/domain/repository"
	"codequest/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

type RankingService struct {
	submissionRepo repository.SubmissionRepository
	exerciseRepo   repository.ExerciseRepository
	badgeRepo      repository.BadgeRepository
	cache          *redis.Client // optional; nil disables caching
	logger         *slog.Logger
}

func NewRankingService(
	submissionRepo repository.SubmissionRepository,
	exerciseRepo repository.ExerciseRepository,
	badgeRepo repository.BadgeRepository,
	cache *redis.Client,
) *RankingService {
	return &RankingService{
		submissionRepo: submissionRepo,
		exerciseRepo:   exerciseRepo,
		badgeRepo:      badgeRepo,
		cache:          cache,
		logger:         slog.Default().With("module", "ranking"),
	}
}

const (
	RankingMinLimit     = 1
	RankingMaxLimit     = 500
	RankingDefaultLimit = 100
)

type RankingEntry struct {
	Position        int       `json:"position"`
	UserID          string    `json:"user_id"`
	UserName        *string   `json:"user_name,omitempty"`
	SubmissionID    string    `json:"submission_id"`
	FinalScore      float64   `json:"final_score"`
	ComplexityScore float64   `json:"complexity_score"`
	TimeSpentMs     int64     `json:"time_spent_ms"`
	TestScore       float64   `json:"test_score"`
	BonusPoints     float64   `json:"bonus_points"`
	CreatedAt       time.Time `json:"created_at"`
}

type ExerciseRanking struct {
	ExerciseID   string         `json:"exercise_id"`
	TotalEntries int            `json:"total_entries"`
	Entries      []RankingEntry `json:"entries"`
}

// CompareRanked is the three-key leaderboard comparator: final score
// descending, then complexity score descending, then time spent
// ascending. It returns a negative value when a ranks ahead of b.
func CompareRanked(a, b *model.Submission) int {
	if a.FinalScore != b.FinalScore {
		if a.FinalScore > b.FinalScore {
			return -1
		}
		return 1
	}
	ac, bc := complexityOf(a), complexityOf(b)
	if ac != bc {
		if ac > bc {
			return -1
		}
		return 1
	}
	if a.TimeSpentMs != b.TimeSpentMs {
		if a.TimeSpentMs < b.TimeSpentMs {
			return -1
		}
		return 1
	}
	return 0
}

// Score-only submissions carry no complexity score; they tie-break as 0.
func complexityOf(s *model.Submission) float64 {
	if s.ComplexityScore == nil {
		return 0
	}
	return *s.ComplexityScore
}

// RankingFor returns the ordered leaderboard for an exercise. The full
// sorted entry list is cached per exercise; limit and user population
// are applied on the way out.
func (s *RankingService) RankingFor(ctx context.Context, exerciseID string, limit int, populateUser bool) (*ExerciseRanking, error) {
	if limit < RankingMinLimit {
		limit = RankingDefaultLimit
	}
	if limit > RankingMaxLimit {
		limit = RankingMaxLimit
	}

	entries, err := s.rankedEntries(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]RankingEntry, len(entries))
	copy(out, entries)
	if !populateUser {
		for i := range out {
			out[i].UserName = nil
		}
	}

	return &ExerciseRanking{ExerciseID: exerciseID, TotalEntries: total, Entries: out}, nil
}

// PositionOf answers the 1-based rank of a user's accepted submission
// for an exercise; 0 and false mean the user has no qualifying entry.
func (s *RankingService) PositionOf(ctx context.Context, exerciseID, userID string) (int, bool, error) {
	entries, err := s.rankedEntries(ctx, exerciseID)
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Position, true, nil
		}
	}
	return 0, false, nil
}

// SyncHighScore re-derives the top of the ranking after an acceptance
// and transfers the exercise's high-score badge when the holder changed.
// It is a best-effort side effect: every failure is logged and swallowed
// so it can never fail the submission that triggered it. Under races the
// holder may be briefly stale; the next acceptance corrects it.
func (s *RankingService) SyncHighScore(ctx context.Context, exerciseID string) {
	s.invalidate(ctx, exerciseID)

	subs, err := s.submissionRepo.ListAcceptedByExercise(ctx, exerciseID)
	if err != nil {
		s.logger.Error("high score sync: listing accepted submissions failed",
			"exercise_id", exerciseID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}
	sortRanked(subs)
	top := subs[0]

	exercise, err := s.exerciseRepo.FindByID(ctx, exerciseID)
	if err != nil {
		s.logger.Error("high score sync: exercise lookup failed",
			"exercise_id", exerciseID, "error", err)
		return
	}

	if exercise.HighScoreWinnerUserID != nil && *exercise.HighScoreWinnerUserID == top.UserID {
		return // holder unchanged
	}

	if exercise.HighScoreBadgeID != nil {
		badgeID := *exercise.HighScoreBadgeID
		if old := exercise.HighScoreWinnerUserID; old != nil {
			if err := s.badgeRepo.RevokeFromUser(ctx, *old, badgeID); err != nil {
				s.logger.Warn("high score sync: badge revoke failed",
					"exercise_id", exerciseID, "user_id", *old, "error", err)
			}
		}
		if err := s.badgeRepo.GrantToUser(ctx, top.UserID, badgeID); err != nil {
			s.logger.Warn("high score sync: badge grant failed",
				"exercise_id", exerciseID, "user_id", top.UserID, "error", err)
		}
	}

	winner := model.HighScoreWinner{
		UserID:       top.UserID,
		SubmissionID: top.ID,
		FinalScore:   top.FinalScore,
		TimeSpentMs:  top.TimeSpentMs,
	}
	if err := s.exerciseRepo.UpdateHighScoreWinner(ctx, exerciseID, winner); err != nil {
		s.logger.Error("high score sync: persisting winner failed",
			"exercise_id", exerciseID, "error", err)
	}
}

func sortRanked(subs []model.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		return CompareRanked(&subs[i], &subs[j]) < 0
	})
}

func (s *RankingService) rankedEntries(ctx context.Context, exerciseID string) ([]RankingEntry, error) {
	if cached, ok := s.cacheGet(ctx, exerciseID); ok {
		return cached, nil
	}

	subs, err := s.submissionRepo.ListAcceptedByExercise(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	sortRanked(subs)

	entries := make([]RankingEntry, len(subs))
	for i, sub := range subs {
		entries[i] = RankingEntry{
			Position:        i + 1,
			UserID:          sub.UserID,
			UserName:        sub.UserName,
			SubmissionID:    sub.ID,
			FinalScore:      sub.FinalScore,
			ComplexityScore: complexityOf(&sub),
			TimeSpentMs:     sub.TimeSpentMs,
			TestScore:       sub.TestScore,
			BonusPoints:     sub.BonusPoints,
			CreatedAt:       sub.CreatedAt,
		}
	}

	s.cacheSet(ctx, exerciseID, entries)
	return entries, nil
}

func rankingCacheKey(exerciseID string) string {
	return "ranking:exercise:" + exerciseID
}

func (s *RankingService) cacheGet(ctx context.Context, exerciseID string) ([]RankingEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, rankingCacheKey(exerciseID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("ranking cache read failed", "exercise_id", exerciseID, "error", err)
		}
		return nil, false
	}
	var entries []RankingEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("ranking cache decode failed", "exercise_id", exerciseID, "error", err)
		return nil, false
	}
	return entries, true
}

func (s *RankingService) cacheSet(ctx context.Context, exerciseID string, entries []RankingEntry) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ttl := 30 * time.Second
	if config.AppConfig != nil {
		ttl = config.AppConfig.RankingCacheTTL
	}
	if err := s.cache.Set(ctx, rankingCacheKey(exerciseID), raw, ttl).Err(); err != nil {
		s.logger.Warn("ranking cache write failed", "exercise_id", exerciseID, "error", err)
	}
}

func (s *RankingService) invalidate(ctx context.Context, exerciseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, rankingCacheKey(exerciseID)).Err(); err != nil {
		s.logger.Warn("ranking cache invalidation failed", "exercise_id", exerciseID, "error", err)
	}
}
