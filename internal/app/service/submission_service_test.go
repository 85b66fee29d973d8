package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codequest/internal/common"
	"codequest/internal/domain/model"
	"codequest/internal/platform/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionFixture struct {
	service   *SubmissionService
	subRepo   *fakeSubmissionRepo
	exRepo    *fakeExerciseRepo
	userRepo  *fakeUserRepo
	progRepo  *fakeProgressionRepo
	badgeRepo *fakeBadgeRepo
	runner    *fakeRunner
}

func newSubmissionFixture() *submissionFixture {
	subRepo := newFakeSubmissionRepo()
	exRepo := newFakeExerciseRepo()
	userRepo := newFakeUserRepo()
	progRepo := &fakeProgressionRepo{rules: []model.LevelRule{
		{Level: 1, MinXP: 0},
		{Level: 2, MinXP: 100},
		{Level: 3, MinXP: 500},
	}}
	badgeRepo := newFakeBadgeRepo()
	fr := newFakeRunner()

	vs := NewValidationService(exRepo, fr)
	rs := NewRankingService(subRepo, exRepo, badgeRepo, nil)
	ss := NewSubmissionService(subRepo, exRepo, userRepo, progRepo, badgeRepo, vs, rs)

	exRepo.exercises["ex-1"] = &model.Exercise{
		ID:         "ex-1",
		Title:      "Two Sum",
		Slug:       "two-sum",
		Status:     model.ExercisePublished,
		Difficulty: 3,
		BaseXP:     100,
	}
	exRepo.tests["ex-1"] = []model.TestCase{
		{Index: 0, Input: "1", ExpectedOutput: "2"},
		{Index: 1, Input: "2", ExpectedOutput: "3"},
	}

	return &submissionFixture{
		service: ss, subRepo: subRepo, exRepo: exRepo,
		userRepo: userRepo, progRepo: progRepo, badgeRepo: badgeRepo, runner: fr,
	}
}

func (f *submissionFixture) passAllTests() {
	f.runner.byStdin["1"] = runner.ExecResult{Success: true, Stdout: "2"}
	f.runner.byStdin["2"] = runner.ExecResult{Success: true, Stdout: "3"}
}

func (f *submissionFixture) failAllTests() {
	f.runner.byStdin["1"] = runner.ExecResult{Success: true, Stdout: "wrong"}
	f.runner.byStdin["2"] = runner.ExecResult{Success: true, Stdout: "wrong"}
}

func TestCreateSubmission_AcceptedCodePath(t *testing.T) {
	f := newSubmissionFixture()
	f.passAllTests()

	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID:  "ex-1",
		Code:        strptr("function add(n) { return n + 1; }"),
		TimeSpentMs: 30_000,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 100.0, sub.TestScore)
	assert.Equal(t, 100.0, sub.FinalScore)
	require.NotNil(t, sub.ComplexityScore)
	assert.Greater(t, sub.BonusPoints, 0.0)
	assert.Equal(t, 165, sub.XPAwarded)
	require.Len(t, sub.TestResults, 2)

	// Acceptance side effects.
	assert.Equal(t, 165, f.userRepo.xp["u1"])
	assert.Equal(t, 2, f.userRepo.levels["u1"])
	assert.Equal(t, 1, f.userRepo.solved["u1"])
	assert.Equal(t, 1, f.exRepo.solves["ex-1"])
	assert.Equal(t, []string{"u1/ex-1"}, f.progRepo.deletedAttempts)
	assert.Equal(t, "u1", f.exRepo.winners["ex-1"].UserID)
}

func TestCreateSubmission_RejectedCodePath(t *testing.T) {
	f := newSubmissionFixture()
	f.failAllTests()

	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID:  "ex-1",
		Code:        strptr("function add(n) { return n; }"),
		TimeSpentMs: 30_000,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, sub.Status)
	assert.Equal(t, 0.0, sub.TestScore)
	assert.Less(t, sub.FinalScore, model.AcceptanceThreshold)

	// Rejections are persisted but trigger no side effects.
	require.Len(t, f.subRepo.subs, 1)
	assert.Zero(t, f.userRepo.xp["u1"])
	assert.Zero(t, f.userRepo.solved["u1"])
	assert.Zero(t, f.exRepo.solves["ex-1"])
	assert.Empty(t, f.exRepo.winners)
}

func TestCreateSubmission_ScoreOnlyPath(t *testing.T) {
	f := newSubmissionFixture()

	score := 72.5
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID:  "ex-1",
		Score:       &score,
		TimeSpentMs: 60_000,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 72.5, sub.TestScore)
	assert.Equal(t, 72.5, sub.FinalScore)
	assert.Nil(t, sub.ComplexityScore)
	assert.Nil(t, sub.Code)
	assert.Empty(t, sub.TestResults)
}

func TestCreateSubmission_ScoreOnlyClamped(t *testing.T) {
	f := newSubmissionFixture()

	score := 150.0
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1",
		Score:      &score,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, sub.FinalScore)
}

func TestCreateSubmission_NeitherCodeNorScore(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{ExerciseID: "ex-1"})
	assert.ErrorIs(t, err, common.ErrValidation)

	// Whitespace-only code does not count as code.
	_, err = f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1",
		Code:       strptr("   \n  "),
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateSubmission_MissingExerciseID(t *testing.T) {
	f := newSubmissionFixture()
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateSubmission_UnknownExercise(t *testing.T) {
	f := newSubmissionFixture()
	score := 80.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "nope", Score: &score,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateSubmission_UnpublishedExercise(t *testing.T) {
	f := newSubmissionFixture()
	f.exRepo.exercises["ex-1"].Status = model.ExerciseDraft

	score := 80.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateSubmission_TooFewTests(t *testing.T) {
	f := newSubmissionFixture()
	f.exRepo.tests["ex-1"] = f.exRepo.tests["ex-1"][:1]

	score := 80.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateSubmission_AlreadyCompleted(t *testing.T) {
	f := newSubmissionFixture()
	f.subRepo.subs = []model.Submission{{
		ID: "prev", UserID: "u1", ExerciseID: "ex-1", Status: model.StatusAccepted,
	}}

	score := 80.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	assert.ErrorIs(t, err, common.ErrAlreadyCompleted)
	require.Len(t, f.subRepo.subs, 1)
}

func TestCreateSubmission_AcceptanceRaceLostAtInsert(t *testing.T) {
	f := newSubmissionFixture()
	f.subRepo.createErr = fmt.Errorf("accepted submission already exists: %w", common.ErrAlreadyCompleted)

	score := 80.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	assert.ErrorIs(t, err, common.ErrAlreadyCompleted)
}

func TestCreateSubmission_XPCreditFailureDoesNotFailSubmission(t *testing.T) {
	f := newSubmissionFixture()
	f.userRepo.creditErr = fmt.Errorf("users table on fire")

	score := 95.0
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, sub.Status)
	// Remaining side effects still ran.
	assert.Equal(t, 1, f.userRepo.solved["u1"])
	assert.Equal(t, 1, f.exRepo.solves["ex-1"])
}

func TestCreateSubmission_TriumphBadgesGranted(t *testing.T) {
	f := newSubmissionFixture()
	f.badgeRepo.triumph["ex-1"] = []string{"badge-a", "badge-b"}

	score := 90.0
	_, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"badge-a", "badge-b"}, f.badgeRepo.granted["u1"])
}

func TestCreateSubmission_SeasonAttached(t *testing.T) {
	f := newSubmissionFixture()
	now := time.Now()
	f.progRepo.season = &model.Season{
		ID: "season-1", Name: "Summer", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour),
	}

	score := 65.0
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	require.NoError(t, err)
	require.NotNil(t, sub.SeasonID)
	assert.Equal(t, "season-1", *sub.SeasonID)
}

func TestCreateSubmission_NoActiveSeason(t *testing.T) {
	f := newSubmissionFixture()

	score := 65.0
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score,
	})
	require.NoError(t, err)
	assert.Nil(t, sub.SeasonID)
}

func TestCreateSubmission_NegativeTimeClamped(t *testing.T) {
	f := newSubmissionFixture()

	score := 70.0
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &score, TimeSpentMs: -500,
	})
	require.NoError(t, err)
	assert.Zero(t, sub.TimeSpentMs)
}

func TestCreateSubmission_ThresholdBoundary(t *testing.T) {
	f := newSubmissionFixture()

	exactly := model.AcceptanceThreshold
	sub, err := f.service.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &exactly,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, sub.Status)

	below := model.AcceptanceThreshold - 0.01
	sub, err = f.service.CreateSubmission(context.Background(), "u2", CreateSubmissionRequest{
		ExerciseID: "ex-1", Score: &below,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, sub.Status)
}

func TestListMySubmissions_Pagination(t *testing.T) {
	f := newSubmissionFixture()
	for i := 0; i < 25; i++ {
		f.subRepo.subs = append(f.subRepo.subs, model.Submission{
			ID: fmt.Sprintf("s%d", i), UserID: "u1", ExerciseID: "ex-1", Status: model.StatusRejected,
		})
	}

	subs, total, err := f.service.ListMySubmissions(context.Background(), "u1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, subs, 10)
	assert.Equal(t, "s10", subs[0].ID)

	// Out-of-range paging inputs fall back to defaults.
	subs, _, err = f.service.ListMySubmissions(context.Background(), "u1", -1, 5000)
	require.NoError(t, err)
	assert.Len(t, subs, 20)
}
