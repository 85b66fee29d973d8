package service

import (
	"context"
	"sync"
	"time"

	"codequest/internal/common"
	"codequest/internal/domain/model"
	"codequest/internal/platform/runner"
)

// In-memory repository fakes shared by the service tests.

type fakeExerciseRepo struct {
	exercises map[string]*model.Exercise
	tests     map[string][]model.TestCase
	languages map[string]*model.Language
	winners   map[string]model.HighScoreWinner
	solves    map[string]int
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{
		exercises: map[string]*model.Exercise{},
		tests:     map[string][]model.TestCase{},
		languages: map[string]*model.Language{},
		winners:   map[string]model.HighScoreWinner{},
		solves:    map[string]int{},
	}
}

func (f *fakeExerciseRepo) FindByID(_ context.Context, id string) (*model.Exercise, error) {
	ex, ok := f.exercises[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *ex
	return &copied, nil
}

func (f *fakeExerciseRepo) GetTests(_ context.Context, exerciseID string) ([]model.TestCase, error) {
	return f.tests[exerciseID], nil
}

func (f *fakeExerciseRepo) GetLanguageByID(_ context.Context, id string) (*model.Language, error) {
	lang, ok := f.languages[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return lang, nil
}

func (f *fakeExerciseRepo) UpdateHighScoreWinner(_ context.Context, exerciseID string, w model.HighScoreWinner) error {
	f.winners[exerciseID] = w
	ex := f.exercises[exerciseID]
	ex.HighScoreWinnerUserID = &w.UserID
	ex.HighScoreWinnerSubmissionID = &w.SubmissionID
	ex.HighScoreWinnerScore = &w.FinalScore
	ex.HighScoreWinnerTimeMs = &w.TimeSpentMs
	return nil
}

func (f *fakeExerciseRepo) IncrementSolveCount(_ context.Context, exerciseID string) error {
	f.solves[exerciseID]++
	return nil
}

func (f *fakeExerciseRepo) CreateExercise(_ context.Context, ex *model.Exercise) error {
	f.exercises[ex.ID] = ex
	return nil
}

func (f *fakeExerciseRepo) ReplaceTests(_ context.Context, exerciseID string, tests []model.TestCase) error {
	f.tests[exerciseID] = tests
	return nil
}

type fakeSubmissionRepo struct {
	subs      []model.Submission
	usernames map[string]string
	createErr error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{usernames: map[string]string{}}
}

func (f *fakeSubmissionRepo) Create(_ context.Context, sub *model.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeSubmissionRepo) FindByID(_ context.Context, id string) (*model.Submission, error) {
	for i := range f.subs {
		if f.subs[i].ID == id {
			copied := f.subs[i]
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeSubmissionRepo) HasAccepted(_ context.Context, userID, exerciseID string) (bool, error) {
	for _, s := range f.subs {
		if s.UserID == userID && s.ExerciseID == exerciseID && s.Status == model.StatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubmissionRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var out []model.Submission
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return page(out, limit, offset), len(out), nil
}

func (f *fakeSubmissionRepo) ListByExercise(_ context.Context, exerciseID string, limit, offset int) ([]model.Submission, int, error) {
	var out []model.Submission
	for _, s := range f.subs {
		if s.ExerciseID == exerciseID {
			s.Code = nil
			out = append(out, s)
		}
	}
	return page(out, limit, offset), len(out), nil
}

func (f *fakeSubmissionRepo) ListAcceptedByExercise(_ context.Context, exerciseID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, s := range f.subs {
		if s.ExerciseID == exerciseID && s.Status == model.StatusAccepted {
			if name, ok := f.usernames[s.UserID]; ok {
				n := name
				s.UserName = &n
			}
			s.Code = nil
			out = append(out, s)
		}
	}
	return out, nil
}

func page(subs []model.Submission, limit, offset int) []model.Submission {
	if offset >= len(subs) {
		return nil
	}
	subs = subs[offset:]
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return subs
}

type fakeUserRepo struct {
	xp        map[string]int
	levels    map[string]int
	solved    map[string]int
	creditErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{xp: map[string]int{}, levels: map[string]int{}, solved: map[string]int{}}
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return &model.User{ID: id, XPTotal: f.xp[id], Level: f.levels[id], SolvedCount: f.solved[id]}, nil
}

func (f *fakeUserRepo) CreditXP(_ context.Context, userID string, xp int) (int, error) {
	if f.creditErr != nil {
		return 0, f.creditErr
	}
	f.xp[userID] += xp
	return f.xp[userID], nil
}

func (f *fakeUserRepo) SetLevel(_ context.Context, userID string, level int) error {
	f.levels[userID] = level
	return nil
}

func (f *fakeUserRepo) IncrementSolvedCount(_ context.Context, userID string) error {
	f.solved[userID]++
	return nil
}

type fakeProgressionRepo struct {
	rules           []model.LevelRule
	season          *model.Season
	deletedAttempts []string
}

func (f *fakeProgressionRepo) ListLevelRules(_ context.Context) ([]model.LevelRule, error) {
	return f.rules, nil
}

func (f *fakeProgressionRepo) FindActiveSeason(_ context.Context, at time.Time) (*model.Season, error) {
	if f.season != nil && f.season.Contains(at) {
		return f.season, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeProgressionRepo) DeleteAttempt(_ context.Context, userID, exerciseID string) error {
	f.deletedAttempts = append(f.deletedAttempts, userID+"/"+exerciseID)
	return nil
}

type fakeBadgeRepo struct {
	triumph map[string][]string
	granted map[string][]string
	revoked map[string][]string
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{
		triumph: map[string][]string{},
		granted: map[string][]string{},
		revoked: map[string][]string{},
	}
}

func (f *fakeBadgeRepo) GrantToUser(_ context.Context, userID, badgeID string) error {
	f.granted[userID] = append(f.granted[userID], badgeID)
	return nil
}

func (f *fakeBadgeRepo) RevokeFromUser(_ context.Context, userID, badgeID string) error {
	f.revoked[userID] = append(f.revoked[userID], badgeID)
	return nil
}

func (f *fakeBadgeRepo) ListTriumphBadgeIDs(_ context.Context, exerciseID string) ([]string, error) {
	return f.triumph[exerciseID], nil
}

// fakeRunner returns canned results keyed by stdin and records the
// requests it saw.
type fakeRunner struct {
	mu       sync.Mutex
	byStdin  map[string]runner.ExecResult
	requests []runner.ExecRequest
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{byStdin: map[string]runner.ExecResult{}}
}

func (f *fakeRunner) Execute(_ context.Context, req runner.ExecRequest) runner.ExecResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	res, ok := f.byStdin[req.Stdin]
	f.mu.Unlock()
	if !ok {
		return runner.ExecResult{Success: true, Stdout: ""}
	}
	return res
}

func strptr(s string) *string { return &s }
