package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"codequest/internal/common"
	"codequest/internal/domain/model"
	"codequest/internal/domain/repository"
	"codequest/internal/platform/config"
	"codequest/internal/platform/runner"
)

// CodeRunner is the sandbox boundary the validation engine talks to.
type CodeRunner interface {
	Execute(ctx context.Context, req runner.ExecRequest) runner.ExecResult
}

type ValidationService struct {
	exerciseRepo repository.ExerciseRepository
	runner       CodeRunner
	logger       *slog.Logger
}

func NewValidationService(exerciseRepo repository.ExerciseRepository, codeRunner CodeRunner) *ValidationService {
	return &ValidationService{
		exerciseRepo: exerciseRepo,
		runner:       codeRunner,
		logger:       slog.Default().With("module", "validation"),
	}
}

type ValidationReport struct {
	Results     []model.TestResult `json:"results"`
	TestScore   float64            `json:"test_score"`
	TotalTests  int                `json:"total_tests"`
	PassedTests int                `json:"passed_tests"`
	FailedTests int                `json:"failed_tests"`
}

const outputMismatchMsg = "output does not match expected output"

// Validate runs user code against every configured test of the exercise.
// All test executions are launched concurrently; the report preserves
// test-index order regardless of completion order. Runner failures are
// folded into failed results, never returned as errors.
func (s *ValidationService) Validate(ctx context.Context, exercise *model.Exercise, code string) (*ValidationReport, error) {
	tests := exercise.Tests
	if len(tests) < model.MinGradableTests {
		return nil, common.Errorf("not enough tests configured for exercise %s: %w", exercise.ID, common.ErrValidation)
	}

	runtimeID, err := s.resolveRuntime(ctx, exercise)
	if err != nil {
		return nil, err
	}

	results := make([]model.TestResult, len(tests))
	var wg sync.WaitGroup
	for i, tc := range tests {
		wg.Add(1)
		go func(i int, tc model.TestCase) {
			defer wg.Done()
			results[i] = s.runTest(ctx, runtimeID, code, i, tc)
		}(i, tc)
	}
	wg.Wait()

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}

	report := &ValidationReport{
		Results:     results,
		TotalTests:  len(tests),
		PassedTests: passed,
		FailedTests: len(tests) - passed,
		TestScore:   round2(float64(passed) / float64(len(tests)) * 100),
	}
	return report, nil
}

func (s *ValidationService) runTest(ctx context.Context, runtimeID, code string, index int, tc model.TestCase) model.TestResult {
	result := model.TestResult{
		TestIndex:      index,
		ExpectedOutput: tc.ExpectedOutput,
	}

	res := s.runner.Execute(ctx, runner.ExecRequest{RuntimeID: runtimeID, Code: code, Stdin: tc.Input})
	if !res.Success {
		msg := "execution failed"
		if res.CompileError != nil {
			msg = *res.CompileError
		} else if res.RuntimeError != nil {
			msg = *res.RuntimeError
		}
		result.Error = &msg
		return result
	}

	result.ActualOutput = res.Stdout
	// Leading/trailing whitespace is trimmed; inner whitespace and
	// case must match exactly.
	if strings.TrimSpace(res.Stdout) == strings.TrimSpace(tc.ExpectedOutput) {
		result.Passed = true
	} else {
		msg := outputMismatchMsg
		result.Error = &msg
	}
	return result
}

func (s *ValidationService) resolveRuntime(ctx context.Context, exercise *model.Exercise) (string, error) {
	if exercise.LanguageID == nil || *exercise.LanguageID == "" {
		if config.AppConfig != nil {
			return config.AppConfig.DefaultRuntime, nil
		}
		return "63", nil
	}
	lang, err := s.exerciseRepo.GetLanguageByID(ctx, *exercise.LanguageID)
	if err != nil {
		return "", common.Errorf("unsupported runtime for exercise %s: %w", exercise.ID, common.ErrValidation)
	}
	return lang.RuntimeID, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
