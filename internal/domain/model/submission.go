package model

import "time"

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "PENDING"
	StatusAccepted SubmissionStatus = "ACCEPTED"
	StatusRejected SubmissionStatus = "REJECTED"
)

// AcceptanceThreshold is the final score at or above which a submission
// is accepted.
const AcceptanceThreshold = 60.0

// Submission is one grading attempt. Rows are append-only: a submission
// is never updated after creation, and a partial unique index on
// (user_id, exercise_id) WHERE status = 'ACCEPTED' guarantees at most
// one acceptance per pair.
type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ExerciseID  string           `json:"exercise_id"`
	SeasonID    *string          `json:"season_id,omitempty"`
	Status      SubmissionStatus `json:"status"`
	Code        *string          `json:"code,omitempty"`
	TimeSpentMs int64            `json:"time_spent_ms"`

	TestResults     []TestResult       `json:"test_results,omitempty"`
	TestScore       float64            `json:"test_score"`       // 0..100
	ComplexityScore *float64           `json:"complexity_score"` // nil on the score-only path
	Complexity      *ComplexityMetrics `json:"complexity_metrics,omitempty"`
	BonusPoints     float64            `json:"bonus_points"` // 0..20
	FinalScore      float64            `json:"final_score"`  // min(100, test_score+bonus_points)
	XPAwarded       int                `json:"xp_awarded"`

	CreatedAt time.Time `json:"created_at"`

	UserName *string `json:"user_name,omitempty"` // display only
}

type TestResult struct {
	TestIndex      int     `json:"test_index"`
	Passed         bool    `json:"passed"`
	ActualOutput   string  `json:"actual_output"`
	ExpectedOutput string  `json:"expected_output"`
	Error          *string `json:"error,omitempty"`
}

type ComplexityMetrics struct {
	CyclomaticComplexity int  `json:"cyclomatic_complexity"`
	LinesOfCode          int  `json:"lines_of_code"`
	MaxNestingDepth      int  `json:"max_nesting_depth"`
	HasRecursion         bool `json:"has_recursion"`
}
