package model

import (
	"time"
)

type ExerciseStatus string
type BadgeRarity string

const (
	ExerciseDraft     ExerciseStatus = "DRAFT"
	ExercisePublished ExerciseStatus = "PUBLISHED"
	ExerciseArchived  ExerciseStatus = "ARCHIVED"

	RarityCommon    BadgeRarity = "COMMON"
	RarityRare      BadgeRarity = "RARE"
	RarityEpic      BadgeRarity = "EPIC"
	RarityLegendary BadgeRarity = "LEGENDARY"
)

// MinGradableTests is the number of configured test cases an exercise
// needs before submissions against it can be graded.
const MinGradableTests = 2

type Exercise struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Status      ExerciseStatus `json:"status"`
	Difficulty  int            `json:"difficulty"` // 1..5
	BaseXP      int            `json:"base_xp"`
	LanguageID  *string        `json:"language_id,omitempty"`
	BadgeRarity *BadgeRarity   `json:"badge_rarity,omitempty"`

	// Current high-score attribution. At most one submission per
	// exercise holds the badge at any time; the ranking engine is the
	// only writer of these fields.
	HighScoreBadgeID            *string  `json:"high_score_badge_id,omitempty"`
	HighScoreWinnerUserID       *string  `json:"high_score_winner_user_id,omitempty"`
	HighScoreWinnerSubmissionID *string  `json:"high_score_winner_submission_id,omitempty"`
	HighScoreWinnerScore        *float64 `json:"high_score_winner_score,omitempty"`
	HighScoreWinnerTimeMs       *int64   `json:"high_score_winner_time_ms,omitempty"`

	SolveCount   int        `json:"solve_count"`
	LastSolvedAt *time.Time `json:"last_solved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Tests []TestCase `json:"tests,omitempty"` // hidden from public listings
}

type TestCase struct {
	Index          int    `json:"index"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// HighScoreWinner is the record-holder pointer persisted on an exercise
// after a badge transfer.
type HighScoreWinner struct {
	UserID       string
	SubmissionID string
	FinalScore   float64
	TimeSpentMs  int64
}

type Language struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	RuntimeID string    `json:"runtime_id"` // identifier understood by the code runner
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
