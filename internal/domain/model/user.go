package model

import "time"

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	XPTotal     int       `json:"xp_total"` // monotonically non-decreasing
	Level       int       `json:"level"`    // derived from XPTotal and the level rules
	SolvedCount int       `json:"solved_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
