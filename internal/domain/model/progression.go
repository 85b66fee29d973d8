package model

import "time"

// LevelRule maps a cumulative XP threshold to a level. Rules form an
// ordered set: min_xp is strictly increasing with level.
type LevelRule struct {
	Level int `json:"level"`
	MinXP int `json:"min_xp"`
}

type Season struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Contains reports whether the season's date range covers t.
func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}
