package grading

import (
	"sort"

	"codequest/internal/domain/model"
)

// LevelFor maps a cumulative XP total to a level: the highest rule whose
// threshold is within reach, or 0 when none qualifies. It is recomputed
// from scratch on every XP credit, so a user's level is always a pure
// function of the current total and the current rule set.
func LevelFor(xpTotal int, rules []model.LevelRule) int {
	sorted := make([]model.LevelRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	level := 0
	for _, rule := range sorted {
		if rule.MinXP <= xpTotal {
			level = rule.Level
		}
	}
	return level
}
