package grading

import (
	"math"

	"codequest/internal/domain/model"
)

type XPParams struct {
	BaseXP      int
	Difficulty  int     // 1..5, clamped into range
	Score       float64 // 0..100, clamped
	TimeSpentMs int64
}

// CalculateXP maps (base XP, difficulty, correctness, elapsed time) to
// an XP award, before any rarity scaling:
//
//	xp = round(baseXp * diffMult * (0.5 + 0.5*scoreMult) * (1 + speedBonus))
//
// where diffMult grows 1.0→2.0 over difficulties 1..5, scoreMult is the
// score as a fraction, and speedBonus decays linearly from 0.10 (under a
// minute) to 0 (thirty minutes or more).
func CalculateXP(p XPParams) int {
	baseXP := float64(p.BaseXP)
	if baseXP < 0 {
		baseXP = 0
	}

	diffMultiplier := 1 + clamp(float64(p.Difficulty-1), 0, 4)*0.25
	scoreMultiplier := clamp(p.Score/100, 0, 1)
	speedBonus := speedBonusFor(p.TimeSpentMs)

	xp := baseXP * diffMultiplier * (0.5 + 0.5*scoreMultiplier) * (1 + speedBonus)
	return int(math.Round(xp))
}

func speedBonusFor(timeSpentMs int64) float64 {
	if timeSpentMs <= 0 {
		return 0
	}
	minutes := float64(timeSpentMs) / 60000
	switch {
	case minutes <= 1:
		return 0.10
	case minutes >= 30:
		return 0
	default:
		return (30 - minutes) / 30 / 10
	}
}

// RarityMultiplier is the per-exercise scalar applied to computed XP
// based on the exercise's badge rarity tier.
func RarityMultiplier(rarity *model.BadgeRarity) float64 {
	if rarity == nil {
		return 1
	}
	switch *rarity {
	case model.RarityRare:
		return 1.1
	case model.RarityEpic:
		return 1.25
	case model.RarityLegendary:
		return 1.5
	default:
		return 1
	}
}

// ApplyRarity scales an XP award by the exercise's rarity multiplier and
// rounds again; the result is the persisted award.
func ApplyRarity(xp int, rarity *model.BadgeRarity) int {
	return int(math.Round(float64(xp) * RarityMultiplier(rarity)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
