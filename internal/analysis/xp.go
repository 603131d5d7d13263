package analysis

import (
	"unicode/utf8"

	"dytto/internal/models"
)

// XP award bounds for a single interaction
const (
	MinXPGain = 1
	MaxXPGain = 3
)

// level at or below which a relationship gets the early-growth bonus
const earlyGrowthMaxLevel = 5

// CalculateXPGain awards 1..3 XP: one base point, one per 100 characters
// (up to two), one for positive sentiment and one while the relationship is young.
func CalculateXPGain(content string, sentiment models.Sentiment, level int) int {
	xp := 1

	lengthBonus := utf8.RuneCountInString(content) / 100
	if lengthBonus > 2 {
		lengthBonus = 2
	}
	xp += lengthBonus

	if sentiment == models.SentimentPositive {
		xp++
	}
	if level <= earlyGrowthMaxLevel {
		xp++
	}

	if xp > MaxXPGain {
		return MaxXPGain
	}
	if xp < MinXPGain {
		return MinXPGain
	}
	return xp
}
