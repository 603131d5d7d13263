// Package leveling maps relationship XP to levels 1..10.
//
// All functions are pure and total: negative XP is treated as 0 and
// levels below 1 are treated as 1.
package leveling

import (
	"math"

	"dytto/internal/models"
)

// MaxLevel is the highest reachable relationship level
const MaxLevel = 10

// cumulative XP needed to reach levels 1..10
var thresholds = [MaxLevel]int64{0, 5, 12, 22, 36, 54, 78, 108, 145, 190}

// growth of the per-level increment beyond MaxLevel
const overflowGrowth = 1.25

// increments and totals for levels MaxLevel+1 onward, up to the last level
// whose cumulative total fits in an int64
var overflowRequired, overflowCumulative = buildOverflowTables()

func buildOverflowTables() ([]int64, []int64) {
	last := float64(thresholds[MaxLevel-1] - thresholds[MaxLevel-2])
	total := thresholds[MaxLevel-1]
	var required, cumulative []int64
	for n := 1; ; n++ {
		step := math.Floor(last * math.Pow(overflowGrowth, float64(n)))
		if step >= math.MaxInt64 || total > math.MaxInt64-int64(step) {
			return required, cumulative
		}
		total += int64(step)
		required = append(required, int64(step))
		cumulative = append(cumulative, total)
	}
}

var levelColors = [MaxLevel]string{
	"#6b7280", // gray
	"#10b981", // green
	"#84BABF", // teal
	"#8b5cf6", // purple
	"#f59e0b", // amber
	"#ef4444", // red
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#84cc16", // lime
	"#f97316", // orange
}

var levelTitles = [MaxLevel]string{
	"New Connection",
	"Acquaintance",
	"Friend",
	"Good Friend",
	"Close Friend",
	"Best Friend",
	"Confidant",
	"Soul Connection",
	"Life Partner",
	"Soulmate",
}

// achievements unlocked on reaching levels 2..10
var levelAchievements = [MaxLevel]string{
	"",
	"First Connection",
	"Building Bonds",
	"Growing Closer",
	"True Friendship",
	"Deep Connection",
	"Trusted Confidant",
	"Soul Bond",
	"Life Partnership",
	"Perfect Harmony",
}

// MilestoneLevels trigger a milestone quest when reached
var MilestoneLevels = []int{3, 5, 7, 10}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

func clampXP(xp int64) int64 {
	if xp < 0 {
		return 0
	}
	return xp
}

// XPRequiredForLevel returns the XP needed to go from level-1 to level.
// Level 1 needs nothing. Levels too high for int64 saturate at math.MaxInt64.
func XPRequiredForLevel(level int) int64 {
	level = clampLevel(level)
	if level == 1 {
		return 0
	}
	if level <= MaxLevel {
		return thresholds[level-1] - thresholds[level-2]
	}
	if i := level - MaxLevel - 1; i < len(overflowRequired) {
		return overflowRequired[i]
	}
	return math.MaxInt64
}

// CumulativeXPForLevel returns the total XP needed to reach level.
// Levels too high for int64 saturate at math.MaxInt64.
func CumulativeXPForLevel(level int) int64 {
	level = clampLevel(level)
	if level <= MaxLevel {
		return thresholds[level-1]
	}
	if i := level - MaxLevel - 1; i < len(overflowCumulative) {
		return overflowCumulative[i]
	}
	return math.MaxInt64
}

// LevelFromXP returns the highest level whose cumulative XP is <= xp, capped at MaxLevel
func LevelFromXP(xp int64) int {
	xp = clampXP(xp)
	level := 1
	for l := 2; l <= MaxLevel; l++ {
		if thresholds[l-1] > xp {
			break
		}
		level = l
	}
	return level
}

// ProgressWithinLevel reports how far xp is into the given level
func ProgressWithinLevel(xp int64, level int) models.Progress {
	xp = clampXP(xp)
	level = clampLevel(level)

	current := xp - CumulativeXPForLevel(level)
	if current < 0 {
		current = 0
	}
	required := XPRequiredForLevel(level + 1)

	pct := 0.0
	if required > 0 {
		pct = float64(current) / float64(required) * 100
	}
	return models.Progress{
		Current:    current,
		Required:   required,
		Percentage: math.Max(0, math.Min(100, pct)),
	}
}

// LevelColor returns the display color for level; out-of-range values are clamped
func LevelColor(level int) string {
	return levelColors[tableIndex(level)]
}

// LevelTitle returns the display title for level; out-of-range values are clamped
func LevelTitle(level int) string {
	return levelTitles[tableIndex(level)]
}

// AchievementsForLevel lists every achievement unlocked up to and including level
func AchievementsForLevel(level int) []string {
	idx := tableIndex(level)
	out := make([]string, 0, idx)
	for i := 1; i <= idx; i++ {
		out = append(out, levelAchievements[i])
	}
	return out
}

// AchievementForLevel returns the achievement unlocked exactly at level, or ""
func AchievementForLevel(level int) string {
	if level < 2 || level > MaxLevel {
		return ""
	}
	return levelAchievements[level-1]
}

func tableIndex(level int) int {
	if level < 1 {
		return 0
	}
	if level > MaxLevel {
		return MaxLevel - 1
	}
	return level - 1
}

// IsMilestone reports whether reaching level triggers a milestone quest
func IsMilestone(level int) bool {
	for _, m := range MilestoneLevels {
		if m == level {
			return true
		}
	}
	return false
}

// MilestonesCrossed returns the milestone levels in (oldLevel, newLevel], ascending
func MilestonesCrossed(oldLevel, newLevel int) []int {
	var crossed []int
	for _, m := range MilestoneLevels {
		if m > oldLevel && m <= newLevel {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// Describe builds the level snapshot shown to clients
func Describe(xp int64) models.LevelInfo {
	xp = clampXP(xp)
	level := LevelFromXP(xp)
	progress := ProgressWithinLevel(xp, level)
	return models.LevelInfo{
		Level:        level,
		Title:        LevelTitle(level),
		Color:        LevelColor(level),
		XP:           xp,
		Current:      progress.Current,
		Required:     progress.Required,
		Percentage:   progress.Percentage,
		NextLevelAt:  CumulativeXPForLevel(level + 1),
		MaxLevel:     level == MaxLevel,
		Achievements: AchievementsForLevel(level),
	}
}

// LevelRow is one line of the level table
type LevelRow struct {
	Level       int    `json:"level"`
	Title       string `json:"title"`
	Color       string `json:"color"`
	XPRequired  int64  `json:"xp_required"`
	Cumulative  int64  `json:"cumulative_xp"`
	Achievement string `json:"achievement,omitempty"`
	Milestone   bool   `json:"milestone"`
}

// Table returns the full level table for levels 1..MaxLevel
func Table() []LevelRow {
	rows := make([]LevelRow, 0, MaxLevel)
	for l := 1; l <= MaxLevel; l++ {
		rows = append(rows, LevelRow{
			Level:       l,
			Title:       LevelTitle(l),
			Color:       LevelColor(l),
			XPRequired:  XPRequiredForLevel(l),
			Cumulative:  CumulativeXPForLevel(l),
			Achievement: AchievementForLevel(l),
			Milestone:   IsMilestone(l),
		})
	}
	return rows
}
