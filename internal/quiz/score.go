package quiz

import "math"

const (
	baseScore    = 100
	maxTimeBonus = 50
	// maxPerQuestion bounds one answer's worth, used for rank percentage.
	maxPerQuestion = baseScore + maxTimeBonus
)

// Score awards a base plus a bonus shrinking linearly with time spent. Wrong
// answers score zero regardless of speed.
func Score(correct bool, timeLimitSec, timeSpentSec int) int {
	if !correct || timeLimitSec <= 0 {
		return 0
	}
	remaining := float64(timeLimitSec-timeSpentSec) / float64(timeLimitSec)
	bonus := math.Max(0, remaining*maxTimeBonus)
	return int(math.Round(baseScore + bonus))
}

// Rank grades a final score against the ceiling for the round length.
func Rank(score, totalQuestions int) string {
	if totalQuestions <= 0 {
		return "none"
	}
	pct := float64(score) / float64(totalQuestions*maxPerQuestion) * 100
	switch {
	case pct >= 90:
		return "excellent"
	case pct >= 75:
		return "great"
	case pct >= 60:
		return "good"
	case pct >= 50:
		return "average"
	default:
		return "keep-practicing"
	}
}
