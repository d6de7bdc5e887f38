package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The seed data must satisfy the same bounds the lifecycle service enforces
// on host edits, or freshly created rooms would start out invalid.
func TestDefaultGames_SettingsWithinBounds(t *testing.T) {
	seen := make(map[string]bool)
	for _, g := range defaultGames {
		assert.False(t, seen[g.ID], "duplicate game id %s", g.ID)
		seen[g.ID] = true

		assert.GreaterOrEqual(t, g.MinPlayers, 2, "%s", g.ID)
		assert.GreaterOrEqual(t, g.MaxPlayers, g.MinPlayers, "%s", g.ID)
		assert.LessOrEqual(t, g.MaxPlayers, 16, "%s", g.ID)
		assert.Contains(t, []string{"easy", "medium", "hard", "mixed"}, g.Difficulty, "%s", g.ID)
		assert.Positive(t, g.QuestionsCount, "%s", g.ID)
		assert.GreaterOrEqual(t, g.TimePerQuestion, 5, "%s", g.ID)
		assert.Contains(t, []string{"multiple-choice", "fill-blank", "flashcard"}, g.Mode, "%s", g.ID)
	}
}

func TestDefaultWords_UsableForQuestions(t *testing.T) {
	meanings := make(map[string]bool)
	perDifficulty := make(map[string]int)
	for _, w := range defaultWords {
		assert.NotEmpty(t, w.Word)
		assert.NotEmpty(t, w.Meaning)
		assert.False(t, meanings[w.Meaning], "duplicate meaning %q would create ambiguous options", w.Meaning)
		meanings[w.Meaning] = true
		perDifficulty[w.Difficulty]++
	}
	// Multiple choice needs a target plus three distractors per difficulty.
	for _, d := range []string{"easy", "medium", "hard"} {
		assert.GreaterOrEqualf(t, perDifficulty[d], 4, "difficulty %s cannot fill four options", d)
	}
}
