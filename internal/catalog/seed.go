package catalog

import (
	"context"

	"go.uber.org/zap"
)

// defaultGames is written once on first boot.
var defaultGames = []Game{
	{
		ID:              "word_match",
		Name:            "Word Match",
		Description:     "Match words with their meanings in this fun vocabulary game.",
		Mode:            "multiple-choice",
		IsActive:        true,
		MinPlayers:      2,
		MaxPlayers:      12,
		QuestionsCount:  10,
		TimePerQuestion: 20,
		Difficulty:      "easy",
	},
	{
		ID:              "fill_blank",
		Name:            "Fill the Blank",
		Description:     "Complete the sentence with the missing word.",
		Mode:            "fill-blank",
		IsActive:        true,
		MinPlayers:      2,
		MaxPlayers:      8,
		QuestionsCount:  8,
		TimePerQuestion: 30,
		Difficulty:      "medium",
	},
	{
		ID:              "flashcards",
		Name:            "Flashcards",
		Description:     "Race through flashcards and remember the meanings.",
		Mode:            "flashcard",
		IsActive:        true,
		MinPlayers:      2,
		MaxPlayers:      16,
		QuestionsCount:  15,
		TimePerQuestion: 10,
		Difficulty:      "mixed",
	},
}

// defaultWords is a starter bank so a fresh deployment is playable before any
// import has run.
var defaultWords = []Word{
	{Word: "abundant", Meaning: "existing in large quantities", Example: "The region has abundant rainfall in spring.", Category: "general", Difficulty: "easy"},
	{Word: "brisk", Meaning: "quick and energetic", Example: "We took a brisk walk before breakfast.", Category: "general", Difficulty: "easy"},
	{Word: "candid", Meaning: "truthful and straightforward", Example: "She gave a candid answer about the delays.", Category: "general", Difficulty: "easy"},
	{Word: "diligent", Meaning: "showing steady, careful effort", Example: "A diligent student reviews notes every day.", Category: "general", Difficulty: "easy"},
	{Word: "eager", Meaning: "strongly wanting to do something", Example: "The puppy was eager to play outside.", Category: "general", Difficulty: "easy"},
	{Word: "fragile", Meaning: "easily broken or damaged", Example: "Pack the fragile glasses carefully.", Category: "general", Difficulty: "easy"},
	{Word: "generous", Meaning: "willing to give more than expected", Example: "A generous donor funded the library.", Category: "general", Difficulty: "easy"},
	{Word: "hollow", Meaning: "having empty space inside", Example: "The owl nested in a hollow tree.", Category: "general", Difficulty: "easy"},
	{Word: "ambiguous", Meaning: "open to more than one interpretation", Example: "The instructions were ambiguous about the deadline.", Category: "general", Difficulty: "medium"},
	{Word: "benevolent", Meaning: "kind and wanting to help others", Example: "The benevolent teacher stayed late to help.", Category: "general", Difficulty: "medium"},
	{Word: "concise", Meaning: "brief but complete", Example: "Keep the summary concise and clear.", Category: "general", Difficulty: "medium"},
	{Word: "durable", Meaning: "able to withstand wear", Example: "These boots are durable enough for hiking.", Category: "general", Difficulty: "medium"},
	{Word: "elaborate", Meaning: "detailed and complicated", Example: "They built an elaborate sandcastle.", Category: "general", Difficulty: "medium"},
	{Word: "feasible", Meaning: "possible to do easily", Example: "Is the plan feasible within a month?", Category: "general", Difficulty: "medium"},
	{Word: "meticulous", Meaning: "showing great attention to detail", Example: "The editor was meticulous about punctuation.", Category: "general", Difficulty: "medium"},
	{Word: "reluctant", Meaning: "unwilling and hesitant", Example: "He was reluctant to lend his car.", Category: "general", Difficulty: "medium"},
	{Word: "ephemeral", Meaning: "lasting a very short time", Example: "The fame of the video proved ephemeral.", Category: "general", Difficulty: "hard"},
	{Word: "gregarious", Meaning: "fond of company; sociable", Example: "Gregarious by nature, she knew everyone.", Category: "general", Difficulty: "hard"},
	{Word: "obfuscate", Meaning: "to deliberately make unclear", Example: "The report seemed designed to obfuscate the costs.", Category: "general", Difficulty: "hard"},
	{Word: "pragmatic", Meaning: "dealing with things practically", Example: "She took a pragmatic approach to the budget.", Category: "general", Difficulty: "hard"},
	{Word: "quintessential", Meaning: "a perfect example of something", Example: "It is the quintessential seaside town.", Category: "general", Difficulty: "hard"},
	{Word: "ubiquitous", Meaning: "present everywhere", Example: "Phones are ubiquitous in the classroom.", Category: "general", Difficulty: "hard"},
}

// Seed populates empty tables; a non-empty table is left alone so imports and
// manual edits survive restarts.
func (c *Catalog) Seed(ctx context.Context) error {
	var games int64
	if err := c.db.WithContext(ctx).Model(&Game{}).Count(&games).Error; err != nil {
		return err
	}
	if games == 0 {
		if err := c.db.WithContext(ctx).Create(&defaultGames).Error; err != nil {
			return err
		}
		c.log.Info("seeded game catalog", zap.Int("games", len(defaultGames)))
	}

	var words int64
	if err := c.db.WithContext(ctx).Model(&Word{}).Count(&words).Error; err != nil {
		return err
	}
	if words == 0 {
		if err := c.db.WithContext(ctx).Create(&defaultWords).Error; err != nil {
			return err
		}
		c.log.Info("seeded word bank", zap.Int("words", len(defaultWords)))
	}
	return nil
}
