// Package quiz turns word-bank entries into playable questions and scores
// answers. It is pure: randomness comes in through the caller's source so
// rounds are reproducible under test.
package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/wordroom/wordroom-server/internal/catalog"
)

// optionCount is the answer plus three distractors.
const optionCount = 4

var ErrNotEnoughWords = errors.New("quiz: not enough words to build questions")

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple-choice"
	TypeFillBlank      QuestionType = "fill-blank"
	TypeFlashcard      QuestionType = "flashcard"
)

// Question is one prompt shown to every player in a round.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Word    string       `json:"word"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
}

// GenerateQuestions builds count questions of the game's mode from the given
// words. Multiple choice needs at least four words for its options.
func GenerateQuestions(words []catalog.Word, mode string, count int, rng *rand.Rand) ([]Question, error) {
	if len(words) == 0 {
		return nil, ErrNotEnoughWords
	}
	if count > len(words) {
		count = len(words)
	}

	switch QuestionType(mode) {
	case TypeMultipleChoice:
		if len(words) < optionCount {
			return nil, ErrNotEnoughWords
		}
		qs := make([]Question, 0, count)
		for _, w := range words[:count] {
			qs = append(qs, multipleChoice(w, words, rng))
		}
		return qs, nil

	case TypeFillBlank:
		qs := make([]Question, 0, count)
		for _, w := range words {
			if w.Example == "" {
				continue
			}
			qs = append(qs, fillBlank(w))
			if len(qs) == count {
				break
			}
		}
		if len(qs) == 0 {
			return nil, ErrNotEnoughWords
		}
		return qs, nil

	case TypeFlashcard:
		qs := make([]Question, 0, count)
		for _, w := range words[:count] {
			qs = append(qs, flashcard(w))
		}
		return qs, nil

	default:
		return nil, fmt.Errorf("quiz: unknown game mode %q", mode)
	}
}

// multipleChoice asks for the meaning of a word among three wrong meanings
// drawn from the rest of the bank.
func multipleChoice(target catalog.Word, all []catalog.Word, rng *rand.Rand) Question {
	others := make([]catalog.Word, 0, len(all)-1)
	for _, w := range all {
		if w.ID != target.ID && w.Meaning != target.Meaning {
			others = append(others, w)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	options := []string{target.Meaning}
	for _, w := range others {
		options = append(options, w.Meaning)
		if len(options) == optionCount {
			break
		}
	}
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return Question{
		ID:      fmt.Sprintf("q_%d", target.ID),
		Type:    TypeMultipleChoice,
		Word:    target.Word,
		Prompt:  fmt.Sprintf("What does %q mean?", target.Word),
		Options: options,
		Answer:  target.Meaning,
	}
}

// fillBlank blanks the word out of its example sentence.
func fillBlank(w catalog.Word) Question {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w.Word))
	prompt := re.ReplaceAllString(w.Example, strings.Repeat("_", 6))
	return Question{
		ID:     fmt.Sprintf("q_%d", w.ID),
		Type:   TypeFillBlank,
		Word:   w.Word,
		Prompt: prompt,
		Answer: w.Word,
	}
}

func flashcard(w catalog.Word) Question {
	return Question{
		ID:     fmt.Sprintf("q_%d", w.ID),
		Type:   TypeFlashcard,
		Word:   w.Word,
		Prompt: w.Word,
		Answer: w.Meaning,
	}
}
