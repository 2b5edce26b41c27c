// Package flow decides which question the chat asks next.
package flow

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Special categories.
const (
	Introduction = "introduction"
	Closing      = "closing"
	Complete     = "complete"
)

//go:embed questions.json
var defaultQuestions []byte

// Category is one block of questions.
type Category struct {
	Transition string              `json:"transition"`
	Questions  []string            `json:"questions"`
	FollowUps  map[string][]string `json:"follow_ups"`
}

// QuestionBank is the immutable question set and the order categories are
// visited in.
type QuestionBank struct {
	Flow                 []string            `json:"conversation_flow"`
	QuestionsPerCategory int                 `json:"questions_per_category"`
	Categories           map[string]Category `json:"categories"`
}

// ParseBank decodes and validates a question bank.
func ParseBank(data []byte) (*QuestionBank, error) {
	var b QuestionBank
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding question bank: %w", err)
	}
	if len(b.Flow) == 0 {
		return nil, errors.New("question bank has an empty conversation flow")
	}
	if b.Flow[0] != Introduction {
		return nil, fmt.Errorf("conversation flow must start with %q, got %q", Introduction, b.Flow[0])
	}
	for _, name := range b.Flow {
		if _, ok := b.Categories[name]; !ok {
			return nil, fmt.Errorf("conversation flow names unknown category %q", name)
		}
	}
	if b.QuestionsPerCategory <= 0 {
		b.QuestionsPerCategory = 3
	}
	return &b, nil
}

var loadDefault = sync.OnceValues(func() (*QuestionBank, error) {
	return ParseBank(defaultQuestions)
})

// DefaultBank returns the built-in question bank.
func DefaultBank() (*QuestionBank, error) {
	return loadDefault()
}

// Questions returns the questions of a category.
func (b *QuestionBank) Questions(category string) []string {
	return b.Categories[category].Questions
}

// IsScored reports whether answers in category feed the analyzers.
func (b *QuestionBank) IsScored(category string) bool {
	if category == Introduction || category == Closing || category == Complete {
		return false
	}
	return slices.Contains(b.Flow, category)
}

func nextUnasked(questions, asked []string) (string, bool) {
	for _, q := range questions {
		if !slices.Contains(asked, q) {
			return q, true
		}
	}
	return "", false
}
