package flow

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/kalambet/psychtrend/internal/sentiment"
	"github.com/kalambet/psychtrend/internal/storage"
)

// DefaultFollowUpRate is the chance of asking a sentiment-matched follow-up
// instead of the next scripted question.
const DefaultFollowUpRate = 0.3

const (
	defaultGreeting = "Hello! What should I call you?"
	fallbackName    = "Friend"

	doneClosing    = "Thank you for sharing your experiences! Your personalized insight report is ready."
	doneTransition = "Thank you! Your insight report is ready."
	doneAlready    = "Thank you for sharing! Your personalized insight report is now ready."
)

// Step is what the chat shows the user after a turn.
type Step struct {
	Message    string  `json:"message"`
	Category   string  `json:"current_category"`
	IsComplete bool    `json:"is_complete"`
	Progress   float64 `json:"progress"`
}

// Controller walks a session through the question bank. It never writes to
// storage; every decision comes back as a storage.SessionUpdate for the
// caller to apply.
type Controller struct {
	bank         *QuestionBank
	followUpRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a controller whose follow-up draws are determined by seed.
func New(bank *QuestionBank, seed uint64) *Controller {
	return &Controller{
		bank:         bank,
		followUpRate: DefaultFollowUpRate,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// WithFollowUpRate overrides the follow-up probability. Rate is clamped to
// [0, 1].
func (c *Controller) WithFollowUpRate(rate float64) *Controller {
	c.followUpRate = min(max(rate, 0), 1)
	return c
}

// Bank returns the controller's question bank.
func (c *Controller) Bank() *QuestionBank {
	return c.bank
}

func (c *Controller) draw() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

func (c *Controller) pick(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}

func (c *Controller) progress(index int) float64 {
	return float64(index) / float64(len(c.bank.Flow))
}

// Start returns the greeting and the state a new session begins in.
func (c *Controller) Start() (Step, storage.SessionUpdate) {
	first := defaultGreeting
	if qs := c.bank.Questions(Introduction); len(qs) > 0 {
		first = qs[0]
	}
	return Step{Message: first, Category: Introduction}, storage.SessionUpdate{
		CurrentCategory:     ptr(Introduction),
		CategoryIndex:       ptr(0),
		QuestionsInCategory: ptr(1),
		AskedQuestion:       first,
	}
}

// Next decides the reply to userText given the session state before the
// turn.
func (c *Controller) Next(s storage.Session, userText string) (Step, storage.SessionUpdate) {
	flow := c.bank.Flow
	if s.IsComplete || s.CategoryIndex >= len(flow) {
		return Step{Message: doneAlready, Category: Complete, IsComplete: true, Progress: 1},
			storage.SessionUpdate{Complete: !s.IsComplete}
	}

	category := flow[s.CategoryIndex]
	questions := c.bank.Questions(category)
	progress := c.progress(s.CategoryIndex)
	ask := func(msg, asked string) (Step, storage.SessionUpdate) {
		return Step{Message: msg, Category: category, Progress: progress}, storage.SessionUpdate{
			QuestionsInCategory: ptr(s.QuestionsInCategory + 1),
			AskedQuestion:       asked,
		}
	}

	switch category {
	case Introduction:
		switch {
		case s.QuestionsInCategory == 0:
			first := defaultGreeting
			if len(questions) > 0 {
				first = questions[0]
			}
			return ask(first, first)
		case s.QuestionsInCategory == 1 && strings.TrimSpace(userText) != "":
			name := FirstName(userText)
			if len(questions) > 1 {
				step, u := ask(fmt.Sprintf("Nice to meet you, %s! %s", name, questions[1]), questions[1])
				u.UserName = &name
				return step, u
			}
			step, u := c.advance(s)
			u.UserName = &name
			return step, u
		}
		return c.advance(s)

	case Closing:
		if q, ok := nextUnasked(questions, s.AskedQuestions); ok {
			return ask(q, q)
		}
		return Step{Message: doneClosing, Category: Complete, IsComplete: true, Progress: 1}, storage.SessionUpdate{
			CurrentCategory: ptr(Complete),
			CategoryIndex:   ptr(len(flow)),
			Complete:        true,
		}
	}

	if s.QuestionsInCategory > 0 && strings.TrimSpace(userText) != "" && c.draw() < c.followUpRate {
		if q, ok := c.followUp(category, userText); ok && !slices.Contains(s.AskedQuestions, q) {
			return ask(q, q)
		}
	}
	if q, ok := nextUnasked(questions, s.AskedQuestions); ok && s.QuestionsInCategory < c.bank.QuestionsPerCategory {
		return ask(q, q)
	}
	return c.advance(s)
}

// followUp picks a follow-up matching the polarity of the answer, falling
// back to the neutral set.
func (c *Controller) followUp(category, userText string) (string, bool) {
	ups := c.bank.Categories[category].FollowUps
	options := ups[string(sentiment.CategoryOf(sentiment.AnalyzeFast(userText)))]
	if len(options) == 0 {
		options = ups[string(sentiment.Neutral)]
	}
	if len(options) == 0 {
		return "", false
	}
	return options[c.pick(len(options))], true
}

// advance moves to the next category and asks its first question.
func (c *Controller) advance(s storage.Session) (Step, storage.SessionUpdate) {
	flow := c.bank.Flow
	next := s.CategoryIndex + 1
	if next >= len(flow) {
		return Step{Message: doneTransition, Category: Complete, IsComplete: true, Progress: 1}, storage.SessionUpdate{
			CurrentCategory: ptr(Complete),
			CategoryIndex:   ptr(len(flow)),
			Complete:        true,
		}
	}

	category := flow[next]
	transition := c.bank.Categories[category].Transition
	u := storage.SessionUpdate{
		CurrentCategory:     ptr(category),
		CategoryIndex:       ptr(next),
		QuestionsInCategory: ptr(0),
	}

	msg := transition
	if q, ok := nextUnasked(c.bank.Questions(category), s.AskedQuestions); ok {
		u.QuestionsInCategory = ptr(1)
		u.AskedQuestion = q
		msg = strings.TrimSpace(transition + " " + q)
	} else if msg == "" {
		msg = "Let's continue."
	}
	return Step{Message: msg, Category: category, Progress: c.progress(next)}, u
}

// FirstName extracts the name to address the user by.
func FirstName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return fallbackName
	}
	name := strings.Trim(fields[0], ".,!?;:")
	if name == "" {
		return fallbackName
	}
	return name
}

func ptr[T any](v T) *T {
	return &v
}
