// Package pipeline runs chat turns and builds reports on top of storage, the
// flow controller and the analyzers.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/psychtrend/internal/flow"
	"github.com/kalambet/psychtrend/internal/humanizer"
	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/report"
	"github.com/kalambet/psychtrend/internal/storage"
)

// JobEnhanceReport is the job type queued when a session completes.
const JobEnhanceReport = "enhance_report"

// ErrInsufficientData is returned by EnhancedReport for sessions with too
// few answers.
var ErrInsufficientData = errors.New("need at least 3 responses for report generation")

// Store is the persistence the pipeline needs.
type Store interface {
	CreateSession(s storage.Session) error
	GetSession(id string) (storage.Session, error)
	DeleteSession(id string) error
	DeleteAll() (int, error)
	RecordTurn(id string, t storage.Turn) (storage.Session, error)
	ListResponses(sessionID string) ([]record.Response, error)
	AppendMessage(sessionID, role, content string) error
	History(sessionID string) ([]storage.Message, error)
	SaveReport(sessionID, kind string, v any) error
	GetReport(sessionID, kind string) (storage.StoredReport, error)
	EnqueueJob(job storage.Job) error
}

// Humanizer is the optional LLM layer.
type Humanizer interface {
	Available(ctx context.Context) bool
	Model() string
	Enhance(ctx context.Context, a report.Analysis, r report.Report) report.Enhanced
	NormalizeInput(ctx context.Context, input, category string) (humanizer.Normalized, error)
	EnhanceQuestion(ctx context.Context, answer, category, previous string) (string, error)
}

// Options tune a Service.
type Options struct {
	MinResponses      int  // answers needed for an analysis; default report.DefaultMinResponses
	BackgroundEnhance bool // queue an enhance_report job when a session completes
	NormalizeInput    bool // describe terse answers with the LLM restatement
	RephraseQuestions bool // let the LLM reword in-category questions
	Clock             func() time.Time
}

// Service is the entry point for every chat and report operation. Turns on
// one session are serialized; different sessions run in parallel.
type Service struct {
	store     Store
	flow      *flow.Controller
	humanizer Humanizer
	opts      Options
	locks     keyedMutex
}

// New creates a Service. h may be nil, in which case reports are never
// enhanced.
func New(store Store, ctrl *flow.Controller, h Humanizer, opts Options) *Service {
	if opts.MinResponses <= 0 {
		opts.MinResponses = report.DefaultMinResponses
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{store: store, flow: ctrl, humanizer: h, opts: opts}
}

// Started is the result of StartSession.
type Started struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// Reply is the bot's answer to one chat turn.
type Reply struct {
	SessionID string `json:"session_id"`
	flow.Step
}

// SessionView is a session with its transcript.
type SessionView struct {
	storage.Session
	ResponseCount       int               `json:"response_count"`
	ConversationHistory []storage.Message `json:"conversation_history"`
}

// StartSession creates a session and returns the greeting.
func (s *Service) StartSession(ctx context.Context) (Started, error) {
	now := s.opts.Clock()
	step, u := s.flow.Start()
	sess := u.Apply(storage.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now})

	if err := s.store.CreateSession(sess); err != nil {
		return Started{}, fmt.Errorf("creating session: %w", err)
	}
	if err := s.store.AppendMessage(sess.ID, storage.RoleAssistant, step.Message); err != nil {
		return Started{}, fmt.Errorf("saving greeting: %w", err)
	}
	slog.Info("session started", "session_id", sess.ID)
	return Started{SessionID: sess.ID, CreatedAt: now.UTC(), Message: step.Message}, nil
}

// Chat records one user answer and returns the next question.
func (s *Service) Chat(ctx context.Context, sessionID, text string) (Reply, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	if err := record.Validate(text); err != nil {
		return Reply{SessionID: sessionID, Step: flow.Step{
			Message:    err.Error(),
			Category:   sess.CurrentCategory,
			IsComplete: sess.IsComplete,
		}}, nil
	}

	turn := storage.Turn{UserMessage: text}
	if s.flow.Bank().IsScored(sess.CurrentCategory) {
		resp := record.Structure(text, sess.CurrentCategory, s.opts.Clock())
		if s.opts.NormalizeInput && s.humanizer != nil {
			if n, err := s.humanizer.NormalizeInput(ctx, text, sess.CurrentCategory); err == nil && n.UsedLLM {
				resp.EventDescription = record.EventDescription(n.Normalized)
			}
		}
		turn.Response = &resp
	}

	step, u := s.flow.Next(sess, text)
	step.Message = s.rephrase(ctx, sess, step, text)
	turn.Update = u
	turn.BotMessage = step.Message

	if _, err := s.store.RecordTurn(sessionID, turn); err != nil {
		return Reply{}, fmt.Errorf("saving turn: %w", err)
	}

	if u.Complete && !sess.IsComplete {
		slog.Info("session complete", "session_id", sessionID)
		s.queueEnhancement(sessionID)
	}
	return Reply{SessionID: sessionID, Step: step}, nil
}

// rephrase lets the LLM reword a question asked inside the current
// category. Transitions and closing messages keep their scripted text.
func (s *Service) rephrase(ctx context.Context, before storage.Session, step flow.Step, answer string) string {
	if !s.opts.RephraseQuestions || s.humanizer == nil || step.IsComplete ||
		step.Category != before.CurrentCategory || !s.flow.Bank().IsScored(step.Category) {
		return step.Message
	}
	previous := ""
	if n := len(before.AskedQuestions); n > 0 {
		previous = before.AskedQuestions[n-1]
	}
	q, err := s.humanizer.EnhanceQuestion(ctx, answer, step.Category, previous)
	if err != nil {
		slog.Debug("keeping scripted question", "session_id", before.ID, "error", err)
		return step.Message
	}
	return q
}

type enhancePayload struct {
	SessionID string `json:"session_id"`
}

func (s *Service) queueEnhancement(sessionID string) {
	if !s.opts.BackgroundEnhance || s.humanizer == nil {
		return
	}
	payload, _ := json.Marshal(enhancePayload{SessionID: sessionID})
	job := storage.Job{ID: uuid.NewString(), Type: JobEnhanceReport, PayloadJSON: string(payload)}
	if err := s.store.EnqueueJob(job); err != nil {
		slog.Warn("failed to queue report enhancement", "session_id", sessionID, "error", err)
	}
}

// Session returns the session with its transcript.
func (s *Service) Session(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.store.GetSession(id)
	if err != nil {
		return SessionView{}, fmt.Errorf("loading session %s: %w", id, err)
	}
	history, err := s.store.History(id)
	if err != nil {
		return SessionView{}, fmt.Errorf("loading history: %w", err)
	}
	responses, err := s.store.ListResponses(id)
	if err != nil {
		return SessionView{}, fmt.Errorf("loading responses: %w", err)
	}
	return SessionView{Session: sess, ResponseCount: len(responses), ConversationHistory: history}, nil
}

// Delete removes one session and everything attached to it.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.DeleteSession(id)
}

// Reset removes every session and returns how many there were.
func (s *Service) Reset(ctx context.Context) (int, error) {
	n, err := s.store.DeleteAll()
	if err != nil {
		return 0, fmt.Errorf("resetting store: %w", err)
	}
	slog.Info("all sessions deleted", "count", n)
	return n, nil
}
