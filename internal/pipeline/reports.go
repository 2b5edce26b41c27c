package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/report"
	"github.com/kalambet/psychtrend/internal/storage"
)

func (s *Service) load(id string) (storage.Session, []record.Response, error) {
	sess, err := s.store.GetSession(id)
	if err != nil {
		return storage.Session{}, nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	responses, err := s.store.ListResponses(id)
	if err != nil {
		return storage.Session{}, nil, fmt.Errorf("loading responses: %w", err)
	}
	return sess, responses, nil
}

// Analysis runs the analyzers over a session. Sessions with too few answers
// get the insufficient_data placeholder.
func (s *Service) Analysis(ctx context.Context, id string) (report.Analysis, error) {
	sess, responses, err := s.load(id)
	if err != nil {
		return report.Analysis{}, err
	}
	if !report.Sufficient(responses, s.opts.MinResponses) {
		return report.Insufficient(id, len(responses)), nil
	}
	return report.Analyze(id, sess.UserName, responses, s.opts.Clock()), nil
}

// Report builds and stores the deterministic report. It is built from
// whatever answers exist.
func (s *Service) Report(ctx context.Context, id string) (report.Report, error) {
	sess, responses, err := s.load(id)
	if err != nil {
		return report.Report{}, err
	}
	now := s.opts.Clock()
	r := report.Build(report.Analyze(id, sess.UserName, responses, now), now)
	if err := s.store.SaveReport(id, storage.ReportStandard, r); err != nil {
		slog.Warn("failed to store report", "session_id", id, "error", err)
	}
	return r, nil
}

// EnhancedReport returns the stored enhanced report when it covers every
// answer and builds a fresh one otherwise.
func (s *Service) EnhancedReport(ctx context.Context, id string) (report.Enhanced, error) {
	sess, responses, err := s.load(id)
	if err != nil {
		return report.Enhanced{}, err
	}
	if !report.Sufficient(responses, s.opts.MinResponses) {
		return report.Enhanced{}, ErrInsufficientData
	}

	if stored, ok := s.storedEnhanced(id, len(responses)); ok {
		return stored, nil
	}
	return s.enhance(ctx, sess, responses), nil
}

// EnhanceAndStore builds the enhanced report and stores it when the LLM
// contributed to it. The background worker calls this.
func (s *Service) EnhanceAndStore(ctx context.Context, id string) error {
	sess, responses, err := s.load(id)
	if err != nil {
		return err
	}
	if !report.Sufficient(responses, s.opts.MinResponses) {
		return ErrInsufficientData
	}
	e := s.enhance(ctx, sess, responses)
	if !e.LLMEnhanced {
		return errors.New("llm did not produce the report")
	}
	return nil
}

func (s *Service) enhance(ctx context.Context, sess storage.Session, responses []record.Response) report.Enhanced {
	now := s.opts.Clock()
	a := report.Analyze(sess.ID, sess.UserName, responses, now)
	r := report.Build(a, now)
	if s.humanizer == nil {
		return report.Fallback(r)
	}

	e := s.humanizer.Enhance(ctx, a, r)
	if e.LLMEnhanced {
		if err := s.store.SaveReport(sess.ID, storage.ReportEnhanced, e); err != nil {
			slog.Warn("failed to store enhanced report", "session_id", sess.ID, "error", err)
		}
	}
	return e
}

func (s *Service) storedEnhanced(id string, responses int) (report.Enhanced, bool) {
	stored, err := s.store.GetReport(id, storage.ReportEnhanced)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to load stored report", "session_id", id, "error", err)
		}
		return report.Enhanced{}, false
	}
	var e report.Enhanced
	if err := stored.Decode(&e); err != nil {
		slog.Warn("discarding malformed stored report", "session_id", id, "error", err)
		return report.Enhanced{}, false
	}
	return e, e.ResponseCount == responses
}

// LLMStatus reports whether report enhancement is currently possible.
func (s *Service) LLMStatus(ctx context.Context) (available bool, model string) {
	if s.humanizer == nil {
		return false, ""
	}
	return s.humanizer.Available(ctx), s.humanizer.Model()
}

// decodePayload reads the session id out of an enhance_report job.
func decodePayload(payload string) (string, error) {
	var p enhancePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("parsing payload: %w", err)
	}
	if p.SessionID == "" {
		return "", errors.New("payload has no session_id")
	}
	return p.SessionID, nil
}

// RunJob processes one queued job.
func (s *Service) RunJob(ctx context.Context, job storage.Job) error {
	if job.Type != JobEnhanceReport {
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	id, err := decodePayload(job.PayloadJSON)
	if err != nil {
		return err
	}
	return s.EnhanceAndStore(ctx, id)
}
