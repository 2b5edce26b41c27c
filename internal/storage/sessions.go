package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/sentiment"
)

// --- Sessions ---

const sessionColumns = `id, user_name, current_category, category_index, questions_in_category,
	asked_questions, is_complete, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var asked, createdAt, updatedAt string
	var complete int
	if err := row.Scan(&s.ID, &s.UserName, &s.CurrentCategory, &s.CategoryIndex, &s.QuestionsInCategory,
		&asked, &complete, &createdAt, &updatedAt); err != nil {
		return Session{}, err
	}
	s.IsComplete = complete != 0
	if err := json.Unmarshal([]byte(asked), &s.AskedQuestions); err != nil {
		slog.Warn("storage: malformed asked_questions, treating as empty", "session", s.ID, "error", err)
		s.AskedQuestions = nil
	}
	var err error
	if s.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Session{}, err
	}
	if s.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CreateSession inserts a new session. Missing category defaults to
// "introduction" and timestamps default to now.
func (s *Store) CreateSession(sess Session) error {
	if sess.CurrentCategory == "" {
		sess.CurrentCategory = "introduction"
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	asked, err := json.Marshal(nonNil(sess.AskedQuestions))
	if err != nil {
		return fmt.Errorf("encoding asked questions: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserName, sess.CurrentCategory, sess.CategoryIndex, sess.QuestionsInCategory,
		string(asked), boolInt(sess.IsComplete), formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	return err
}

func (s *Store) GetSession(id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// UpdateSession applies u to the stored session inside one transaction and
// returns the result.
func (s *Store) UpdateSession(id string, u SessionUpdate) (Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, fmt.Errorf("beginning session update: %w", err)
	}
	defer tx.Rollback()

	sess, err := updateSession(tx, id, u)
	if err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("committing session update: %w", err)
	}
	return sess, nil
}

// RecordTurn writes one chat turn atomically: the user's message, the
// scored response if any, the session update and the bot's reply. Either
// all of it lands or none of it does, so a retried turn is never scored
// twice.
func (s *Store) RecordTurn(id string, t Turn) (Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, fmt.Errorf("beginning turn: %w", err)
	}
	defer tx.Rollback()

	sess, err := updateSession(tx, id, t.Update)
	if err != nil {
		return Session{}, err
	}
	if err := insertMessage(tx, id, RoleUser, t.UserMessage); err != nil {
		return Session{}, err
	}
	if t.Response != nil {
		if err := insertResponse(tx, id, *t.Response); err != nil {
			return Session{}, err
		}
	}
	if err := insertMessage(tx, id, RoleAssistant, t.BotMessage); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("committing turn: %w", err)
	}
	return sess, nil
}

// updateSession reads, updates and writes back a session within tx. A zero
// update only touches updated_at.
func updateSession(tx *sql.Tx, id string, u SessionUpdate) (Session, error) {
	sess, err := scanSession(tx.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	sess = u.Apply(sess)
	sess.UpdatedAt = time.Now().UTC()
	asked, err := json.Marshal(nonNil(sess.AskedQuestions))
	if err != nil {
		return Session{}, fmt.Errorf("encoding asked questions: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE sessions SET user_name = ?, current_category = ?, category_index = ?, questions_in_category = ?,
			asked_questions = ?, is_complete = ?, updated_at = ?
		WHERE id = ?`,
		sess.UserName, sess.CurrentCategory, sess.CategoryIndex, sess.QuestionsInCategory,
		string(asked), boolInt(sess.IsComplete), formatTime(sess.UpdatedAt), id,
	); err != nil {
		return Session{}, fmt.Errorf("updating session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recently updated sessions first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

// DeleteSession removes a session with everything attached to it.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"responses", "messages", "reports"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("deleting %s: %w", table, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAll removes every session and returns how many there were. Queued
// jobs are dropped too.
func (s *Store) DeleteAll() (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"responses", "messages", "reports", "jobs"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", table, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// --- Responses ---

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// AppendResponse stores a structured response for a session.
func (s *Store) AppendResponse(sessionID string, r record.Response) error {
	return insertResponse(s.db, sessionID, r)
}

func insertResponse(ex execer, sessionID string, r record.Response) error {
	keywords, err := json.Marshal(nonNil(r.Keywords))
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	_, err = ex.Exec(`
		INSERT INTO responses (session_id, category, raw_text, event_description, timestamp,
			sentiment_score, sentiment_category, keywords, input_quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.Category, r.RawText, r.EventDescription, formatTime(r.Timestamp),
		r.SentimentScore, string(r.SentimentCategory), string(keywords), r.InputQuality,
	)
	if err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}
	return nil
}

// ListResponses returns a session's responses in insertion order. Rows that
// cannot be decoded are skipped with a warning.
func (s *Store) ListResponses(sessionID string) ([]record.Response, error) {
	rows, err := s.db.Query(`
		SELECT id, category, raw_text, event_description, timestamp, sentiment_score,
			sentiment_category, keywords, input_quality
		FROM responses WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []record.Response
	for rows.Next() {
		var (
			id                int64
			r                 record.Response
			ts, cat, keywords string
		)
		if err := rows.Scan(&id, &r.Category, &r.RawText, &r.EventDescription, &ts,
			&r.SentimentScore, &cat, &keywords, &r.InputQuality); err != nil {
			return nil, err
		}
		if r.Timestamp, err = parseTime("timestamp", ts); err != nil {
			slog.Warn("storage: skipping malformed response", "session", sessionID, "id", id, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			slog.Warn("storage: skipping malformed response", "session", sessionID, "id", id, "error", err)
			continue
		}
		r.SentimentCategory = sentiment.Category(cat)
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Messages ---

func (s *Store) AppendMessage(sessionID, role, content string) error {
	return insertMessage(s.db, sessionID, role, content)
}

func insertMessage(ex execer, sessionID, role, content string) error {
	_, err := ex.Exec(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// History returns a session's messages oldest first.
func (s *Store) History(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Message{}
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// --- Reports ---

// SaveReport stores a report, replacing any previous one of the same kind.
func (s *Store) SaveReport(sessionID, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO reports (session_id, kind, report_json, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, kind) DO UPDATE SET report_json = excluded.report_json, created_at = excluded.created_at`,
		sessionID, kind, string(data), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(sessionID, kind string) (StoredReport, error) {
	var r StoredReport
	var createdAt string
	err := s.db.QueryRow(`
		SELECT session_id, kind, report_json, created_at FROM reports WHERE session_id = ? AND kind = ?`,
		sessionID, kind,
	).Scan(&r.SessionID, &r.Kind, &r.ReportJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredReport{}, ErrNotFound
	}
	if err != nil {
		return StoredReport{}, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return StoredReport{}, err
	}
	return r, nil
}

// Decode unmarshals the stored report into v.
func (r StoredReport) Decode(v any) error {
	if err := json.Unmarshal([]byte(r.ReportJSON), v); err != nil {
		return fmt.Errorf("decoding %s report: %w", r.Kind, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
