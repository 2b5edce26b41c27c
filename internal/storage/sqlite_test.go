package storage

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/psychtrend/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateSession(Session{ID: id}); err != nil {
		t.Fatalf("CreateSession(%s): %v", id, err)
	}
}

// TestMigrationsIdempotent runs Open twice on the same directory and checks
// the migration is not re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if !slices.Equal(v1, v2) || len(v1) == 0 {
		t.Errorf("migrations changed: %v -> %v", v1, v2)
	}
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (999)"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	_, err = Open(dir)
	if err == nil || !strings.Contains(err.Error(), "newer than this build") {
		t.Errorf("Open error = %v, want newer-schema refusal", err)
	}
}

func TestOpen_RefusesIncompleteSchema(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want string
	}{
		{"missing table", "DROP TABLE reports", "table reports is missing"},
		{"missing column", "ALTER TABLE messages DROP COLUMN content", "messages.content is missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := Open(dir)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, err := s.db.Exec(tt.stmt); err != nil {
				t.Fatalf("%s: %v", tt.stmt, err)
			}
			s.Close()

			_, err = Open(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Open error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCheckSchema_FreshDatabase(t *testing.T) {
	s := openTestStore(t)
	if err := s.checkSchema(); err != nil {
		t.Errorf("checkSchema on a migrated database: %v", err)
	}
	for _, tc := range tableColumns {
		cols, err := s.columns(tc.table)
		if err != nil {
			t.Fatal(err)
		}
		if len(cols) != len(tc.columns) {
			t.Errorf("%s has columns %v, schema list has %v", tc.table, cols, tc.columns)
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_responses_session", "idx_messages_session", "idx_jobs_status_run_after"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	got, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.CurrentCategory != "introduction" || got.IsComplete || len(got.AskedQuestions) != 0 {
		t.Errorf("new session = %+v", got)
	}

	name, cat, idx, n := "Sam", "childhood", 1, 1
	updated, err := s.UpdateSession("s1", SessionUpdate{
		UserName:            &name,
		CurrentCategory:     &cat,
		CategoryIndex:       &idx,
		QuestionsInCategory: &n,
		AskedQuestion:       "What is your earliest memory?",
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.UserName != "Sam" || updated.CurrentCategory != "childhood" || updated.CategoryIndex != 1 {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := s.UpdateSession("s1", SessionUpdate{AskedQuestion: "Who raised you?", Complete: true}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	got, err = s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	want := []string{"What is your earliest memory?", "Who raised you?"}
	if !slices.Equal(got.AskedQuestions, want) {
		t.Errorf("AskedQuestions = %v, want %v", got.AskedQuestions, want)
	}
	if !got.IsComplete || got.UserName != "Sam" {
		t.Errorf("session = %+v", got)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestSessionNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSession("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateSession("nope", SessionUpdate{Complete: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSession = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSession("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSession = %v, want ErrNotFound", err)
	}
}

func TestResponsesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	base := time.Date(2026, 5, 1, 12, 0, 0, 123, time.UTC)
	texts := []string{"I achieved my goal and felt proud", "I'm stressed about work", "ok"}
	for i, text := range texts {
		if err := s.AppendResponse("s1", record.Structure(text, "career", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("AppendResponse: %v", err)
		}
	}

	got, err := s.ListResponses("s1")
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := record.Structure(texts[0], "career", base)
	if got[0].RawText != want.RawText || got[0].SentimentScore != want.SentimentScore ||
		got[0].SentimentCategory != want.SentimentCategory || !got[0].Timestamp.Equal(want.Timestamp) {
		t.Errorf("response = %+v, want %+v", got[0], want)
	}
	if !slices.Equal(got[0].Keywords, want.Keywords) {
		t.Errorf("Keywords = %v, want %v", got[0].Keywords, want.Keywords)
	}
	if got[2].RawText != "ok" {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestListResponses_SkipsMalformed(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	if err := s.AppendResponse("s1", record.Structure("a good day at work", "career", time.Now())); err != nil {
		t.Fatalf("AppendResponse: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO responses (session_id, category, raw_text, timestamp, keywords)
		VALUES ('s1', 'career', 'broken', 'not-a-time', '[]')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO responses (session_id, category, raw_text, timestamp, keywords)
		VALUES ('s1', 'career', 'broken', '2026-01-01T00:00:00Z', '{oops')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.ListResponses("s1")
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(got) != 1 || got[0].RawText != "a good day at work" {
		t.Errorf("responses = %+v", got)
	}
}

func TestMessagesHistory(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	if h, err := s.History("s1"); err != nil || len(h) != 0 || h == nil {
		t.Fatalf("empty History = %#v, %v", h, err)
	}
	if err := s.AppendMessage("s1", RoleAssistant, "Hello! What's your name?"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AppendMessage("s1", RoleUser, "Sam"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	h, err := s.History("s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h) != 2 || h[0].Role != RoleAssistant || h[1].Content != "Sam" {
		t.Errorf("history = %+v", h)
	}
}

func TestReports(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	if _, err := s.GetReport("s1", ReportStandard); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetReport before save = %v, want ErrNotFound", err)
	}

	type summary struct {
		Text string `json:"text"`
	}
	if err := s.SaveReport("s1", ReportStandard, summary{Text: "first"}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := s.SaveReport("s1", ReportStandard, summary{Text: "second"}); err != nil {
		t.Fatalf("SaveReport overwrite: %v", err)
	}

	stored, err := s.GetReport("s1", ReportStandard)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	var got summary
	if err := stored.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Text != "second" {
		t.Errorf("Text = %q, want %q", got.Text, "second")
	}
	if _, err := s.GetReport("s1", ReportEnhanced); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport enhanced = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionAndAll(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")
	createTestSession(t, s, "s2")

	if err := s.AppendResponse("s1", record.Structure("hello there", "career", time.Now())); err != nil {
		t.Fatalf("AppendResponse: %v", err)
	}
	if err := s.AppendMessage("s1", RoleUser, "hello there"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.SaveReport("s1", ReportStandard, map[string]string{"a": "b"}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	if err := s.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if rs, _ := s.ListResponses("s1"); len(rs) != 0 {
		t.Errorf("responses survived delete: %v", rs)
	}
	if _, err := s.GetSession("s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession after delete = %v", err)
	}

	n, err := s.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteAll = %d, want 1", n)
	}
	if list, _ := s.ListSessions(10); len(list) != 0 {
		t.Errorf("sessions after reset: %v", list)
	}
}

func TestSessionUpdateApply(t *testing.T) {
	if !(SessionUpdate{}).IsZero() {
		t.Error("empty update should be zero")
	}
	orig := Session{AskedQuestions: []string{"q1"}}
	next := SessionUpdate{AskedQuestion: "q2"}.Apply(orig)
	if len(orig.AskedQuestions) != 1 {
		t.Errorf("Apply mutated the original: %v", orig.AskedQuestions)
	}
	if !slices.Equal(next.AskedQuestions, []string{"q1", "q2"}) {
		t.Errorf("AskedQuestions = %v", next.AskedQuestions)
	}
}

func TestRecordTurn(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")

	resp := record.Structure("I taught myself to code at night", "career", time.Now())
	cat := "career"
	sess, err := s.RecordTurn("s1", Turn{
		UserMessage: resp.RawText,
		Response:    &resp,
		Update:      SessionUpdate{CurrentCategory: &cat, AskedQuestion: "What came next?"},
		BotMessage:  "What came next?",
	})
	if err != nil {
		t.Fatalf("RecordTurn: %v", err)
	}
	if sess.CurrentCategory != "career" || !slices.Equal(sess.AskedQuestions, []string{"What came next?"}) {
		t.Errorf("session = %+v", sess)
	}

	history, _ := s.History("s1")
	if len(history) != 2 || history[0].Role != RoleUser || history[1].Content != "What came next?" {
		t.Errorf("history = %+v", history)
	}
	if rs, _ := s.ListResponses("s1"); len(rs) != 1 {
		t.Errorf("responses = %d, want 1", len(rs))
	}

	// Unscored turns store messages only.
	if _, err := s.RecordTurn("s1", Turn{UserMessage: "thanks", BotMessage: "Bye"}); err != nil {
		t.Fatalf("RecordTurn without response: %v", err)
	}
	if rs, _ := s.ListResponses("s1"); len(rs) != 1 {
		t.Errorf("responses = %d after unscored turn, want 1", len(rs))
	}

	if _, err := s.RecordTurn("nope", Turn{UserMessage: "hi", BotMessage: "hello"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordTurn unknown session = %v, want ErrNotFound", err)
	}
}

func TestRecordTurn_RollsBackOnFailure(t *testing.T) {
	s := openTestStore(t)
	createTestSession(t, s, "s1")
	before, _ := s.GetSession("s1")

	// Break the response insert so the turn fails after the session update
	// and the user message were written inside the transaction.
	if _, err := s.db.Exec(`DROP TABLE responses`); err != nil {
		t.Fatalf("dropping responses: %v", err)
	}

	resp := record.Structure("I moved cities for a new job", "career", time.Now())
	cat := "relationships"
	_, err := s.RecordTurn("s1", Turn{
		UserMessage: resp.RawText,
		Response:    &resp,
		Update:      SessionUpdate{CurrentCategory: &cat, Complete: true},
		BotMessage:  "Next question",
	})
	if err == nil {
		t.Fatal("RecordTurn succeeded with a missing responses table")
	}

	after, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if after.CurrentCategory != before.CurrentCategory || after.IsComplete {
		t.Errorf("session advanced despite failed turn: %+v", after)
	}
	if history, _ := s.History("s1"); len(history) != 0 {
		t.Errorf("messages survived rollback: %+v", history)
	}
}
