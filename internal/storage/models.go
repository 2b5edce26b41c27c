package storage

import (
	"errors"
	"time"

	"github.com/kalambet/psychtrend/internal/record"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Report kinds.
const (
	ReportStandard = "standard"
	ReportEnhanced = "enhanced"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Session is the conversation state of one user.
type Session struct {
	ID                  string    `json:"session_id"`
	UserName            string    `json:"user_name"`
	CurrentCategory     string    `json:"current_category"`
	CategoryIndex       int       `json:"category_index"`
	QuestionsInCategory int       `json:"questions_in_category"`
	AskedQuestions      []string  `json:"asked_questions"`
	IsComplete          bool      `json:"is_complete"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SessionUpdate is a set of changes to a session. Nil fields are left alone.
type SessionUpdate struct {
	UserName            *string
	CurrentCategory     *string
	CategoryIndex       *int
	QuestionsInCategory *int
	// AskedQuestion, if set, is appended to the asked list.
	AskedQuestion string
	Complete      bool
}

// Turn is everything one chat turn writes. Response is nil for turns
// outside the scored categories.
type Turn struct {
	UserMessage string
	Response    *record.Response
	Update      SessionUpdate
	BotMessage  string
}

// IsZero reports whether the update changes nothing.
func (u SessionUpdate) IsZero() bool {
	return u.UserName == nil && u.CurrentCategory == nil && u.CategoryIndex == nil &&
		u.QuestionsInCategory == nil && u.AskedQuestion == "" && !u.Complete
}

// Apply returns s with u applied. It does not touch UpdatedAt.
func (u SessionUpdate) Apply(s Session) Session {
	if u.UserName != nil {
		s.UserName = *u.UserName
	}
	if u.CurrentCategory != nil {
		s.CurrentCategory = *u.CurrentCategory
	}
	if u.CategoryIndex != nil {
		s.CategoryIndex = *u.CategoryIndex
	}
	if u.QuestionsInCategory != nil {
		s.QuestionsInCategory = *u.QuestionsInCategory
	}
	if u.AskedQuestion != "" {
		s.AskedQuestions = append(append([]string(nil), s.AskedQuestions...), u.AskedQuestion)
	}
	if u.Complete {
		s.IsComplete = true
	}
	return s
}

// Message is one conversation turn.
type Message struct {
	ID        int64     `json:"-"`
	SessionID string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// StoredReport is a serialized report.
type StoredReport struct {
	SessionID  string
	Kind       string
	ReportJSON string
	CreatedAt  time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
