package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

type ChatSession struct {
	ID            string    `json:"id"` // UUID
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationMessage is one turn of a session's history. Rows are append-only
// and ordered by CreatedAt; they are never mutated or merged.
type ConversationMessage struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // RoleUser or RoleAssistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentChunk is the unit of retrieval: one bounded slice of an uploaded
// document, scoped to an (owner, session) pair. Seq is 1-based and monotonic
// within a document. Immutable once written.
type DocumentChunk struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	DocID     string    `json:"doc_id"`
	Title     string    `json:"title"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"` // Stored as JSON text in the DB, internal only
	CreatedAt time.Time `json:"created_at"`
}

// DocumentFile records upload metadata for a stored source file.
type DocumentFile struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	SessionID    string    `json:"session_id"`
	DocID        string    `json:"doc_id"`
	Title        string    `json:"title"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	StoragePath  string    `json:"storage_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExamMention is one extracted "exam on X tomorrow" style reference.
type ExamMention struct {
	Subject string     `json:"subject"`
	Date    *time.Time `json:"date,omitempty"`
	Note    string     `json:"note"`
}

// StudentProfile is the per-user conversational state carried across turns.
// One row per user, created lazily on first interaction.
type StudentProfile struct {
	UserID          int64         `json:"user_id"`
	LastMood        string        `json:"last_mood"`
	MotivationLevel int           `json:"motivation_level"` // 1..5
	LastCheckInAt   *time.Time    `json:"last_check_in_at,omitempty"`
	WeakTopics      []string      `json:"weak_topics"`
	StrongTopics    []string      `json:"strong_topics"`
	UpcomingExams   []ExamMention `json:"upcoming_exams"` // newest first, capped at 10
	UpdatedAt       time.Time     `json:"updated_at"`
}
