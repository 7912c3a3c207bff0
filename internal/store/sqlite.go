package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB

	// embeddingDim is the vector length every stored chunk must have. When
	// configured as 0 it is pinned from the first successful write, so a
	// model change after data exists still fails loudly.
	embeddingDim int
}

func NewSQLiteStore(dataSourceName string, embeddingDim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, embeddingDim: embeddingDim}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL DEFAULT 'New Chat',
        last_message_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        session_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );
    CREATE INDEX IF NOT EXISTS idx_messages_scope ON messages (user_id, session_id, created_at);

    CREATE TABLE IF NOT EXISTS doc_chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        session_id TEXT NOT NULL,
        doc_id TEXT NOT NULL,
        title TEXT NOT NULL,
        seq INTEGER NOT NULL, -- 1-based position within the document
        content TEXT NOT NULL,
        embedding_json TEXT NOT NULL, -- JSON string of []float32
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );
    CREATE INDEX IF NOT EXISTS idx_doc_chunks_scope ON doc_chunks (user_id, session_id, created_at);

    CREATE TABLE IF NOT EXISTS doc_files (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        session_id TEXT NOT NULL,
        doc_id TEXT NOT NULL,
        title TEXT NOT NULL,
        original_name TEXT NOT NULL DEFAULT '',
        mime_type TEXT NOT NULL DEFAULT '',
        size_bytes INTEGER NOT NULL DEFAULT 0,
        storage_path TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS profiles (
        user_id INTEGER PRIMARY KEY,
        last_mood TEXT NOT NULL DEFAULT 'neutral',
        motivation_level INTEGER NOT NULL DEFAULT 3,
        last_check_in_at DATETIME,
        weak_topics_json TEXT NOT NULL DEFAULT '[]',
        strong_topics_json TEXT NOT NULL DEFAULT '[]',
        exams_json TEXT NOT NULL DEFAULT '[]',
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Session methods
func (s *SQLiteStore) CreateSession(userID int64, title string) (*ChatSession, error) {
	if title == "" {
		title = "New Chat"
	}
	sessionID := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec("INSERT INTO sessions (id, user_id, title, last_message_at, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, userID, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return &ChatSession{ID: sessionID, UserID: userID, Title: title, LastMessageAt: now, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetSessionByID(sessionID string, userID int64) (*ChatSession, error) {
	var session ChatSession
	err := s.db.QueryRow("SELECT id, user_id, title, last_message_at, created_at FROM sessions WHERE id = ? AND user_id = ?", sessionID, userID).
		Scan(&session.ID, &session.UserID, &session.Title, &session.LastMessageAt, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SQLiteStore) GetSessionsByUserID(userID int64) ([]ChatSession, error) {
	rows, err := s.db.Query("SELECT id, user_id, title, last_message_at, created_at FROM sessions WHERE user_id = ? ORDER BY last_message_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var session ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.LastMessageAt, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) RenameSession(sessionID string, userID int64, title string) error {
	res, err := s.db.Exec("UPDATE sessions SET title = ? WHERE id = ? AND user_id = ?", title, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("session not found or not owned by user")
	}
	return nil
}

func (s *SQLiteStore) TouchSession(sessionID string, userID int64) error {
	_, err := s.db.Exec("UPDATE sessions SET last_message_at = ? WHERE id = ? AND user_id = ?", time.Now(), sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to update session last_message_at: %w", err)
	}
	return nil
}

// DeleteSession removes a session and everything scoped to it: messages,
// chunks and file records. Owner-scoped so one user cannot delete another's.
func (s *SQLiteStore) DeleteSession(sessionID string, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM messages WHERE session_id = ? AND user_id = ?",
		"DELETE FROM doc_chunks WHERE session_id = ? AND user_id = ?",
		"DELETE FROM doc_files WHERE session_id = ? AND user_id = ?",
		"DELETE FROM sessions WHERE id = ? AND user_id = ?",
	} {
		if _, err := tx.Exec(stmt, sessionID, userID); err != nil {
			return fmt.Errorf("failed to cascade session delete: %w", err)
		}
	}
	return tx.Commit()
}

// Message methods
func (s *SQLiteStore) CreateMessage(msg *ConversationMessage) error {
	msg.ID = uuid.NewString() // Ensure ID is set
	msg.CreatedAt = time.Now()

	_, err := s.db.Exec("INSERT INTO messages (id, user_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.UserID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessagesBySessionID(sessionID string, userID int64) ([]ConversationMessage, error) {
	query := "SELECT id, user_id, session_id, role, content, created_at FROM messages WHERE session_id = ? AND user_id = ? ORDER BY created_at ASC"
	rows, err := s.db.Query(query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetLastNMessagesBySessionID returns up to n newest messages, newest first.
// Callers that need chronological order reverse the slice.
func (s *SQLiteStore) GetLastNMessagesBySessionID(sessionID string, userID int64, n int) ([]ConversationMessage, error) {
	query := `
        SELECT id, user_id, session_id, role, content, created_at
        FROM messages
        WHERE session_id = ? AND user_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
	rows, err := s.db.Query(query, sessionID, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]ConversationMessage, error) {
	var messages []ConversationMessage
	for rows.Next() {
		var msg ConversationMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DocumentChunk methods

// CreateDocumentChunks inserts a full upload batch in one transaction so a
// failed write never leaves a partially indexed document behind. Every
// embedding is validated against the configured dimension first.
func (s *SQLiteStore) CreateDocumentChunks(chunks []DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("chunk %d has an empty embedding", i+1)
		}
		if s.embeddingDim == 0 {
			s.embeddingDim = len(chunks[i].Embedding)
		}
		if len(chunks[i].Embedding) != s.embeddingDim {
			return fmt.Errorf("chunk %d embedding has dimension %d, expected %d", i+1, len(chunks[i].Embedding), s.embeddingDim)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin chunk insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO doc_chunks (user_id, session_id, doc_id, title, seq, content, embedding_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range chunks {
		embeddingBytes, err := json.Marshal(chunks[i].Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for chunk %d: %w", i+1, err)
		}
		chunks[i].CreatedAt = now
		res, err := stmt.Exec(chunks[i].UserID, chunks[i].SessionID, chunks[i].DocID, chunks[i].Title, chunks[i].Seq, chunks[i].Content, string(embeddingBytes), now)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i+1, err)
		}
		chunks[i].ID, _ = res.LastInsertId()
	}
	return tx.Commit()
}

// GetRecentChunks returns up to limit chunks for the (owner, session) scope,
// newest first. This is the retrieval candidate set: older chunks beyond the
// limit are not searched.
func (s *SQLiteStore) GetRecentChunks(sessionID string, userID int64, limit int) ([]DocumentChunk, error) {
	query := `
        SELECT id, user_id, session_id, doc_id, title, seq, content, embedding_json, created_at
        FROM doc_chunks
        WHERE session_id = ? AND user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `
	rows, err := s.db.Query(query, sessionID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query doc_chunks: %w", err)
	}
	defer rows.Close()

	var chunks []DocumentChunk
	for rows.Next() {
		var chunk DocumentChunk
		var embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.UserID, &chunk.SessionID, &chunk.DocID, &chunk.Title, &chunk.Seq, &chunk.Content, &embeddingJSON, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan doc_chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
			log.Printf("Warning: failed to unmarshal embedding for chunk %d: %v. Chunk skipped from candidates.", chunk.ID, err)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DocumentFile methods
func (s *SQLiteStore) CreateDocumentFile(file *DocumentFile) error {
	file.CreatedAt = time.Now()
	res, err := s.db.Exec("INSERT INTO doc_files (user_id, session_id, doc_id, title, original_name, mime_type, size_bytes, storage_path, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		file.UserID, file.SessionID, file.DocID, file.Title, file.OriginalName, file.MimeType, file.SizeBytes, file.StoragePath, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert doc_file: %w", err)
	}
	file.ID, _ = res.LastInsertId()
	return nil
}

// Profile methods

// GetOrCreateProfile returns the user's profile, creating the default one
// (motivation 3, neutral mood) on first interaction.
func (s *SQLiteStore) GetOrCreateProfile(userID int64) (*StudentProfile, error) {
	profile, err := s.getProfile(userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	_, err = s.db.Exec("INSERT INTO profiles (user_id, last_mood, motivation_level, updated_at) VALUES (?, 'neutral', 3, ?)", userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return s.getProfile(userID)
}

func (s *SQLiteStore) getProfile(userID int64) (*StudentProfile, error) {
	var profile StudentProfile
	var lastCheckIn sql.NullTime
	var weakJSON, strongJSON, examsJSON string
	err := s.db.QueryRow("SELECT user_id, last_mood, motivation_level, last_check_in_at, weak_topics_json, strong_topics_json, exams_json, updated_at FROM profiles WHERE user_id = ?", userID).
		Scan(&profile.UserID, &profile.LastMood, &profile.MotivationLevel, &lastCheckIn, &weakJSON, &strongJSON, &examsJSON, &profile.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	if lastCheckIn.Valid {
		profile.LastCheckInAt = &lastCheckIn.Time
	}
	if err := json.Unmarshal([]byte(weakJSON), &profile.WeakTopics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weak topics: %w", err)
	}
	if err := json.Unmarshal([]byte(strongJSON), &profile.StrongTopics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strong topics: %w", err)
	}
	if err := json.Unmarshal([]byte(examsJSON), &profile.UpcomingExams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exams: %w", err)
	}
	return &profile, nil
}

func (s *SQLiteStore) SaveProfile(profile *StudentProfile) error {
	weakJSON, err := json.Marshal(profile.WeakTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal weak topics: %w", err)
	}
	strongJSON, err := json.Marshal(profile.StrongTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal strong topics: %w", err)
	}
	examsJSON, err := json.Marshal(profile.UpcomingExams)
	if err != nil {
		return fmt.Errorf("failed to marshal exams: %w", err)
	}

	var lastCheckIn interface{}
	if profile.LastCheckInAt != nil {
		lastCheckIn = *profile.LastCheckInAt
	}

	profile.UpdatedAt = time.Now()
	res, err := s.db.Exec("UPDATE profiles SET last_mood = ?, motivation_level = ?, last_check_in_at = ?, weak_topics_json = ?, strong_topics_json = ?, exams_json = ?, updated_at = ? WHERE user_id = ?",
		profile.LastMood, profile.MotivationLevel, lastCheckIn, string(weakJSON), string(strongJSON), string(examsJSON), profile.UpdatedAt, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("profile not found for user %d", profile.UserID)
	}
	return nil
}
