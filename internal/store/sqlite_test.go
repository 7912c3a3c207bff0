package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a fresh on-disk database per test. A file (not
// ":memory:") because database/sql pools connections and each in-memory
// connection would see its own empty database.
func newTestStore(t *testing.T, embeddingDim int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), embeddingDim)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUserAndSession(t *testing.T, s *SQLiteStore) (*User, *ChatSession) {
	t.Helper()
	user, err := s.CreateUser("student-1", "hash")
	require.NoError(t, err)
	session, err := s.CreateSession(user.ID, "OS revision")
	require.NoError(t, err)
	return user, session
}

func TestGetUserByExternalID_NotFoundIsNilNil(t *testing.T) {
	s := newTestStore(t, 0)

	user, err := s.GetUserByExternalID("nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateSession_DefaultTitle(t *testing.T) {
	s := newTestStore(t, 0)
	user, err := s.CreateUser("student-1", "hash")
	require.NoError(t, err)

	session, err := s.CreateSession(user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "New Chat", session.Title)
}

func TestGetSessionByID_ScopedToOwner(t *testing.T) {
	s := newTestStore(t, 0)
	_, session := seedUserAndSession(t, s)
	other, err := s.CreateUser("student-2", "hash")
	require.NoError(t, err)

	got, err := s.GetSessionByID(session.ID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "another user's session must not be visible")
}

func TestGetSessionsByUserID_NewestActivityFirst(t *testing.T) {
	s := newTestStore(t, 0)
	user, first := seedUserAndSession(t, s)
	second, err := s.CreateSession(user.ID, "Databases")
	require.NoError(t, err)

	// Activity on the older session moves it back to the top.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.TouchSession(first.ID, user.ID))

	sessions, err := s.GetSessionsByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestMessageOrdering(t *testing.T) {
	s := newTestStore(t, 0)
	user, session := seedUserAndSession(t, s)

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		msg := ConversationMessage{UserID: user.ID, SessionID: session.ID, Role: role, Content: fmt.Sprintf("m%d", i)}
		require.NoError(t, s.CreateMessage(&msg))
		assert.NotEmpty(t, msg.ID)
	}

	all, err := s.GetMessagesBySessionID(session.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "m0", all[0].Content)
	assert.Equal(t, "m4", all[4].Content)

	last, err := s.GetLastNMessagesBySessionID(session.ID, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "m4", last[0].Content, "newest first")
	assert.Equal(t, "m3", last[1].Content)
}

func TestCreateDocumentChunks_DimensionValidation(t *testing.T) {
	s := newTestStore(t, 3)
	user, session := seedUserAndSession(t, s)

	base := DocumentChunk{UserID: user.ID, SessionID: session.ID, DocID: "d1", Title: "Notes", Seq: 1, Content: "c"}

	bad := base
	bad.Embedding = []float32{1, 2}
	err := s.CreateDocumentChunks([]DocumentChunk{bad})
	assert.ErrorContains(t, err, "dimension 2, expected 3")

	empty := base
	empty.Embedding = nil
	err = s.CreateDocumentChunks([]DocumentChunk{empty})
	assert.ErrorContains(t, err, "empty embedding")

	good := base
	good.Embedding = []float32{1, 2, 3}
	require.NoError(t, s.CreateDocumentChunks([]DocumentChunk{good}))
}

func TestCreateDocumentChunks_PinsDimensionFromFirstWrite(t *testing.T) {
	s := newTestStore(t, 0)
	user, session := seedUserAndSession(t, s)

	first := DocumentChunk{UserID: user.ID, SessionID: session.ID, DocID: "d1", Title: "Notes", Seq: 1, Content: "a", Embedding: []float32{1, 2, 3, 4}}
	require.NoError(t, s.CreateDocumentChunks([]DocumentChunk{first}))

	second := DocumentChunk{UserID: user.ID, SessionID: session.ID, DocID: "d2", Title: "Notes", Seq: 1, Content: "b", Embedding: []float32{1, 2}}
	err := s.CreateDocumentChunks([]DocumentChunk{second})
	assert.ErrorContains(t, err, "expected 4")
}

func TestGetRecentChunks_ScopeAndLimit(t *testing.T) {
	s := newTestStore(t, 0)
	user, session := seedUserAndSession(t, s)
	otherSession, err := s.CreateSession(user.ID, "Other chat")
	require.NoError(t, err)
	other, err := s.CreateUser("student-2", "hash")
	require.NoError(t, err)
	othersSession, err := s.CreateSession(other.ID, "Not yours")
	require.NoError(t, err)

	mk := func(userID int64, sessionID, content string) DocumentChunk {
		return DocumentChunk{UserID: userID, SessionID: sessionID, DocID: "d", Title: "Notes", Seq: 1, Content: content, Embedding: []float32{1, 0}}
	}
	require.NoError(t, s.CreateDocumentChunks([]DocumentChunk{
		mk(user.ID, session.ID, "mine-1"),
		mk(user.ID, session.ID, "mine-2"),
		mk(user.ID, otherSession.ID, "other-session"),
		mk(other.ID, othersSession.ID, "other-user"),
	}))

	chunks, err := s.GetRecentChunks(session.ID, user.ID, 400)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, session.ID, c.SessionID)
		assert.Equal(t, user.ID, c.UserID)
		assert.Equal(t, []float32{1, 0}, c.Embedding)
	}

	limited, err := s.GetRecentChunks(session.ID, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetRecentChunks_NewestFirstWithinBatch(t *testing.T) {
	s := newTestStore(t, 0)
	user, session := seedUserAndSession(t, s)

	batch := make([]DocumentChunk, 3)
	for i := range batch {
		batch[i] = DocumentChunk{UserID: user.ID, SessionID: session.ID, DocID: "d", Title: "Notes", Seq: i + 1, Content: fmt.Sprintf("c%d", i), Embedding: []float32{1}}
	}
	require.NoError(t, s.CreateDocumentChunks(batch))

	chunks, err := s.GetRecentChunks(session.ID, user.ID, 400)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	// Same created_at across the batch, so id DESC breaks the tie.
	assert.Equal(t, "c2", chunks[0].Content)
	assert.Equal(t, "c0", chunks[2].Content)
}

func TestDeleteSession_Cascades(t *testing.T) {
	s := newTestStore(t, 0)
	user, session := seedUserAndSession(t, s)
	keep, err := s.CreateSession(user.ID, "Keep me")
	require.NoError(t, err)

	msg := ConversationMessage{UserID: user.ID, SessionID: session.ID, Role: RoleUser, Content: "hello"}
	require.NoError(t, s.CreateMessage(&msg))
	keptMsg := ConversationMessage{UserID: user.ID, SessionID: keep.ID, Role: RoleUser, Content: "still here"}
	require.NoError(t, s.CreateMessage(&keptMsg))
	require.NoError(t, s.CreateDocumentChunks([]DocumentChunk{
		{UserID: user.ID, SessionID: session.ID, DocID: "d", Title: "Notes", Seq: 1, Content: "c", Embedding: []float32{1}},
	}))
	require.NoError(t, s.CreateDocumentFile(&DocumentFile{UserID: user.ID, SessionID: session.ID, DocID: "d", Title: "Notes"}))

	require.NoError(t, s.DeleteSession(session.ID, user.ID))

	got, err := s.GetSessionByID(session.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, err := s.GetMessagesBySessionID(session.ID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	chunks, err := s.GetRecentChunks(session.ID, user.ID, 400)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The other session is untouched.
	kept, err := s.GetMessagesBySessionID(keep.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestProfileRoundtrip(t *testing.T) {
	s := newTestStore(t, 0)
	user, _ := seedUserAndSession(t, s)

	profile, err := s.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "neutral", profile.LastMood)
	assert.Equal(t, 3, profile.MotivationLevel)
	assert.Nil(t, profile.LastCheckInAt)
	assert.Empty(t, profile.UpcomingExams)

	checkIn := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	examDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	profile.LastMood = "stressed"
	profile.MotivationLevel = 2
	profile.LastCheckInAt = &checkIn
	profile.WeakTopics = []string{"deadlock", "paging"}
	profile.StrongTopics = []string{"sorting"}
	profile.UpcomingExams = []ExamMention{
		{Subject: "Operating Systems", Date: &examDate, Note: "exam on Operating Systems tomorrow"},
		{Subject: "Databases", Note: "exam for Databases"},
	}
	require.NoError(t, s.SaveProfile(profile))

	loaded, err := s.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "stressed", loaded.LastMood)
	assert.Equal(t, 2, loaded.MotivationLevel)
	require.NotNil(t, loaded.LastCheckInAt)
	assert.True(t, loaded.LastCheckInAt.Equal(checkIn))
	assert.Equal(t, []string{"deadlock", "paging"}, loaded.WeakTopics)
	assert.Equal(t, []string{"sorting"}, loaded.StrongTopics)
	require.Len(t, loaded.UpcomingExams, 2)
	assert.Equal(t, "Operating Systems", loaded.UpcomingExams[0].Subject)
	require.NotNil(t, loaded.UpcomingExams[0].Date)
	assert.True(t, loaded.UpcomingExams[0].Date.Equal(examDate))
	assert.Nil(t, loaded.UpcomingExams[1].Date)
}

func TestSaveProfile_UnknownUser(t *testing.T) {
	s := newTestStore(t, 0)

	err := s.SaveProfile(&StudentProfile{UserID: 999})
	assert.ErrorContains(t, err, "profile not found")
}
