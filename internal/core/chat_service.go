package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/acebuddy/studybuddy/internal/store"
)

// ChatTurnResult is what one chat turn returns to the caller.
type ChatTurnResult struct {
	Reply           string `json:"reply"`
	Mood            string `json:"mood"`
	MotivationLevel int    `json:"motivation_level"`
	ContextUsed     bool   `json:"context_used"`
	Intent          string `json:"intent"`
}

// ChatService orchestrates one turn: classify, update profile, persist the
// user message, retrieve context, build the prompt, call the model, format
// and persist the reply. All steps are sequential within the request.
type ChatService struct {
	dbStore    *store.SQLiteStore
	ragService *RAGService
	chatClient ChatClient
}

func NewChatService(db *store.SQLiteStore, rag *RAGService, chat ChatClient) *ChatService {
	return &ChatService{
		dbStore:    db,
		ragService: rag,
		chatClient: chat,
	}
}

func (s *ChatService) GetUserByExternalID(externalUserID string) (*store.User, error) {
	return s.dbStore.GetUserByExternalID(externalUserID)
}

func (s *ChatService) CreateUser(externalUserID, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(externalUserID, passwordHash)
}

// Session operations (thin wrappers keeping handlers off the store).
func (s *ChatService) CreateSession(userID int64, title string) (*store.ChatSession, error) {
	return s.dbStore.CreateSession(userID, title)
}

func (s *ChatService) ListSessions(userID int64) ([]store.ChatSession, error) {
	return s.dbStore.GetSessionsByUserID(userID)
}

func (s *ChatService) RenameSession(sessionID string, userID int64, title string) error {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return s.dbStore.RenameSession(sessionID, userID, title)
}

func (s *ChatService) DeleteSession(sessionID string, userID int64) error {
	return s.dbStore.DeleteSession(sessionID, userID)
}

func (s *ChatService) GetSessionMessages(sessionID string, userID int64) ([]store.ConversationMessage, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.dbStore.GetMessagesBySessionID(sessionID, userID)
}

// ChatTurn handles one user message end to end. The user message and the
// profile update are committed before the model call, so history and state
// stay consistent even when reply generation fails; in that case a fallback
// reply is returned and persisted as the assistant turn.
func (s *ChatService) ChatTurn(ctx context.Context, userID int64, sessionID, message string) (*ChatTurnResult, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	profile, err := s.dbStore.GetOrCreateProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	update := ApplyMessage(profile, message, time.Now())
	if err := s.dbStore.SaveProfile(profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	userMsg := store.ConversationMessage{
		UserID:    userID,
		SessionID: sessionID,
		Role:      store.RoleUser,
		Content:   message,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	// History comes back newest-first; the prompt wants oldest-first. The
	// window includes the message just stored.
	recent, err := s.dbStore.GetLastNMessagesBySessionID(sessionID, userID, HistoryWindow)
	if err != nil {
		log.Printf("Error loading history for session %s: %v. Proceeding without history.", sessionID, err)
		recent = nil
	}
	history := make([]ChatMessage, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, ChatMessage{Role: recent[i].Role, Content: recent[i].Content})
	}
	if len(history) == 0 || history[len(history)-1].Content != message {
		history = append(history, ChatMessage{Role: store.RoleUser, Content: message})
	}

	blocks, err := s.ragService.Retrieve(ctx, userID, sessionID, message, DefaultTopK)
	if err != nil {
		// Retrieval failure degrades to a context-free answer rather than
		// failing the turn.
		log.Printf("Failed to retrieve context for session %s: %v", sessionID, err)
		blocks = nil
	}
	contextText := BuildContextText(blocks)

	systemPrompt := BuildSystemPrompt(profile, contextText, update.Intent)

	reply, err := s.chatClient.ChatCompletion(ctx, systemPrompt, history)
	if err != nil {
		log.Printf("Chat completion failed for session %s: %v", sessionID, err)
		reply = ""
	}
	reply = FormatBuddyReply(reply)

	assistantMsg := store.ConversationMessage{
		UserID:    userID,
		SessionID: sessionID,
		Role:      store.RoleAssistant,
		Content:   reply,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	if err := s.dbStore.TouchSession(sessionID, userID); err != nil {
		log.Printf("Failed to bump last_message_at for session %s: %v", sessionID, err)
	}

	return &ChatTurnResult{
		Reply:           reply,
		Mood:            update.Mood,
		MotivationLevel: profile.MotivationLevel,
		ContextUsed:     len(blocks) > 0,
		Intent:          update.Intent,
	}, nil
}
