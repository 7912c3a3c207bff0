package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/acebuddy/studybuddy/internal/config"
)

const (
	// Sampling parameters for buddy replies, tuned for short casual chat.
	chatMaxOutputTokens = 340
	chatTemperature     = 0.6
)

// ChatMessage is one turn passed to the chat-completion model.
type ChatMessage struct {
	Role    string // store.RoleUser / store.RoleAssistant
	Content string
}

// ChatClient produces a completion for a system prompt plus conversation
// turns. Implemented by LLMService, faked in tests.
type ChatClient interface {
	ChatCompletion(ctx context.Context, systemPrompt string, history []ChatMessage) (string, error)
}

// LLMService wraps the Gemini client behind the EmbeddingClient and
// ChatClient interfaces so the pipeline never touches the SDK directly.
type LLMService struct {
	client *genai.Client
}

func NewLLMService() (*LLMService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

// EmbedText converts one text into a vector. A hung upstream call fails the
// enclosing request via the timeout rather than blocking indefinitely.
func (s *LLMService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, config.AppConfig.EmbedTimeout)
	defer cancel()

	em := s.client.EmbeddingModel(config.AppConfig.EmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// ChatCompletion sends the system prompt and conversation turns as a single
// structured request with bounded output length and fixed temperature.
func (s *LLMService) ChatCompletion(ctx context.Context, systemPrompt string, history []ChatMessage) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("conversation history is empty for chat completion")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	ctx, cancel := context.WithTimeout(ctx, config.AppConfig.ChatTimeout)
	defer cancel()

	model := s.client.GenerativeModel(config.AppConfig.ChatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	temp := float32(chatTemperature)
	maxTokens := int32(chatMaxOutputTokens)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	chatSession := model.StartChat()
	for _, msg := range history[:len(history)-1] {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	if responseText.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}
	return responseText.String(), nil
}

// geminiRole maps stored message roles onto the SDK's role names.
func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}
