package core

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/acebuddy/studybuddy/internal/store"
)

// fakeEmbedClient stands in for the embedding service. The embed function is
// swappable per test; topicEmbed is the default. Calls is atomic because the
// embed pool invokes it from several goroutines.
type fakeEmbedClient struct {
	fn    func(text string) ([]float32, error)
	calls atomic.Int64
}

func (f *fakeEmbedClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fn != nil {
		return f.fn(text)
	}
	return topicEmbed(text)
}

// topicEmbed maps text onto a tiny hand-made topic space so similarity
// between related texts is predictable without a real model. The constant
// last component keeps every vector non-zero.
func topicEmbed(text string) ([]float32, error) {
	t := strings.ToLower(text)
	vec := make([]float32, 4)
	if strings.Contains(t, "deadlock") {
		vec[0] = 1
	}
	if strings.Contains(t, "photosynthesis") {
		vec[1] = 1
	}
	if strings.Contains(t, "sorting") {
		vec[2] = 1
	}
	vec[3] = 0.1
	return vec, nil
}

// fakeChatClient records what the prompt builder sent and returns a fixed
// reply or error.
type fakeChatClient struct {
	reply string
	err   error

	lastSystemPrompt string
	lastHistory      []ChatMessage
}

func (f *fakeChatClient) ChatCompletion(_ context.Context, systemPrompt string, history []ChatMessage) (string, error) {
	f.lastSystemPrompt = systemPrompt
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeChunkStore serves a fixed candidate list, trusting the caller's scope
// arguments the way the real store's WHERE clause would.
type fakeChunkStore struct {
	chunks []store.DocumentChunk
}

func (f *fakeChunkStore) GetRecentChunks(sessionID string, userID int64, limit int) ([]store.DocumentChunk, error) {
	var out []store.DocumentChunk
	for _, c := range f.chunks {
		if c.SessionID == sessionID && c.UserID == userID {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
