package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/acebuddy/studybuddy/internal/store"
	"github.com/acebuddy/studybuddy/internal/utils"
)

const (
	// DefaultTopK is how many chunks ride along as prompt context.
	DefaultTopK = 5

	// RetrievalCandidateLimit bounds the similarity scan to the newest
	// chunks in the session; anything older is not searched.
	RetrievalCandidateLimit = 400

	// Retrieved chunk text is truncated to this many characters when
	// formatted into the context block.
	contextChunkMaxLen = 900
)

// ChunkStore is the slice of the persistence layer the retriever reads from.
type ChunkStore interface {
	GetRecentChunks(sessionID string, userID int64, limit int) ([]store.DocumentChunk, error)
}

// ScoredChunk pairs a candidate chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk store.DocumentChunk
	Score float32
}

// RAGService ranks a session's stored chunks against a query by cosine
// similarity. The per-session chunk set is the vector index; there is no
// separate structure.
type RAGService struct {
	chunks   ChunkStore
	embedder EmbeddingClient
}

func NewRAGService(chunks ChunkStore, embedder EmbeddingClient) *RAGService {
	return &RAGService{chunks: chunks, embedder: embedder}
}

// Retrieve embeds the query once and returns the topK most similar chunks in
// strictly descending score order, ties kept in retrieval order. Results are
// always scoped to the (owner, session) pair; an empty session yields an
// empty result, not an error.
func (s *RAGService) Retrieve(ctx context.Context, userID int64, sessionID, query string, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidates, err := s.chunks.GetRecentChunks(sessionID, userID, RetrievalCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate chunks: %w", err)
	}
	if len(candidates) == 0 {
		return []ScoredChunk{}, nil
	}

	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec = utils.L2Normalize(queryVec)

	scored := make([]ScoredChunk, 0, len(candidates))
	for _, chunk := range candidates {
		scored = append(scored, ScoredChunk{
			Chunk: chunk,
			Score: utils.CosineSimilarity(queryVec, chunk.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// BuildContextText formats retrieved chunks into the labeled context block
// included in the system prompt. An empty input produces an empty string,
// which the prompt builder turns into an explicit no-context notice.
func BuildContextText(blocks []ScoredChunk) string {
	if len(blocks) == 0 {
		return ""
	}

	segments := make([]string, 0, len(blocks))
	for _, b := range blocks {
		text := CollapseWhitespace(b.Chunk.Content)
		if len(text) > contextChunkMaxLen {
			text = text[:contextChunkMaxLen]
		}
		segments = append(segments, fmt.Sprintf("[TITLE:%s | CHUNK:%d]\n%s", b.Chunk.Title, b.Chunk.Seq, text))
	}
	return strings.Join(segments, "\n\n")
}
