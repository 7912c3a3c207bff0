package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/acebuddy/studybuddy/internal/store"
)

// Validation errors surfaced to callers before any side effects happen.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoContent       = errors.New("no content to index")
	ErrNotPDF          = errors.New("only PDF files are allowed")
	ErrPDFExtraction   = errors.New("could not extract text from PDF")
)

// UploadResult reports what an upload indexed.
type UploadResult struct {
	DocID      string `json:"doc_id"`
	ChunkCount int    `json:"chunks"`
}

// DocService runs the ingestion path: chunk, embed, persist. Uploads are
// all-or-nothing; a failed embedding discards the whole batch.
type DocService struct {
	dbStore   *store.SQLiteStore
	embedder  EmbeddingClient
	uploadDir string
}

func NewDocService(db *store.SQLiteStore, embedder EmbeddingClient, uploadDir string) *DocService {
	return &DocService{dbStore: db, embedder: embedder, uploadDir: uploadDir}
}

// UploadText chunks and indexes pasted notes for a session.
func (s *DocService) UploadText(ctx context.Context, userID int64, sessionID, title, text string) (*UploadResult, error) {
	if err := s.verifySession(sessionID, userID); err != nil {
		return nil, err
	}

	chunks, err := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: text is empty after cleaning", ErrNoContent)
	}

	return s.indexChunks(ctx, userID, sessionID, title, chunks)
}

// UploadPDF extracts text from a PDF upload, stores the original file and
// indexes the extracted text through the same chunk/embed/persist path as
// plain text.
func (s *DocService) UploadPDF(ctx context.Context, userID int64, sessionID, title, originalName, mimeType string, data []byte) (*UploadResult, error) {
	if err := s.verifySession(sessionID, userID); err != nil {
		return nil, err
	}
	if mimeType != "application/pdf" {
		return nil, ErrNotPDF
	}

	text, err := extractPDFText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFExtraction, err)
	}
	if CollapseWhitespace(text) == "" {
		return nil, ErrPDFExtraction
	}

	chunks, err := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text chunks produced", ErrNoContent)
	}

	result, err := s.indexChunks(ctx, userID, sessionID, title, chunks)
	if err != nil {
		return nil, err
	}

	// The source file and its metadata row are best-effort bookkeeping:
	// the chunks are already committed and retrievable.
	storagePath, err := s.storeOriginal(result.DocID, originalName, data)
	if err != nil {
		log.Printf("Failed to store original PDF for doc %s: %v", result.DocID, err)
	}
	file := &store.DocumentFile{
		UserID:       userID,
		SessionID:    sessionID,
		DocID:        result.DocID,
		Title:        title,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
		StoragePath:  storagePath,
	}
	if err := s.dbStore.CreateDocumentFile(file); err != nil {
		log.Printf("Failed to record file metadata for doc %s: %v", result.DocID, err)
	}

	return result, nil
}

func (s *DocService) verifySession(sessionID string, userID int64) error {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}

// indexChunks embeds a chunk batch and persists one DocumentChunk per chunk
// under a fresh document ID, with 1-based sequence numbers.
func (s *DocService) indexChunks(ctx context.Context, userID int64, sessionID, title string, chunks []string) (*UploadResult, error) {
	embeddings, err := EmbedTexts(ctx, s.embedder, chunks)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding failed: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	docID := uuid.NewString()
	records := make([]store.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		records[i] = store.DocumentChunk{
			UserID:    userID,
			SessionID: sessionID,
			DocID:     docID,
			Title:     title,
			Seq:       i + 1,
			Content:   chunk,
			Embedding: embeddings[i],
		}
	}
	if err := s.dbStore.CreateDocumentChunks(records); err != nil {
		return nil, fmt.Errorf("failed to persist chunks: %w", err)
	}

	log.Printf("Indexed doc %s: %d chunks for session %s", docID, len(records), sessionID)
	return &UploadResult{DocID: docID, ChunkCount: len(records)}, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// storeOriginal writes the uploaded bytes under the uploads dir and returns
// the relative storage path.
func (s *DocService) storeOriginal(docID, originalName string, data []byte) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	safe := strings.ReplaceAll(filepath.Base(originalName), " ", "_")
	if safe == "" || safe == "." {
		safe = "upload.pdf"
	}
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), docID[:8], safe)
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return filepath.ToSlash(path), nil
}
