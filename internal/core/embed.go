package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/acebuddy/studybuddy/internal/utils"
)

// EmbedConcurrency bounds in-flight calls to the embedding service so bulk
// uploads stay under its rate limits.
const EmbedConcurrency = 3

// EmbeddingClient converts one text into a fixed-length vector. Implemented
// by LLMService against the real embedding model and by fakes in tests.
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbedTexts embeds every input text, preserving input order in the output.
// A fixed pool of workers pulls indices from a shared cursor, so completion
// order never affects result order. Any single failure fails the whole batch;
// partial results are discarded rather than stored inconsistently.
//
// All vectors are L2-normalized before being returned so cosine comparisons
// behave the same regardless of which upload path produced them.
func EmbedTexts(ctx context.Context, client EmbeddingClient, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	workers := EmbedConcurrency
	if workers > len(texts) {
		workers = len(texts)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(texts) {
					return
				}
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					return
				}
				vec, err := client.EmbedText(ctx, texts[i])
				if err != nil {
					errs[i] = err
					cancel() // stop the rest of the batch
					return
				}
				vectors[i] = utils.L2Normalize(vec)
			}
		}()
	}
	wg.Wait()

	// Report the upstream failure rather than the cancellations it caused.
	var failed error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if failed == nil || !errors.Is(err, context.Canceled) {
			failed = fmt.Errorf("embedding failed for text %d of %d: %w", i+1, len(texts), err)
		}
		if !errors.Is(err, context.Canceled) {
			break
		}
	}
	if failed != nil {
		return nil, failed
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("embedding failed: empty vector for text %d of %d", i+1, len(texts))
		}
	}
	return vectors, nil
}
