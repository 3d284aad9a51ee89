package embed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBatchCharBudget is the conservative per-request character ceiling
// (spec.md §4.3: 30,000 chars, well below provider limits).
const DefaultBatchCharBudget = 30_000

// RetryPolicy configures the exponential backoff applied to transient
// embedding failures, grounded on
// original_source/tools/rag_system.py::_get_embedding_with_retry and
// tools/retry.py (base delay, doubling factor, capped attempts).
type RetryPolicy struct {
	BaseDelay  time.Duration
	Factor     float64
	MaxAttempts int
}

// DefaultRetryPolicy matches spec.md §4.3: base 2s, factor 2, up to 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: 2 * time.Second, Factor: 2, MaxAttempts: 3}
}

// TransientError marks an embedding failure as retryable (rate-limit,
// connection, or generic API error categories from spec.md §4.3).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried under RetryPolicy.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// batchByCharBudget groups formatted texts into batches so that no batch's
// total character count exceeds maxChars: if adding the next text would
// overflow the budget, the current batch is flushed first. A single text
// longer than maxChars becomes its own one-item batch (the per-input token
// budget is enforced upstream by chunk oversize splitting, not here).
func batchByCharBudget(texts []string, maxChars int) [][]string {
	if maxChars <= 0 {
		maxChars = DefaultBatchCharBudget
	}
	var batches [][]string
	var cur []string
	curChars := 0

	for _, t := range texts {
		if curChars > 0 && curChars+len(t) > maxChars {
			batches = append(batches, cur)
			cur = nil
			curChars = 0
		}
		cur = append(cur, t)
		curChars += len(t)
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// EmbedBatched embeds texts respecting the per-batch character budget,
// retrying each batch under policy for transient errors, and reporting
// progress the same way the teacher's EmbedWithProgress does.
func EmbedBatched(
	ctx context.Context,
	provider Provider,
	texts []string,
	mode EmbedMode,
	maxChars int,
	policy RetryPolicy,
	progressCh chan<- BatchProgress,
) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batches := batchByCharBudget(texts, maxChars)
	results := make([][]float32, 0, len(texts))
	processed := 0

	for i, batch := range batches {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		embeddings, err := embedWithRetry(ctx, provider, batch, mode, policy)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", i+1, len(batches), err)
		}
		results = append(results, embeddings...)

		processed += len(batch)
		if progressCh != nil {
			progressCh <- BatchProgress{
				BatchIndex:      i + 1,
				TotalBatches:    len(batches),
				ProcessedChunks: processed,
				TotalChunks:     len(texts),
			}
		}
	}

	return results, nil
}

func embedWithRetry(ctx context.Context, provider Provider, texts []string, mode EmbedMode, policy RetryPolicy) ([][]float32, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		embeddings, err := provider.Embed(ctx, texts, mode)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Factor)
	}
	return nil, lastErr
}
