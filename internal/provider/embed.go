package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// embedBatchSize bounds how many inputs go into a single upstream call.
const embedBatchSize = 16

// EmbedAll embeds texts in bounded concurrent batches, preserving input
// order. Returns nil (not error) for empty input.
func EmbedAll(ctx context.Context, p Provider, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid tripping upstream rate limits.

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := p.Embed(gCtx, model, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
