package catalog

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Collector fetches every source concurrently and concatenates the results
// in source order, so the candidate list is the same however the fetches
// interleave.
type Collector struct {
	sources []Source
}

func NewCollector(sources ...Source) *Collector {
	return &Collector{sources: sources}
}

// Collect never fails. A source that errors contributes no records; sources
// without credentials are skipped.
func (c *Collector) Collect(ctx context.Context) []Record {
	results := make([][]Record, len(c.sources))

	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			records, err := src.Fetch(ctx)
			switch {
			case errors.Is(err, ErrNotConfigured):
				slog.Debug("Catalog source not configured, skipping", "source", src.Name())
			case err != nil:
				slog.Warn("Catalog fetch failed", "source", src.Name(), "error", err)
			default:
				results[i] = records
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []Record
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}
