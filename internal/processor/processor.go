package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/config"
	"github.com/pauljones0/smart-deals-bot/internal/models"
	"github.com/pauljones0/smart-deals-bot/internal/normalizer"
	"github.com/pauljones0/smart-deals-bot/internal/selection"
	"github.com/pauljones0/smart-deals-bot/internal/storage"
)

const recordTimeout = 30 * time.Second

type Processor interface {
	ProcessDeals(ctx context.Context) error
}

type DealProcessor struct {
	collector  RecordCollector
	enricher   CategoryEnricher
	normalizer *normalizer.Normalizer
	store      DealStore
	publisher  DealPublisher
	selection  selection.Options
	batching   batch.Options
	dryRun     bool
}

type Option func(*DealProcessor)

// WithEnricher runs e over the collected records before normalization.
func WithEnricher(e CategoryEnricher) Option {
	return func(p *DealProcessor) { p.enricher = e }
}

// WithDryRun publishes without recording anything in the store.
func WithDryRun() Option {
	return func(p *DealProcessor) { p.dryRun = true }
}

func New(c RecordCollector, store DealStore, pub DealPublisher, cfg *config.Config, opts ...Option) *DealProcessor {
	sel := cfg.Selection
	p := &DealProcessor{
		collector:  c,
		normalizer: normalizer.New(cfg.AssocTag),
		store:      store,
		publisher:  pub,
		selection: selection.Options{
			WindowStart:        sel.WindowStart,
			WindowEnd:          sel.WindowEnd,
			Floor:              sel.Floor,
			Quota:              sel.Quota,
			Step:               sel.Step,
			PriorityCategories: sel.PriorityCategories,
		},
		batching: batch.Options{
			Size:         sel.BatchSize,
			CaptionItems: sel.CaptionItems,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDeals runs one collect, select, publish cycle. Finding nothing to
// publish is not an error. Each batch is recorded as soon as it is
// published; a failed batch is left unrecorded so a later run retries it.
func (p *DealProcessor) ProcessDeals(ctx context.Context) error {
	records := p.collector.Collect(ctx)
	slog.Info("Collected catalog records", "count", len(records))

	if p.enricher != nil {
		records = p.enricher.Enrich(ctx, records)
	}

	deals := p.normalizer.Normalize(records)
	fresh := p.freshDeals(deals)
	if len(fresh) == 0 {
		slog.Info("No new deals to post", "normalized", len(deals))
		return nil
	}

	result := selection.Select(fresh, p.selection)
	if result.Empty() {
		slog.Info("No deals to post at all", "candidates", len(fresh))
		return nil
	}
	slog.Info("Selected deals",
		"count", len(result.Deals),
		"candidates", len(fresh),
		"outcome", result.Outcome.String(),
		"threshold", result.Threshold,
		"prioritized", result.Prioritized,
	)

	batches := batch.Split(result.Deals, p.batching)
	var errorMessages []string
	published := 0

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			errorMessages = append(errorMessages, fmt.Sprintf("batch %d/%d not sent: %v", b.Index, b.Total, err))
			continue
		}

		if err := p.publisher.Publish(ctx, b); err != nil {
			slog.Error("Error publishing batch", "batch", b.Index, "total", b.Total, "error", err)
			errorMessages = append(errorMessages, fmt.Sprintf("batch %d/%d: %v", b.Index, b.Total, err))
			continue
		}
		published++

		if p.dryRun {
			continue
		}
		if err := p.record(ctx, b); err != nil {
			if errors.Is(err, storage.ErrPersist) {
				slog.Warn("Posted deals recorded in memory only", "batch", b.Index, "error", err)
			} else {
				slog.Error("Failed to record posted deals", "batch", b.Index, "error", err)
			}
		}
	}

	slog.Info("Finished processing", "batches", len(batches), "published", published, "dryRun", p.dryRun)
	if len(errorMessages) > 0 {
		return fmt.Errorf("processed with errors: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}

// record saves a published batch. The write outlives cancellation of the run
// so a batch that reached the channel is never announced again after a
// shutdown or run timeout.
func (p *DealProcessor) record(ctx context.Context, b batch.Batch) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return p.store.RecordAll(ctx, models.URLs(b.Deals))
}

// freshDeals drops deals already in the store and repeated URLs within the
// run. The first occurrence of a URL wins. A deal also counts as posted when
// its catalog URL was recorded before canonicalization.
func (p *DealProcessor) freshDeals(deals []models.Deal) []models.Deal {
	seen := make(map[string]struct{}, len(deals))
	fresh := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if _, dup := seen[d.URL]; dup {
			continue
		}
		seen[d.URL] = struct{}{}
		if p.store.Contains(d.URL) || (d.SourceURL != "" && p.store.Contains(d.SourceURL)) {
			continue
		}
		fresh = append(fresh, d)
	}
	return fresh
}
