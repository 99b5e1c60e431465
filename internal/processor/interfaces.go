package processor

import (
	"context"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/catalog"
)

// RecordCollector abstracts the catalog layer.
type RecordCollector interface {
	Collect(ctx context.Context) []catalog.Record
}

// CategoryEnricher fills in missing categories before normalization.
type CategoryEnricher interface {
	Enrich(ctx context.Context, records []catalog.Record) []catalog.Record
}

// DealStore abstracts the dedup store.
type DealStore interface {
	Contains(id string) bool
	RecordAll(ctx context.Context, ids []string) error
}

// DealPublisher abstracts the notification layer.
type DealPublisher interface {
	Publish(ctx context.Context, b batch.Batch) error
}
