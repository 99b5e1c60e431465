package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pauljones0/smart-deals-bot/internal/ai"
	"github.com/pauljones0/smart-deals-bot/internal/catalog"
	"github.com/pauljones0/smart-deals-bot/internal/config"
	"github.com/pauljones0/smart-deals-bot/internal/models"
	"github.com/pauljones0/smart-deals-bot/internal/notifier"
	"github.com/pauljones0/smart-deals-bot/internal/processor"
	"github.com/pauljones0/smart-deals-bot/internal/storage"
)

// app holds the wired components of one process.
type app struct {
	store     *storage.Store
	processor *processor.DealProcessor
}

// newApp wires the store, catalog sources, enricher and publisher. A nil pub
// selects the publisher named in cfg.
func newApp(ctx context.Context, cfg *config.Config, pub notifier.Publisher, opts ...processor.Option) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if pub == nil {
		pub, err = notifier.New(cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("critical error initializing publisher: %w", err)
		}
	}

	categorizer, err := ai.NewCategorizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, categoriesFor(cfg))
	if err != nil {
		slog.Warn("Category enrichment disabled", "error", err)
	} else if categorizer != nil {
		opts = append(opts, processor.WithEnricher(categorizer))
	}

	collector := catalog.NewCollector(sourcesFor(cfg)...)
	return &app{
		store:     store,
		processor: processor.New(collector, store, pub, cfg, opts...),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("Failed to close dedup store", "error", err)
	}
}

// openStore opens the configured dedup backend and loads every recorded id.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	var backend storage.Backend
	switch cfg.DedupBackend {
	case config.BackendSQLite:
		b, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("critical error opening sqlite store: %w", err)
		}
		backend = b
	case config.BackendFirestore:
		b, err := storage.NewFirestore(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("critical error initializing Firestore client: %w", err)
		}
		backend = b
	default:
		backend = storage.NewFileBackend(cfg.PostedFile)
	}

	store, err := storage.Open(ctx, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	slog.Info("Dedup store ready", "backend", cfg.DedupBackend, "posted", store.Len())
	return store, nil
}

// sourcesFor returns every catalog source in collection order. Sources
// without credentials report catalog.ErrNotConfigured and are skipped.
func sourcesFor(cfg *config.Config) []catalog.Source {
	return []catalog.Source{
		catalog.NewFlipkart(cfg.FlipkartID, cfg.FlipkartToken),
		catalog.NewAmazon(catalog.AmazonConfig{
			AccessKey:  cfg.AWSKey,
			SecretKey:  cfg.AWSSecret,
			PartnerTag: cfg.AssocTag,
			ItemIDs:    cfg.AmazonItemIDs,
			Host:       cfg.AmazonHost,
			Region:     cfg.AmazonRegion,
		}),
		catalog.NewStorefront(cfg.StorefrontURL, cfg.StorefrontMode, catalog.LoadConfig(cfg.SelectorsPath)),
	}
}

func categoriesFor(cfg *config.Config) []string {
	categories := append([]string(nil), cfg.Selection.PriorityCategories...)
	return append(categories, models.DefaultCategory)
}
