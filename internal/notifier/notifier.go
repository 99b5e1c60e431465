// Package notifier delivers announcement batches to a messaging service.
package notifier

import (
	"context"
	"fmt"
	"os"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/config"
)

// Publisher sends one batch. A nil error means every deal in the batch was
// announced.
type Publisher interface {
	Publish(ctx context.Context, b batch.Batch) error
}

// New builds the publisher selected by cfg.Publisher.
func New(cfg *config.Config) (Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherTelegram:
		t, err := NewTelegram(cfg.BotToken, cfg.Channel)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.PublisherDiscord:
		return NewDiscord(cfg.DiscordWebhookURL), nil
	case config.PublisherLog:
		return NewLog(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher)
	}
}
