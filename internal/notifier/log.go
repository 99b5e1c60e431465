package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
)

// Log is a dry-run publisher: it prints each batch summary instead of
// sending it anywhere.
type Log struct {
	out io.Writer
}

func NewLog(out io.Writer) *Log {
	return &Log{out: out}
}

func (l *Log) Publish(_ context.Context, b batch.Batch) error {
	slog.Info("Dry run: batch not sent", "batch", b.Index, "total", b.Total, "deals", len(b.Deals))
	if l.out == nil {
		return nil
	}
	_, err := fmt.Fprintf(l.out, "--- Batch %d/%d (%d deals) ---\n%s\n\n", b.Index, b.Total, len(b.Deals), b.Summary)
	return err
}
