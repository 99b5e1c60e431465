// Package batch splits a selection into bounded announcement batches and
// renders each batch's Markdown summary.
package batch

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pauljones0/smart-deals-bot/internal/models"
)

const (
	DefaultSize         = 10
	DefaultCaptionItems = 5
)

type Options struct {
	Size         int
	CaptionItems int
}

type Batch struct {
	Index   int // 1-based
	Total   int
	Deals   []models.Deal
	Summary string
	Shown   int // deals rendered in full in Summary
}

// Split cuts deals into consecutive batches of at most opts.Size deals,
// keeping order. No deals means no batches. Non-positive sizes fall back to
// the defaults.
func Split(deals []models.Deal, opts Options) []Batch {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.CaptionItems <= 0 {
		opts.CaptionItems = DefaultCaptionItems
	}
	if len(deals) == 0 {
		return nil
	}

	total := (len(deals) + opts.Size - 1) / opts.Size
	batches := make([]Batch, 0, total)
	for i := 0; i < len(deals); i += opts.Size {
		end := min(i+opts.Size, len(deals))
		chunk := deals[i:end:end]
		batches = append(batches, Batch{
			Index:   len(batches) + 1,
			Total:   total,
			Deals:   chunk,
			Summary: Summary(chunk, opts.CaptionItems),
			Shown:   min(opts.CaptionItems, len(chunk)),
		})
	}
	return batches
}

// Summary renders the caption for a batch: the first captionItems deals in
// full, then a count of the rest.
func Summary(deals []models.Deal, captionItems int) string {
	var b strings.Builder
	b.WriteString("🔥 *Top Deals Alert!*\n\n")

	shown := max(min(captionItems, len(deals)), 0)
	for i, d := range deals[:shown] {
		fmt.Fprintf(&b, "🎯 *%d. %s*\n", i+1, boldText(d.Title))
		fmt.Fprintf(&b, "💸 Discount: *%s%% OFF*\n", FormatDiscount(d.DiscountPercent))
		fmt.Fprintf(&b, "🛒 Grab it here: [%s](%s)\n", linkText(d.Title), linkURL(d.URL))
		fmt.Fprintf(&b, "📂 Category: %s\n\n", EscapeMarkdown(d.Category))
	}

	if rest := len(deals) - shown; rest > 0 {
		fmt.Fprintf(&b, "✨ And %d more deals in this batch!", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FitSummary renders the longest summary of deals that fits in limit runes.
// Trailing items are dropped one at a time, starting from shown, so the
// "more deals" count always matches what was left out.
func FitSummary(deals []models.Deal, shown, limit int) string {
	var s string
	for n := max(min(shown, len(deals)), 0); n >= 0; n-- {
		s = Summary(deals, n)
		if utf8.RuneCountInString(s) <= limit {
			return s
		}
	}
	return string([]rune(s)[:max(limit, 0)])
}

// FormatDiscount prints a percentage without trailing zeros: 72, 72.5.
func FormatDiscount(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// Legacy Telegram Markdown honours backslash escapes only outside entities.
// Inside an entity the only special character is the one that closes it.
var (
	markdownEscaper = strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	boldReplacer = strings.NewReplacer("*", "")
	linkReplacer = strings.NewReplacer("[", "(", "]", ")")
	urlReplacer  = strings.NewReplacer(")", "%29")
)

// EscapeMarkdown escapes plain text written outside any entity.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func boldText(s string) string { return boldReplacer.Replace(s) }

func linkText(s string) string { return linkReplacer.Replace(s) }

func linkURL(s string) string { return urlReplacer.Replace(s) }
