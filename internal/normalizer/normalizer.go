// Package normalizer turns raw catalog records into validated deals. Missing
// fields degrade to named fallbacks; only a record without a usable URL is
// dropped.
package normalizer

import (
	"log/slog"
	"math"
	"strings"

	"github.com/pauljones0/smart-deals-bot/internal/catalog"
	"github.com/pauljones0/smart-deals-bot/internal/models"
	"github.com/pauljones0/smart-deals-bot/internal/util"
	"github.com/pauljones0/smart-deals-bot/internal/validator"
)

type Normalizer struct {
	assocTag  string
	validator *validator.Validator
}

// New returns a Normalizer that applies assocTag to Amazon links.
func New(assocTag string) *Normalizer {
	return &Normalizer{assocTag: assocTag, validator: validator.New()}
}

// Normalize maps records to deals in order. Records without a URL, or whose
// deal fails validation, are skipped and logged.
func (n *Normalizer) Normalize(records []catalog.Record) []models.Deal {
	deals := make([]models.Deal, 0, len(records))
	for _, rec := range records {
		deal, ok := n.Deal(rec)
		if !ok {
			continue
		}
		if err := n.validator.ValidateStruct(deal); err != nil {
			slog.Warn("Dropping invalid deal", "url", deal.URL, "source", rec.Source, "error", err)
			continue
		}
		deals = append(deals, deal)
	}
	return deals
}

// Deal normalizes one record. ok is false when the record has no URL.
func (n *Normalizer) Deal(rec catalog.Record) (models.Deal, bool) {
	rawURL := strings.TrimSpace(rec.URL)
	if rawURL == "" {
		slog.Debug("Dropping record without URL", "source", rec.Source, "title", rec.Title)
		return models.Deal{}, false
	}

	return models.Deal{
		URL:             n.CanonicalURL(rawURL),
		Title:           Title(rec.Title),
		Image:           Image(rec.Image),
		DiscountPercent: Discount(rec.ListPrice, rec.SellingPrice),
		Category:        Category(rec.Category),
		Source:          rec.Source,
		SourceURL:       rawURL,
	}, true
}

// CanonicalURL strips tracking parameters and applies the affiliate tag so
// the same listing always maps to the same dedup key. URLs that do not parse
// as http(s) are returned as given and rejected later by validation.
func (n *Normalizer) CanonicalURL(rawURL string) string {
	normalized, err := util.NormalizeURL(rawURL)
	if err != nil {
		return rawURL
	}
	tagged, _ := util.ApplyAffiliateTag(normalized, n.assocTag)
	return tagged
}

func Title(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.PlaceholderTitle
	}
	return s
}

func Image(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.PlaceholderImage
	}
	return s
}

func Category(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.DefaultCategory
	}
	return s
}

// ParsePrice reads a price string. ok is false when no number is present.
func ParsePrice(s string) (float64, bool) {
	return util.ParseAmount(s)
}

// Discount returns the percentage off the list price rounded to two
// decimals and clamped to [0, 100]. It is 0 when either price is missing or
// the list price is not positive.
func Discount(listPrice, sellingPrice string) float64 {
	list, ok := ParsePrice(listPrice)
	if !ok || list <= 0 {
		return 0
	}
	selling, ok := ParsePrice(sellingPrice)
	if !ok {
		return 0
	}

	d := math.Round((list-selling)/list*100*100) / 100
	return math.Max(0, math.Min(100, d))
}
