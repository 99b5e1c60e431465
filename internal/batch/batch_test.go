package batch

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pauljones0/smart-deals-bot/internal/models"
)

func makeDeals(n int) []models.Deal {
	deals := make([]models.Deal, n)
	for i := range deals {
		deals[i] = models.Deal{
			URL:             fmt.Sprintf("https://shop.example/item/%d", i),
			Title:           fmt.Sprintf("Item %d", i),
			Image:           models.PlaceholderImage,
			DiscountPercent: float64(90 - i),
			Category:        "Electronics",
		}
	}
	return deals
}

func TestSplit_Sizes(t *testing.T) {
	batches := Split(makeDeals(23), Options{Size: 10, CaptionItems: 5})

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	wantSizes := []int{10, 10, 3}
	for i, b := range batches {
		if len(b.Deals) != wantSizes[i] {
			t.Errorf("batch %d: got %d deals, want %d", i+1, len(b.Deals), wantSizes[i])
		}
		if b.Index != i+1 || b.Total != 3 {
			t.Errorf("batch %d: Index/Total = %d/%d", i+1, b.Index, b.Total)
		}
	}
	if batches[1].Deals[0].URL != "https://shop.example/item/10" {
		t.Errorf("second batch starts at %s, want item 10", batches[1].Deals[0].URL)
	}
}

func TestSplit_SummarySuffix(t *testing.T) {
	batches := Split(makeDeals(23), Options{Size: 10, CaptionItems: 5})

	for _, b := range batches[:2] {
		if !strings.HasSuffix(b.Summary, "✨ And 5 more deals in this batch!") {
			t.Errorf("batch %d summary missing suffix:\n%s", b.Index, b.Summary)
		}
		if got := strings.Count(b.Summary, "🎯"); got != 5 {
			t.Errorf("batch %d renders %d items, want 5", b.Index, got)
		}
	}
	last := batches[2]
	if strings.Contains(last.Summary, "more deals") {
		t.Errorf("last batch should have no suffix:\n%s", last.Summary)
	}
	if got := strings.Count(last.Summary, "🎯"); got != 3 {
		t.Errorf("last batch renders %d items, want 3", got)
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split(nil, Options{}); len(got) != 0 {
		t.Errorf("expected no batches, got %d", len(got))
	}
}

func TestSplit_DefaultsOnInvalidOptions(t *testing.T) {
	batches := Split(makeDeals(12), Options{Size: 0, CaptionItems: -1})

	if len(batches) != 2 || len(batches[0].Deals) != DefaultSize {
		t.Fatalf("expected default size batches, got %d", len(batches))
	}
	if !strings.Contains(batches[0].Summary, "And 5 more") {
		t.Errorf("expected default caption cap, got:\n%s", batches[0].Summary)
	}
}

func TestSplit_BatchesDoNotAlias(t *testing.T) {
	batches := Split(makeDeals(4), Options{Size: 2})

	batches[0].Deals = append(batches[0].Deals, models.Deal{URL: "https://shop.example/extra"})

	if batches[1].Deals[0].URL != "https://shop.example/item/2" {
		t.Errorf("appending to one batch overwrote the next: %s", batches[1].Deals[0].URL)
	}
}

func TestSummary_Format(t *testing.T) {
	deals := []models.Deal{{
		URL:             "https://www.flipkart.com/p/itm1?pid=(A)",
		Title:           "Noise_Cancelling *Pro* [2024]",
		DiscountPercent: 72.5,
		Category:        "Audio_Video [Hi-Fi]",
	}}

	got := Summary(deals, 5)
	want := "🔥 *Top Deals Alert!*\n\n" +
		"🎯 *1. Noise_Cancelling Pro [2024]*\n" +
		"💸 Discount: *72.5% OFF*\n" +
		"🛒 Grab it here: [Noise_Cancelling *Pro* (2024)](https://www.flipkart.com/p/itm1?pid=(A%29)\n" +
		"📂 Category: Audio\\_Video \\[Hi-Fi]"

	if got != want {
		t.Errorf("Summary() =\n%q\nwant\n%q", got, want)
	}
}

func TestSplit_Shown(t *testing.T) {
	batches := Split(makeDeals(7), Options{Size: 5, CaptionItems: 3})
	if batches[0].Shown != 3 || batches[1].Shown != 2 {
		t.Errorf("Shown = %d, %d, want 3, 2", batches[0].Shown, batches[1].Shown)
	}
}

func TestFitSummary(t *testing.T) {
	deals := makeDeals(10)
	for i := range deals {
		deals[i].Title = strings.Repeat("x", 100)
	}

	tests := []struct {
		name      string
		limit     int
		wantItems int
	}{
		{"fits as rendered", 4096, 5},
		{"drops items to fit", 1024, 3},
		{"header and count only", 80, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitSummary(deals, 5, tt.limit)

			if n := utf8.RuneCountInString(got); n > tt.limit {
				t.Errorf("summary has %d runes, want <= %d", n, tt.limit)
			}
			if items := strings.Count(got, "🎯"); items != tt.wantItems {
				t.Errorf("renders %d items, want %d", items, tt.wantItems)
			}
			if got != Summary(deals, tt.wantItems) {
				t.Errorf("FitSummary() = %q, want Summary(deals, %d)", got, tt.wantItems)
			}
			suffix := fmt.Sprintf("✨ And %d more deals in this batch!", len(deals)-tt.wantItems)
			if !strings.HasSuffix(got, suffix) {
				t.Errorf("summary should end with %q, got:\n%s", suffix, got)
			}
		})
	}
}

func TestFitSummary_HardLimit(t *testing.T) {
	got := FitSummary(makeDeals(2), 2, 10)
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Errorf("summary has %d runes, want 10", n)
	}
	if got := FitSummary(nil, -1, 50); got != "🔥 *Top Deals Alert!*" {
		t.Errorf("empty summary = %q", got)
	}
}

func TestFormatDiscount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{72, "72"},
		{72.5, "72.5"},
		{33.33, "33.33"},
		{0, "0"},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := FormatDiscount(tt.in); got != tt.want {
			t.Errorf("FormatDiscount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
