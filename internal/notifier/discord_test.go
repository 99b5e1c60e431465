package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/models"
)

func testBatch(n int) batch.Batch {
	deals := make([]models.Deal, n)
	for i := range deals {
		deals[i] = models.Deal{
			URL:             "https://www.flipkart.com/p/itm" + string(rune('a'+i)),
			Title:           "Deal " + string(rune('A'+i)),
			Image:           "https://img.example/" + string(rune('a'+i)) + ".jpg",
			DiscountPercent: float64(80 - i),
			Category:        "Electronics",
			Source:          "flipkart",
		}
	}
	return batch.Split(deals, batch.Options{Size: 10, CaptionItems: 5})[0]
}

func newTestDiscord(url string) *Discord {
	client := NewDiscord(url)
	// Override rate limiter for tests to run fast
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	client.retryBase = time.Millisecond
	return client
}

func TestFormatDealToEmbed(t *testing.T) {
	deal := models.Deal{
		Title:           "Great Deal",
		URL:             "https://www.amazon.in/dp/B0X?tag=deals-21",
		Image:           "https://example.com/image.jpg",
		DiscountPercent: 72.5,
		Category:        "Electronics",
		Source:          "amazon",
	}

	embed := formatDealToEmbed(deal)

	if embed.Title != "Great Deal" || embed.URL != deal.URL {
		t.Errorf("Title/URL incorrect. Got: %s %s", embed.Title, embed.URL)
	}
	if embed.Thumbnail.URL != deal.Image {
		t.Errorf("Thumbnail incorrect. Got: %s", embed.Thumbnail.URL)
	}
	if embed.Color != colorVeryHotDeal {
		t.Errorf("Expected very hot colour for 72.5%%, got %d", embed.Color)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "72.5% OFF" || embed.Fields[1].Value != "Electronics" {
		t.Errorf("Unexpected fields: %+v", embed.Fields)
	}
	if embed.Footer.Text != "amazon" {
		t.Errorf("Footer incorrect. Got: %s", embed.Footer.Text)
	}

	placeholder := formatDealToEmbed(models.Deal{Title: "x", Image: models.PlaceholderImage})
	if placeholder.Thumbnail.URL != "" {
		t.Errorf("placeholder image should not be used as thumbnail")
	}
}

func TestGetDiscountColor(t *testing.T) {
	tests := []struct {
		discount float64
		want     int
	}{
		{90, colorVeryHotDeal},
		{70, colorVeryHotDeal},
		{55, colorHotDeal},
		{30, colorWarmDeal},
		{20, colorColdDeal},
	}
	for _, tt := range tests {
		if got := getDiscountColor(tt.discount); got != tt.want {
			t.Errorf("getDiscountColor(%v) = %d, want %d", tt.discount, got, tt.want)
		}
	}
}

func TestDiscord_Publish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Errorf("Expected wait=true query param")
		}

		var payload discordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if len(payload.Embeds) != 3 {
			t.Errorf("Expected 3 embeds, got %d", len(payload.Embeds))
		}
		if !strings.HasPrefix(payload.Content, "🔥 *Top Deals Alert!*") {
			t.Errorf("Expected summary as content, got %q", payload.Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "12345", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestDiscord(server.URL)
	if err := client.Publish(context.Background(), testBatch(3)); err != nil {
		t.Fatalf("Publish() returned error: %v", err)
	}
}

func TestDiscord_Publish_RetriesOn5xx(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := atomic.AddInt32(&attempts, 1)
		if attempt <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "server error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "retry-success", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestDiscord(server.URL)
	if err := client.Publish(context.Background(), testBatch(2)); err != nil {
		t.Fatalf("Publish() should have succeeded after retries, got error: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("Expected 3 attempts (2 failures + 1 success), got %d", atomic.LoadInt32(&attempts))
	}
}

func TestDiscord_Publish_RetriesOn429(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := atomic.AddInt32(&attempts, 1)
		if attempt == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "rate limited"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "429-success", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestDiscord(server.URL)
	if err := client.Publish(context.Background(), testBatch(2)); err != nil {
		t.Fatalf("Publish() should have succeeded after 429 retry, got error: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestDiscord_Publish_NoRetryOn4xx(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "bad request"}`))
	}))
	defer server.Close()

	client := newTestDiscord(server.URL)
	if err := client.Publish(context.Background(), testBatch(2)); err == nil {
		t.Fatal("Publish() should have returned error for 400 response")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("Expected 1 attempt (no retry for 400), got %d", atomic.LoadInt32(&attempts))
	}
}

func TestDiscord_Publish_EmptyBatch(t *testing.T) {
	client := newTestDiscord("http://127.0.0.1:1/unused")
	if err := client.Publish(context.Background(), batch.Batch{Index: 1, Total: 1}); err != nil {
		t.Fatalf("Publish() of an empty batch should be a no-op, got %v", err)
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		retryAfter string
		attempt    int
		want       time.Duration
	}{
		{"429 with Retry-After", 429, "2", 0, 2 * time.Second},
		{"429 without Retry-After", 429, "", 1, 2 * time.Second},
		{"500 error", 500, "", 0, 500 * time.Millisecond},
		{"503 error", 503, "", 1, time.Second},
		{"400 error", 400, "", 0, 0},
		{"404 error", 404, "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.statusCode,
				Header:     http.Header{},
			}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}

			if got := retryBackoff(resp, tt.attempt); got != tt.want {
				t.Errorf("retryBackoff() = %v, want %v", got, tt.want)
			}
		})
	}
}
