package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/models"
)

const (
	colorColdDeal    = 3092790  // #2F3136
	colorWarmDeal    = 16753920 // #FFA500
	colorHotDeal     = 16711680 // #FF0000
	colorVeryHotDeal = 16776960 // #FFFF00

	discountThresholdWarm    = 30
	discountThresholdHot     = 50
	discountThresholdVeryHot = 70

	discordMaxEmbeds     = 10
	discordMaxContentLen = 2000
	discordMaxRetries    = 3
)

// Discord posts each batch as one webhook message: the batch summary as
// content and one embed per deal.
type Discord struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	retryBase   time.Duration
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Webhooks allow 5 requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(time.Second/2), 1),
		retryBase:   time.Second,
	}
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedImage struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title     string              `json:"title,omitempty"`
	URL       string              `json:"url,omitempty"`
	Color     int                 `json:"color,omitempty"`
	Thumbnail discordEmbedImage   `json:"thumbnail,omitempty"`
	Fields    []discordEmbedField `json:"fields,omitempty"`
	Footer    discordEmbedFooter  `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func (c *Discord) Publish(ctx context.Context, b batch.Batch) error {
	if len(b.Deals) == 0 {
		return nil
	}

	payload := discordWebhookPayload{Content: truncateRunes(b.Summary, discordMaxContentLen)}
	for _, d := range b.Deals[:min(len(b.Deals), discordMaxEmbeds)] {
		payload.Embeds = append(payload.Embeds, formatDealToEmbed(d))
	}

	id, err := c.send(ctx, payload)
	if err != nil {
		return fmt.Errorf("discord batch %d/%d: %w", b.Index, b.Total, err)
	}
	slog.Info("Published batch to Discord", "batch", b.Index, "total", b.Total, "deals", len(b.Deals), "messageID", id)
	return nil
}

func formatDealToEmbed(deal models.Deal) discordEmbed {
	embed := discordEmbed{
		Title: truncateRunes(deal.Title, 256),
		URL:   deal.URL,
		Color: getDiscountColor(deal.DiscountPercent),
		Fields: []discordEmbedField{
			{Name: "Discount", Value: batch.FormatDiscount(deal.DiscountPercent) + "% OFF", Inline: true},
			{Name: "Category", Value: deal.Category, Inline: true},
		},
	}
	if deal.Image != "" && deal.Image != models.PlaceholderImage {
		embed.Thumbnail.URL = deal.Image
	}
	if deal.Source != "" {
		embed.Footer.Text = deal.Source
	}
	return embed
}

func (c *Discord) send(ctx context.Context, payload discordWebhookPayload) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt >= discordMaxRetries || ctx.Err() != nil {
				return "", err
			}
			slog.Warn("Discord request failed, retrying", "attempt", attempt+1, "error", err)
			if err := sleepCtx(ctx, c.retryBase*time.Duration(1<<attempt)); err != nil {
				return "", err
			}
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var msgResponse discordMessageResponse
			if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
				return "", err
			}
			return msgResponse.ID, nil
		}

		backoff := retryBackoff(resp, attempt)
		if backoff == 0 || attempt >= discordMaxRetries {
			return "", fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
		}
		slog.Warn("Discord returned retryable status", "status", resp.StatusCode, "attempt", attempt+1, "backoff", backoff)
		if err := sleepCtx(ctx, backoff); err != nil {
			return "", err
		}
	}
}

// retryBackoff returns how long to wait before retrying resp, or 0 when the
// status is not retryable. 429 honours Retry-After.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		return time.Duration(1<<attempt) * time.Second
	case resp.StatusCode >= 500:
		return time.Duration(1<<attempt) * 500 * time.Millisecond
	default:
		return 0
	}
}

func getDiscountColor(discount float64) int {
	if discount >= discountThresholdVeryHot {
		return colorVeryHotDeal
	} else if discount >= discountThresholdHot {
		return colorHotDeal
	} else if discount >= discountThresholdWarm {
		return colorWarmDeal
	}
	return colorColdDeal
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
