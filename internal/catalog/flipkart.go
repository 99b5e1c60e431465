package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pauljones0/smart-deals-bot/internal/util"
)

const flipkartDOTDURL = "https://affiliate-api.flipkart.net/affiliate/offers/v1/dotd/json"

// Flipkart reads the affiliate "deals of the day" feed.
type Flipkart struct {
	id         string
	token      string
	endpoint   string
	httpClient *http.Client
	maxRetries int
	retryBase  time.Duration
}

func NewFlipkart(id, token string) *Flipkart {
	return &Flipkart{
		id:         id,
		token:      token,
		endpoint:   flipkartDOTDURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		retryBase:  time.Second,
	}
}

func (f *Flipkart) Name() string { return "flipkart" }

type flipkartResponse struct {
	DOTDList []flipkartDeal `json:"dotdList"`
}

type flipkartDeal struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	ImageURLs []struct {
		URL string `json:"url"`
	} `json:"imageUrls"`
	MRP          flexString `json:"mrp"`
	SellingPrice flexString `json:"sellingPrice"`
	Category     string     `json:"category"`
}

func (f *Flipkart) Fetch(ctx context.Context) ([]Record, error) {
	if f.id == "" || f.token == "" {
		return nil, ErrNotConfigured
	}

	var payload flipkartResponse
	err := util.RetryWithBackoff(ctx, f.maxRetries, f.retryBase, func(attempt int) error {
		if attempt > 0 {
			slog.Warn("Retrying flipkart request", "attempt", attempt)
		}
		return f.get(ctx, &payload)
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.DOTDList))
	for _, d := range payload.DOTDList {
		rec := Record{
			Title:        d.Title,
			URL:          d.URL,
			ListPrice:    string(d.MRP),
			SellingPrice: string(d.SellingPrice),
			Category:     d.Category,
			Source:       f.Name(),
		}
		if len(d.ImageURLs) > 0 {
			rec.Image = d.ImageURLs[0].URL
		}
		records = append(records, rec)
	}
	slog.Info("Fetched flipkart deals", "count", len(records))
	return records, nil
}

// get performs one request. Client errors other than 429 are permanent.
func (f *Flipkart) get(ctx context.Context, payload *flipkartResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return util.Permanent(fmt.Errorf("failed to create flipkart request: %w", err))
	}
	req.Header.Set("Fk-Affiliate-Id", f.id)
	req.Header.Set("Fk-Affiliate-Token", f.token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch flipkart deals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("flipkart API error: status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return util.Permanent(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return util.Permanent(fmt.Errorf("failed to decode flipkart response: %w", err))
	}
	return nil
}
