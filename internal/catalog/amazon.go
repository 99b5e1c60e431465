package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	paapiService    = "ProductAdvertisingAPI"
	paapiTarget     = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	paapiMaxItemIDs = 10
)

var paapiResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Classifications",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
	"Images.Primary.Medium",
	"BrowseNodeInfo.BrowseNodes",
}

type AmazonConfig struct {
	AccessKey  string
	SecretKey  string
	PartnerTag string
	ItemIDs    []string
	Host       string
	Region     string
}

// Amazon looks up a fixed list of ASINs with the Product Advertising API 5
// GetItems operation.
type Amazon struct {
	cfg        AmazonConfig
	endpoint   string
	httpClient *http.Client
	signer     *v4.Signer
}

func NewAmazon(cfg AmazonConfig) *Amazon {
	if cfg.Host == "" {
		cfg.Host = "webservices.amazon.com"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &Amazon{
		cfg:        cfg,
		endpoint:   "https://" + cfg.Host + "/paapi5/getitems",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		signer:     v4.NewSigner(),
	}
}

func (a *Amazon) Name() string { return "amazon" }

type getItemsRequest struct {
	ItemIDs     []string `json:"ItemIds"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

type paapiAmount struct {
	Amount flexString `json:"Amount"`
}

type paapiDisplay struct {
	DisplayValue string `json:"DisplayValue"`
}

type paapiItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	Images        struct {
		Primary struct {
			Medium struct {
				URL string `json:"URL"`
			} `json:"Medium"`
		} `json:"Primary"`
	} `json:"Images"`
	ItemInfo struct {
		Title           paapiDisplay `json:"Title"`
		ListPrice       paapiAmount  `json:"ListPrice"`
		Classifications struct {
			ProductGroup paapiDisplay `json:"ProductGroup"`
		} `json:"Classifications"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price       paapiAmount `json:"Price"`
			SavingBasis paapiAmount `json:"SavingBasis"`
		} `json:"Listings"`
	} `json:"Offers"`
	BrowseNodeInfo struct {
		BrowseNodes []struct {
			DisplayName string `json:"DisplayName"`
		} `json:"BrowseNodes"`
	} `json:"BrowseNodeInfo"`
}

type getItemsResponse struct {
	ItemsResult struct {
		Items []paapiItem `json:"Items"`
	} `json:"ItemsResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

func (a *Amazon) Fetch(ctx context.Context) ([]Record, error) {
	if a.cfg.AccessKey == "" || a.cfg.SecretKey == "" || a.cfg.PartnerTag == "" || len(a.cfg.ItemIDs) == 0 {
		return nil, ErrNotConfigured
	}

	var records []Record
	for start := 0; start < len(a.cfg.ItemIDs); start += paapiMaxItemIDs {
		end := min(start+paapiMaxItemIDs, len(a.cfg.ItemIDs))
		items, err := a.getItems(ctx, a.cfg.ItemIDs[start:end])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			records = append(records, a.toRecord(item))
		}
	}
	slog.Info("Fetched amazon items", "count", len(records))
	return records, nil
}

func (a *Amazon) getItems(ctx context.Context, ids []string) ([]paapiItem, error) {
	body, err := json.Marshal(getItemsRequest{
		ItemIDs:     ids,
		PartnerTag:  a.cfg.PartnerTag,
		PartnerType: "Associates",
		Marketplace: marketplaceFor(a.cfg.Host),
		Resources:   paapiResources,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GetItems request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create GetItems request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", paapiTarget)

	sum := sha256.Sum256(body)
	creds := aws.Credentials{AccessKeyID: a.cfg.AccessKey, SecretAccessKey: a.cfg.SecretKey}
	if err := a.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), paapiService, a.cfg.Region, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to sign GetItems request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call GetItems: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GetItems error: status %d: %s", resp.StatusCode, string(msg))
	}

	var out getItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode GetItems response: %w", err)
	}
	for _, e := range out.Errors {
		// Per-item errors (e.g. an unknown ASIN) still come with the other items.
		slog.Warn("GetItems reported an error", "code", e.Code, "message", e.Message)
	}
	return out.ItemsResult.Items, nil
}

func (a *Amazon) toRecord(item paapiItem) Record {
	rec := Record{
		Title:     item.ItemInfo.Title.DisplayValue,
		URL:       item.DetailPageURL,
		Image:     item.Images.Primary.Medium.URL,
		ListPrice: string(item.ItemInfo.ListPrice.Amount),
		Category:  item.ItemInfo.Classifications.ProductGroup.DisplayValue,
		Source:    a.Name(),
	}
	if len(item.Offers.Listings) > 0 {
		listing := item.Offers.Listings[0]
		rec.SellingPrice = string(listing.Price.Amount)
		if listing.SavingBasis.Amount != "" {
			rec.ListPrice = string(listing.SavingBasis.Amount)
		}
	}
	if rec.Category == "" && len(item.BrowseNodeInfo.BrowseNodes) > 0 {
		rec.Category = item.BrowseNodeInfo.BrowseNodes[0].DisplayName
	}
	return rec
}

// marketplaceFor maps a PA-API host such as webservices.amazon.co.uk to its
// marketplace, www.amazon.co.uk.
func marketplaceFor(host string) string {
	return "www." + strings.TrimPrefix(host, "webservices.")
}
