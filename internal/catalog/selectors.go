package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig tells the storefront scraper where deal fields live on a
// listing page and which hosts it may fetch.
type SelectorConfig struct {
	AllowedDomains []string         `json:"allowed_domains"`
	Listing        ListingSelectors `json:"listing"`
}

type ListingSelectors struct {
	Item           string `json:"item"`            // e.g., "div.deal-card"
	IgnoreModifier string `json:"ignore_modifier"` // e.g., ".sponsored"
	TitleLink      string `json:"title_link"`
	Image          string `json:"image"`
	ListPrice      string `json:"list_price"`
	SellingPrice   string `json:"selling_price"`
	Category       string `json:"category"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if config.Listing.Item == "" || config.Listing.TitleLink == "" {
		return SelectorConfig{}, fmt.Errorf("selector config needs listing.item and listing.title_link")
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON can be loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		AllowedDomains: []string{"flipkart.com", "amazon.in", "amazon.com"},
		Listing: ListingSelectors{
			Item:           ".deal-card",
			IgnoreModifier: ".sponsored",
			TitleLink:      ".deal-title a",
			Image:          "img.deal-image",
			ListPrice:      ".price-mrp",
			SellingPrice:   ".price-selling",
			Category:       ".deal-category",
		},
	}
}
