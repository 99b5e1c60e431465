// Package catalog fetches raw deal listings from upstream catalogs.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotConfigured is returned by a source whose credentials are missing.
// The collector skips such sources quietly.
var ErrNotConfigured = errors.New("catalog source not configured")

// Record is an upstream listing before normalization. Prices are kept as the
// catalog sent them; parsing is the normalizer's job.
type Record struct {
	Title        string
	URL          string
	Image        string
	ListPrice    string
	SellingPrice string
	Category     string
	Source       string
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Record, error)
}

// flexString accepts a JSON string or number. Catalog APIs are inconsistent
// about quoting prices.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
