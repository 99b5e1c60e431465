package catalog

import (
	"encoding/json"
	"strings"
)

// jsonLDProduct is the subset of a schema.org Product the storefront reads
// when a page publishes its listings as JSON-LD instead of (or as well as)
// markup.
type jsonLDProduct struct {
	Type     jsonLDType      `json:"@type"`
	Name     string          `json:"name"`
	URL      string          `json:"url"`
	Image    json.RawMessage `json:"image"`
	Category string          `json:"category"`
	Offers   json.RawMessage `json:"offers"`
}

type jsonLDOffer struct {
	Price              flexString      `json:"price"`
	LowPrice           flexString      `json:"lowPrice"`
	PriceSpecification json.RawMessage `json:"priceSpecification"`
}

type jsonLDPriceSpecification struct {
	Price     flexString `json:"price"`
	PriceType string     `json:"priceType"` // e.g. "https://schema.org/ListPrice"
}

// jsonLDNode is any top-level JSON-LD object: a Product, an ItemList of
// products, or a @graph container.
type jsonLDNode struct {
	jsonLDProduct
	Graph           []json.RawMessage `json:"@graph"`
	ItemListElement []struct {
		Item json.RawMessage `json:"item"`
	} `json:"itemListElement"`
}

// jsonLDType accepts "@type" as a string or an array of strings.
type jsonLDType []string

func (t *jsonLDType) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = jsonLDType{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

func (t jsonLDType) is(name string) bool {
	for _, v := range t {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// parseJSONLDProducts extracts every Product found in a JSON-LD script body.
func parseJSONLDProducts(raw string) []jsonLDProduct {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var nodes []json.RawMessage
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return nil
		}
	} else {
		nodes = []json.RawMessage{json.RawMessage(raw)}
	}

	var products []jsonLDProduct
	for _, n := range nodes {
		products = append(products, collectProducts(n, 0)...)
	}
	return products
}

func collectProducts(raw json.RawMessage, depth int) []jsonLDProduct {
	if depth > 4 || len(raw) == 0 {
		return nil
	}
	var node jsonLDNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}

	var out []jsonLDProduct
	if node.Type.is("Product") {
		out = append(out, node.jsonLDProduct)
	}
	for _, g := range node.Graph {
		out = append(out, collectProducts(g, depth+1)...)
	}
	for _, el := range node.ItemListElement {
		out = append(out, collectProducts(el.Item, depth+1)...)
	}
	return out
}

func (p jsonLDProduct) image() string {
	if len(p.Image) == 0 {
		return ""
	}
	var one string
	if err := json.Unmarshal(p.Image, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(p.Image, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.Image, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// prices returns the list and selling price of the first offer.
func (p jsonLDProduct) prices() (list, selling string) {
	if len(p.Offers) == 0 {
		return "", ""
	}
	var offer jsonLDOffer
	if err := json.Unmarshal(p.Offers, &offer); err != nil {
		var offers []jsonLDOffer
		if err := json.Unmarshal(p.Offers, &offers); err != nil || len(offers) == 0 {
			return "", ""
		}
		offer = offers[0]
	}

	selling = string(offer.Price)
	if selling == "" {
		selling = string(offer.LowPrice)
	}
	for _, spec := range offer.specifications() {
		if strings.Contains(spec.PriceType, "ListPrice") || strings.Contains(spec.PriceType, "StrikethroughPrice") {
			list = string(spec.Price)
			break
		}
	}
	return list, selling
}

// specifications accepts priceSpecification as a single object or an array.
func (o jsonLDOffer) specifications() []jsonLDPriceSpecification {
	if len(o.PriceSpecification) == 0 {
		return nil
	}
	var many []jsonLDPriceSpecification
	if err := json.Unmarshal(o.PriceSpecification, &many); err == nil {
		return many
	}
	var one jsonLDPriceSpecification
	if err := json.Unmarshal(o.PriceSpecification, &one); err == nil {
		return []jsonLDPriceSpecification{one}
	}
	return nil
}
