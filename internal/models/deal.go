package models

import "time"

// Fallback values applied during normalization when a catalog omits a field.
const (
	PlaceholderTitle = "No title"
	PlaceholderImage = "https://via.placeholder.com/300?text=No+Image"
	DefaultCategory  = "Other"
)

// Deal is a single discounted listing normalized from an upstream catalog.
// URL doubles as the dedup key: two deals with the same URL are the same deal
// no matter which catalog produced them.
type Deal struct {
	URL             string  `firestore:"url" validate:"required,http_url"`
	Title           string  `firestore:"title" validate:"required"`
	Image           string  `firestore:"image" validate:"required"`
	DiscountPercent float64 `firestore:"discountPercent" validate:"gte=0,lte=100"`
	Category        string  `firestore:"category" validate:"required"`
	Source          string  `firestore:"source"`
	// SourceURL is the link as the catalog sent it. Older posted files
	// hold these raw links.
	SourceURL string `firestore:"-"`
}

// PostedDeal is the durable record of an announced deal.
type PostedDeal struct {
	URL      string    `firestore:"url"`
	PostedAt time.Time `firestore:"postedAt"`
}

// URLs returns the dedup keys of deals in order.
func URLs(deals []Deal) []string {
	ids := make([]string, 0, len(deals))
	for _, d := range deals {
		ids = append(ids, d.URL)
	}
	return ids
}
