package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/publicsuffix"

	"github.com/pauljones0/smart-deals-bot/internal/util"
)

// Render modes for the storefront page.
const (
	RenderHTTP     = "http"
	RenderChromedp = "chromedp"
)

// Storefront scrapes deals from an HTML listing page using configurable CSS
// selectors. Pages that publish schema.org Product JSON-LD are read from that
// when the selectors match nothing.
type Storefront struct {
	pageURL    string
	selectors  SelectorConfig
	httpClient *http.Client
	render     func(ctx context.Context, pageURL string) (string, error)
}

func NewStorefront(pageURL, renderMode string, selectors SelectorConfig) *Storefront {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	s := &Storefront{
		pageURL:   pageURL,
		selectors: selectors,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
	if renderMode == RenderChromedp {
		s.render = renderWithChromedp
	}
	return s
}

func (s *Storefront) Name() string { return "storefront" }

func (s *Storefront) Fetch(ctx context.Context) ([]Record, error) {
	if s.pageURL == "" {
		return nil, ErrNotConfigured
	}
	if err := s.checkAllowed(s.pageURL); err != nil {
		return nil, err
	}

	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch or parse storefront page %s: %w", s.pageURL, err)
	}

	records := s.parseListing(doc)
	if len(records) == 0 {
		records = s.parseJSONLD(doc)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no '%s' elements or JSON-LD products found on %s. Potential block or page structure change", s.selectors.Listing.Item, s.pageURL)
	}

	slog.Info("Successfully scraped storefront", "count", len(records), "url", s.pageURL)
	return records, nil
}

func (s *Storefront) parseListing(doc *goquery.Document) []Record {
	sel := s.selectors.Listing
	var records []Record

	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		if sel.IgnoreModifier != "" && item.Is(sel.IgnoreModifier) {
			return
		}

		var rec Record
		rec.Source = s.Name()

		titleLink := item.Find(sel.TitleLink).First()
		if titleLink.Length() > 0 && !titleLink.Is("a") {
			titleLink = titleLink.Find("a").First()
		}
		if titleLink.Length() == 0 {
			slog.Debug("Storefront item has no title link", "selector", sel.TitleLink)
			return
		}
		rec.Title = strings.TrimSpace(titleLink.Text())
		if href, ok := titleLink.Attr("href"); ok {
			rec.URL = util.ResolveURL(s.pageURL, href)
		}

		if sel.Image != "" {
			img := item.Find(sel.Image).First()
			src, ok := img.Attr("src")
			if !ok || strings.HasPrefix(src, "data:") {
				src, _ = img.Attr("data-src")
			}
			if src != "" {
				rec.Image = util.ResolveURL(s.pageURL, src)
			}
		}

		rec.ListPrice = textOf(item, sel.ListPrice)
		rec.SellingPrice = textOf(item, sel.SellingPrice)
		rec.Category = textOf(item, sel.Category)

		records = append(records, rec)
	})
	return records
}

func (s *Storefront) parseJSONLD(doc *goquery.Document) []Record {
	var records []Record
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		for _, p := range parseJSONLDProducts(script.Text()) {
			list, selling := p.prices()
			rec := Record{
				Title:        strings.TrimSpace(p.Name),
				URL:          util.ResolveURL(s.pageURL, p.URL),
				Image:        p.image(),
				ListPrice:    list,
				SellingPrice: selling,
				Category:     p.Category,
				Source:       s.Name(),
			}
			if rec.Image != "" {
				rec.Image = util.ResolveURL(s.pageURL, rec.Image)
			}
			records = append(records, rec)
		}
	})
	return records
}

func textOf(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

// checkAllowed rejects pages outside the configured allowlist. Hosts are
// compared on their registrable domain so www. and regional subdomains pass.
func (s *Storefront) checkAllowed(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL %s: %w", rawURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}

	domain := util.GetDomain(rawURL)
	for _, allowed := range s.selectors.AllowedDomains {
		if strings.EqualFold(domain, allowed) || strings.EqualFold(domain, util.GetDomain("https://"+allowed)) {
			return nil
		}
	}
	return fmt.Errorf("security violation: URL hostname %s is not in allowlist", parsedURL.Hostname())
}

func (s *Storefront) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	if s.render != nil {
		html, err := s.render(ctx, s.pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to render page: %w", err)
		}
		return goquery.NewDocumentFromReader(strings.NewReader(html))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; SmartDealsBot/1.0)")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

// renderWithChromedp loads the page in headless Chrome so listings built by
// client-side scripts are present in the returned HTML.
func renderWithChromedp(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
