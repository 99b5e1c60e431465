package util

import (
	"net/url"
	"strings"
)

// ApplyAffiliateTag sets the Amazon associate tag on Amazon product links.
// Other links, and an empty tag, leave the URL untouched. It returns the
// resulting URL and whether it changed.
func ApplyAffiliateTag(rawURL, tag string) (string, bool) {
	if tag == "" {
		return rawURL, false
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, false
	}
	if !strings.Contains(parsedURL.Host, "amazon.") {
		return rawURL, false
	}

	queryParams := parsedURL.Query()
	if queryParams.Get("tag") == tag {
		return rawURL, false
	}
	queryParams.Set("tag", tag)
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), true
}
