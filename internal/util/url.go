package util

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var errNotHTTP = errors.New("scheme must be http or https")

// trackingParams are stripped from deal links so the same listing keeps a
// stable dedup key across runs.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "gclid", "fbclid"}

// NormalizeURL removes tracking parameters and a trailing slash from an
// absolute http(s) URL. Anything else is returned unchanged with an error.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, err
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return rawURL, &url.Error{Op: "normalize", URL: rawURL, Err: errNotHTTP}
	}

	parsedURL.Host = strings.ToLower(parsedURL.Host)
	parsedURL.Fragment = ""
	parsedURL.RawFragment = ""
	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = parsedURL.Path[:len(parsedURL.Path)-1]
		// Clear RawPath to ensure String() regenerates the URL path without the trailing slash
		parsedURL.RawPath = ""
	}
	if parsedURL.RawQuery != "" {
		queryParams := parsedURL.Query()
		for _, param := range trackingParams {
			queryParams.Del(param)
		}
		parsedURL.RawQuery = queryParams.Encode()
	}
	return parsedURL.String(), nil
}

// ResolveURL resolves a possibly relative href against base.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// GetDomain returns the registrable domain (eTLD+1) of a URL, e.g.
// "sub.example.co.uk" -> "example.co.uk". Hosts without a public suffix
// (localhost, IPs) are returned as-is.
func GetDomain(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsedURL.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
