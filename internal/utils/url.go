package utils

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var ErrInvalidURL = errors.New("invalid url")

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// NormalizeMediaURL cleans an image or icon URL before it is stored on an embed.
// Hosts are lowercased and IDNA-encoded, credentials, fragments and tracking
// parameters are dropped. A missing scheme defaults to https.
func NormalizeMediaURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", ErrInvalidURL
	}
	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", ErrInvalidURL
	}
	if port := parsed.Port(); port != "" {
		asciiHost = net.JoinHostPort(asciiHost, port)
	}

	parsed.Scheme = scheme
	parsed.Host = asciiHost
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}
