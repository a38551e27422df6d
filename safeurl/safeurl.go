// Package safeurl guards the URLs and payloads that reach the browser:
// browser-internal pages are refused before any tab is opened, and request
// bodies carrying HTML are read with a hard cap.
package safeurl

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// MaxBody is the default cap for HTML payloads read from a request (4 MiB).
const MaxBody int64 = 4 << 20

// ErrInternalPage is returned for browser-internal pages, which a content
// script cannot touch.
var ErrInternalPage = errors.New("safeurl: cannot run on browser-internal pages")

// ErrUnsafeScheme is returned when a URL uses a scheme other than http or https.
var ErrUnsafeScheme = errors.New("safeurl: only http and https schemes are allowed")

// ErrInvalidURL is returned for URLs that do not parse or have no host.
var ErrInvalidURL = errors.New("safeurl: invalid URL")

// ErrTooLarge is returned by LimitedReadAll when the limit is exceeded.
var ErrTooLarge = errors.New("safeurl: payload too large")

var internalPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"about:",
	"devtools://",
	"edge://",
	"view-source:",
}

// IsInternal reports whether raw points at a browser-internal page.
func IsInternal(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range internalPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ValidatePageURL accepts absolute http(s) URLs with a host and refuses
// browser-internal pages.
func ValidatePageURL(raw string) (*url.URL, error) {
	if IsInternal(raw) {
		return nil, ErrInternalPage
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: no host", ErrInvalidURL)
	}
	return u, nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}
