package download

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"dlbench/pkg/serrors"
)

// DefaultURL is the resource the benchmark downloads unless told otherwise.
const DefaultURL = "https://jsonplaceholder.typicode.com/todos/1"

// DefaultCount is the size of the default batch.
const DefaultCount = 50

// Batch returns n copies of the normalized form of rawURL.
func Batch(rawURL string, n int) ([]string, error) {
	if n < 1 {
		return nil, serrors.With(serrors.ErrBadRequest, "batch size must be at least 1, got %d", n)
	}

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid URL %q", rawURL)
	}

	urls := make([]string, n)
	for i := range urls {
		urls[i] = normalized
	}

	return urls, nil
}

// NormalizeURL validates raw as an absolute http(s) URL and returns its
// canonical form:
//   - scheme and host are lower-cased
//   - an empty path becomes "/" and dot-segments are resolved
//   - a trailing slash is dropped except for the root path
//   - default ports are dropped
//   - query parameters are sorted by key, then value
//   - the fragment is removed
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host")
	}

	if u.Path == "" {
		u.Path = "/"
	}
	cleaned := path.Clean(u.Path)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	u.Path = cleaned
	u.RawPath = ""

	host := strings.ToLower(u.Host)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			host = h
			if strings.Contains(h, ":") {
				host = "[" + h + "]"
			}
		}
	}
	u.Host = host

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			sort.Strings(q[k])
		}
		u.RawQuery = q.Encode()
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}
