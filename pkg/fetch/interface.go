// Package fetch defines the single-URL download abstraction used by every
// download strategy, together with the rate-limit status servers report.
package fetch

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitStatus describes the rate-limit window a server reported in its
// response headers. The zero value means the server reported nothing.
type RateLimitStatus struct {
	Limit     int       // Limit is the total number of allowed requests in the current window.
	Remaining int       // Remaining indicates how many requests are left in the current window.
	ResetAt   time.Time // ResetAt is when the window resets.
}

// Known reports whether the status carries server-provided information.
func (s RateLimitStatus) Known() bool {
	return !s.ResetAt.IsZero()
}

// Response is the outcome of a single GET.
type Response struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Body is the full response body. It is empty for non-2xx responses.
	Body []byte
	// RateLimit is parsed from the response headers.
	RateLimit RateLimitStatus
}

// OK reports whether the response has a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client downloads a single URL.
//
//go:generate mockgen -package mockfetch -source=interface.go -destination=mock/mockfetch.go *
type Client interface {
	// Fetch performs a GET on URL and reads the whole body. A non-2xx status
	// is reported as an error of kind serrors.ErrBadStatus alongside the
	// Response, so callers can decide whether to skip or keep the slot.
	Fetch(ctx context.Context, URL string) (Response, error)
}

// ParseRateLimit extracts rate-limit information from the X-Ratelimit-*
// headers. The reset header may hold unix seconds or an RFC3339 timestamp.
// Missing or malformed headers yield the zero status.
func ParseRateLimit(h http.Header) RateLimitStatus {
	limit, err := strconv.Atoi(strings.TrimSpace(h.Get("X-Ratelimit-Limit")))
	if err != nil {
		return RateLimitStatus{}
	}
	remaining, err := strconv.Atoi(strings.TrimSpace(h.Get("X-Ratelimit-Remaining")))
	if err != nil {
		return RateLimitStatus{}
	}

	resetStr := strings.TrimSpace(h.Get("X-Ratelimit-Reset"))
	var resetAt time.Time
	if secs, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
		resetAt = time.Unix(secs, 0).UTC()
	} else if t, err := time.Parse(time.RFC3339Nano, resetStr); err == nil {
		resetAt = t
	} else {
		return RateLimitStatus{}
	}

	return RateLimitStatus{Limit: limit, Remaining: remaining, ResetAt: resetAt}
}
