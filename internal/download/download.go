// Package download implements the strategies compared by the benchmark: a
// sequential loop and a concurrent fan-out over the same batch of URLs.
package download

import (
	"context"
	"errors"
	"fmt"

	"dlbench/pkg/domain"
	"dlbench/pkg/fetch"
	"dlbench/pkg/logger"
	"dlbench/pkg/serrors"

	"go.uber.org/zap"
)

// Options configure a Downloader.
type Options struct {
	// Concurrency bounds the number of simultaneous fetches of Concurrent and
	// Gather. Zero means unbounded.
	Concurrency int
	// RespectRateLimit throttles fetches against the X-Ratelimit-* headers
	// reported by the server.
	RespectRateLimit bool
}

// Downloader runs batches of URLs through a fetch.Client.
type Downloader struct {
	client fetch.Client
	opts   Options
	rl     *limiter
}

// New creates a Downloader that fetches every URL with client.
func New(client fetch.Client, opts Options) *Downloader {
	d := &Downloader{client: client, opts: opts}
	if opts.RespectRateLimit {
		d.rl = newLimiter()
	}

	return d
}

// Run downloads urls with the strategy selected by mode.
func (d *Downloader) Run(ctx context.Context, mode domain.Mode, urls []string) ([][]byte, error) {
	switch mode {
	case domain.ModeSequential:
		return d.Sequential(ctx, urls)
	case domain.ModeAsynchronous:
		return d.Concurrent(ctx, urls)
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown mode %q", mode)
	}
}

// Sequential fetches urls one at a time, in order. Responses with a non-2xx
// status are skipped, so the result may hold fewer entries than urls. Any
// other failure stops the loop and is returned.
func (d *Downloader) Sequential(ctx context.Context, urls []string) ([][]byte, error) {
	out := make([][]byte, 0, len(urls))
	for i, u := range urls {
		res, err := d.fetch(ctx, u)
		if errors.Is(err, serrors.ErrBadStatus) {
			logger.Debug(ctx, "skipping non-ok response",
				zap.Int("index", i), zap.String("URL", u), zap.Int("status", res.StatusCode))

			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not download %s: %w", u, err)
		}
		out = append(out, res.Body)
	}

	return out, nil
}

// Concurrent fetches all urls at once. The result has one entry per URL, in
// input order; a non-2xx response leaves its entry empty. The first other
// failure cancels the remaining fetches and is returned.
func (d *Downloader) Concurrent(ctx context.Context, urls []string) ([][]byte, error) {
	return Gather(ctx, d, urls, func(res fetch.Response, err error) ([]byte, error) {
		if errors.Is(err, serrors.ErrBadStatus) {
			return []byte{}, nil
		}
		if err != nil {
			return nil, err
		}

		return res.Body, nil
	})
}

// fetch wraps a single Client.Fetch with the rate limiter, when enabled.
func (d *Downloader) fetch(ctx context.Context, u string) (fetch.Response, error) {
	if d.rl == nil {
		return d.client.Fetch(ctx, u) //nolint: wrapcheck
	}

	if err := d.rl.reserve(ctx); err != nil {
		return fetch.Response{}, err
	}
	res, err := d.client.Fetch(ctx, u)
	d.rl.release(ctx, res.RateLimit)

	return res, err //nolint: wrapcheck
}
