// Package httpfetch provides a fetch.Client implementation backed by
// net/http. Bodies are read in fixed-size chunks and every request is recorded
// on OpenTelemetry instruments.
package httpfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"dlbench/pkg/fetch"
	"dlbench/pkg/metrics"
	"dlbench/pkg/serrors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	// DefaultChunkSize is the number of bytes requested per body read.
	DefaultChunkSize = 1024

	// maxDrain bounds how much of a non-2xx body is drained to keep the
	// connection reusable.
	maxDrain = 64 << 10
)

// Options configure a Client.
type Options struct {
	// ChunkSize is the number of bytes requested per body read. Zero means DefaultChunkSize.
	ChunkSize int
	// InactivityTimeout aborts a request when no data arrives for this long. Zero disables it.
	InactivityTimeout time.Duration
	// UserAgent is sent with every request when non-empty.
	UserAgent string
	// Meter records request instruments. Nil means a no-op meter.
	Meter metric.Meter
}

// Client fetches URLs over HTTP and fulfills the fetch.Client interface. It is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options

	requests metric.Int64Counter
	received metric.Int64Counter
	duration metric.Float64Histogram
}

// Ensure Client conforms to the fetch.Client interface at compile time.
var _ fetch.Client = (*Client)(nil)

// New constructs a Client that performs requests with httpClient.
func New(httpClient *http.Client, opts Options) (*Client, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	meter := opts.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("dlbench/fetch")
	}

	requests, err := meter.Int64Counter("dlbench.fetch.requests",
		metric.WithDescription("Number of GET requests performed, by outcome."))
	if err != nil {
		return nil, fmt.Errorf("could not create requests counter: %w", err)
	}
	received, err := meter.Int64Counter("dlbench.fetch.received",
		metric.WithDescription("Body bytes received."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("could not create received counter: %w", err)
	}
	duration, err := meter.Float64Histogram("dlbench.fetch.duration",
		metric.WithDescription("Time to fetch a whole response body."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		requests:   requests,
		received:   received,
		duration:   duration,
	}, nil
}

// NewHTTPClient returns an *http.Client with an overall request timeout and a
// per-host connection limit. Zero values keep the net/http defaults.
func NewHTTPClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint: forcetypeassert
	if maxConnsPerHost > 0 {
		transport.MaxConnsPerHost = maxConnsPerHost
		transport.MaxIdleConnsPerHost = maxConnsPerHost
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Fetch performs a GET on URL and reads the whole body in chunks.
func (c *Client) Fetch(ctx context.Context, URL string) (fetch.Response, error) {
	start := time.Now()
	res, err := c.fetch(ctx, URL)
	c.observe(ctx, res, err, time.Since(start))

	return res, err
}

func (c *Client) fetch(parent context.Context, URL string) (fetch.Response, error) {
	ctx, wd := newWatchdog(parent, c.opts.InactivityTimeout)
	defer wd.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return fetch.Response{}, serrors.Wrap(serrors.ErrBadRequest, err, "could not create request")
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fetch.Response{}, classify(ctx, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out := fetch.Response{
		StatusCode: resp.StatusCode,
		Body:       []byte{},
		RateLimit:  fetch.ParseRateLimit(resp.Header),
	}
	if !out.OK() {
		_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
		if resp.StatusCode == http.StatusTooManyRequests {
			return out, serrors.Wrap(serrors.ErrBadStatus, serrors.KindOnly(serrors.ErrRateLimited),
				"unexpected status %d from %s", resp.StatusCode, URL)
		}

		return out, serrors.With(serrors.ErrBadStatus, "unexpected status %d from %s", resp.StatusCode, URL)
	}

	body, err := readChunks(resp.Body, c.opts.ChunkSize, wd)
	if err != nil {
		return out, classify(ctx, err, "could not read response body")
	}
	out.Body = body

	return out, nil
}

// readChunks reads r until EOF, chunkSize bytes at a time, kicking wd after
// every chunk that carried data.
func readChunks(r io.Reader, chunkSize int, wd *watchdog) ([]byte, error) {
	var out bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			out.Write(chunk[:n])
			wd.Kick()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if out.Len() == 0 {
		return []byte{}, nil
	}

	return out.Bytes(), nil
}

// classify maps a transport error to a semantic kind. Caller cancellation is
// passed through unchanged so errors.Is(err, context.Canceled) keeps working.
func classify(ctx context.Context, err error, msg string) error {
	if errors.Is(context.Cause(ctx), os.ErrDeadlineExceeded) {
		return serrors.Wrap(serrors.ErrTimeout, err, "%s: no data received within inactivity timeout", msg)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return serrors.Wrap(serrors.ErrTimeout, err, "%s", msg)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	return serrors.Wrap(serrors.ErrUnavailable, err, "%s", msg)
}

func (c *Client) observe(ctx context.Context, res fetch.Response, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, serrors.ErrBadStatus):
		outcome = "bad_status"
	case err != nil:
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("status_code", res.StatusCode),
	)

	// the caller's context may already be canceled; instruments must still record.
	ctx = context.WithoutCancel(ctx)
	c.requests.Add(ctx, 1, attrs)
	c.duration.Record(ctx, elapsed.Seconds(), attrs)
	if len(res.Body) > 0 {
		c.received.Add(ctx, int64(len(res.Body)))
	}
}
