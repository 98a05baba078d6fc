package download

import (
	"context"
	"errors"
	"fmt"

	"dlbench/pkg/fetch"
	"dlbench/pkg/serrors"

	"golang.org/x/sync/errgroup"
)

// Gather fetches all urls concurrently and converts every outcome with fn.
// Results keep the order of urls. fn receives the Response together with the
// fetch error and decides whether the error is fatal; the first error it
// returns cancels the other fetches.
func Gather[T any](
	ctx context.Context,
	d *Downloader,
	urls []string,
	fn func(res fetch.Response, err error) (T, error),
) ([]T, error) {
	out := make([]T, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.Concurrency > 0 {
		g.SetLimit(d.opts.Concurrency)
	}
	for i, u := range urls {
		g.Go(func() error {
			res, err := d.fetch(gctx, u)
			v, err := fn(res, err)
			if err != nil {
				return fmt.Errorf("could not download %s: %w", u, err)
			}
			out[i] = v

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint: wrapcheck
	}

	return out, nil
}

// GatherJSON downloads urls concurrently and decodes each body as a JSON
// object. Non-2xx responses yield an empty object.
func (d *Downloader) GatherJSON(ctx context.Context, urls []string) ([]map[string]any, error) {
	return Gather(ctx, d, urls, func(res fetch.Response, err error) (map[string]any, error) {
		if errors.Is(err, serrors.ErrBadStatus) {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, err
		}

		v, err := fetch.DecodeJSON(res.Body)
		if err != nil {
			return nil, fmt.Errorf("could not decode JSON: %w", err)
		}

		return v, nil
	})
}

// GatherCSV downloads urls concurrently and splits each body into rows of
// delimiter separated fields. Non-2xx responses yield a single row holding one
// empty field.
func (d *Downloader) GatherCSV(ctx context.Context, urls []string, delimiter rune) ([][][]string, error) {
	return Gather(ctx, d, urls, func(res fetch.Response, err error) ([][]string, error) {
		if errors.Is(err, serrors.ErrBadStatus) {
			return [][]string{{""}}, nil
		}
		if err != nil {
			return nil, err
		}

		rows, err := fetch.DecodeCSV(res.Body, delimiter)
		if err != nil {
			return nil, fmt.Errorf("could not decode CSV: %w", err)
		}

		return rows, nil
	})
}
