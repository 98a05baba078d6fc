package download_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dlbench/internal/download"
	"dlbench/pkg/domain"
	"dlbench/pkg/fetch"
	"dlbench/pkg/fetch/httpfetch"
	mockfetch "dlbench/pkg/fetch/mock"
	"dlbench/pkg/serrors"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func urlsN(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
	}

	return urls
}

func newTestDownloader(t *testing.T, opts download.Options) (*mockfetch.MockClient, *download.Downloader) {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mockfetch.NewMockClient(ctrl)

	return client, download.New(client, opts)
}

func ok(body string) fetch.Response {
	return fetch.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func badStatus(code int) (fetch.Response, error) {
	return fetch.Response{StatusCode: code, Body: []byte{}}, serrors.With(serrors.ErrBadStatus, "unexpected status %d", code)
}

func TestDownloader_Sequential_InOrder(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(3)

	gomock.InOrder(
		client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok("a"), nil),
		client.EXPECT().Fetch(gomock.Any(), urls[1]).Return(ok("b"), nil),
		client.EXPECT().Fetch(gomock.Any(), urls[2]).Return(ok("c"), nil),
	)

	got, err := d.Sequential(context.Background(), urls)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, got)
}

func TestDownloader_Sequential_SkipsNonOK(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(3)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok("a"), nil)
	client.EXPECT().Fetch(gomock.Any(), urls[1]).Return(badStatus(http.StatusNotFound))
	client.EXPECT().Fetch(gomock.Any(), urls[2]).Return(ok("c"), nil)

	got, err := d.Sequential(context.Background(), urls)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("c")}, got)
}

func TestDownloader_Sequential_AbortsOnTransportError(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(3)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok("a"), nil)
	client.EXPECT().Fetch(gomock.Any(), urls[1]).
		Return(fetch.Response{}, serrors.With(serrors.ErrUnavailable, "connection refused"))

	_, err := d.Sequential(context.Background(), urls)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Contains(t, err.Error(), urls[1])
}

func TestDownloader_Sequential_Empty(t *testing.T) {
	_, d := newTestDownloader(t, download.Options{})

	got, err := d.Sequential(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDownloader_Concurrent_PreservesOrder(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(10)

	for i, u := range urls {
		// later URLs finish first
		delay := time.Duration(len(urls)-i) * 2 * time.Millisecond
		client.EXPECT().Fetch(gomock.Any(), u).DoAndReturn(func(context.Context, string) (fetch.Response, error) {
			time.Sleep(delay)

			return ok(u), nil
		})
	}

	got, err := d.Concurrent(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, got, len(urls))
	for i, u := range urls {
		require.Equal(t, u, string(got[i]))
	}
}

func TestDownloader_Concurrent_EmptySlotForNonOK(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(3)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok("a"), nil)
	client.EXPECT().Fetch(gomock.Any(), urls[1]).Return(badStatus(http.StatusInternalServerError))
	client.EXPECT().Fetch(gomock.Any(), urls[2]).Return(ok("c"), nil)

	got, err := d.Concurrent(context.Background(), urls)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), {}, []byte("c")}, got)
}

func TestDownloader_Concurrent_ErrorCancelsOthers(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(4)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).
		Return(fetch.Response{}, serrors.With(serrors.ErrUnavailable, "boom"))
	for _, u := range urls[1:] {
		client.EXPECT().Fetch(gomock.Any(), u).DoAndReturn(func(ctx context.Context, _ string) (fetch.Response, error) {
			select {
			case <-ctx.Done():
				return fetch.Response{}, ctx.Err()
			case <-time.After(5 * time.Second):
				return ok("late"), nil
			}
		})
	}

	start := time.Now()
	_, err := d.Concurrent(context.Background(), urls)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestDownloader_Concurrent_RespectsConcurrency(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{Concurrency: 2})
	urls := urlsN(8)

	var active, peak atomic.Int32
	client.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(len(urls)).
		DoAndReturn(func(context.Context, string) (fetch.Response, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)

			return ok("x"), nil
		})

	got, err := d.Concurrent(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, got, len(urls))
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDownloader_Run(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(2)

	client.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(4).Return(ok("x"), nil)

	for _, mode := range domain.Modes() {
		got, err := d.Run(context.Background(), mode, urls)
		require.NoError(t, err)
		require.Len(t, got, 2)
	}

	_, err := d.Run(context.Background(), domain.Mode("parallel"), urls)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestDownloader_GatherJSON(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(2)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok(`{"id": 1, "title": "delectus aut autem"}`), nil)
	client.EXPECT().Fetch(gomock.Any(), urls[1]).Return(badStatus(http.StatusNotFound))

	got, err := d.GatherJSON(context.Background(), urls)
	require.NoError(t, err)
	require.Equal(t, []map[string]any{
		{"id": int64(1), "title": "delectus aut autem"},
		{},
	}, got)
}

func TestDownloader_GatherJSON_DecodeError(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})

	client.EXPECT().Fetch(gomock.Any(), "https://example.com/0").Return(ok("not json"), nil)

	_, err := d.GatherJSON(context.Background(), urlsN(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not decode JSON")
}

func TestDownloader_GatherCSV(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	urls := urlsN(2)

	client.EXPECT().Fetch(gomock.Any(), urls[0]).Return(ok("a;b\nc;d\n"), nil)
	client.EXPECT().Fetch(gomock.Any(), urls[1]).Return(badStatus(http.StatusBadGateway))

	got, err := d.GatherCSV(context.Background(), urls, ';')
	require.NoError(t, err)
	require.Equal(t, [][][]string{
		{{"a", "b"}, {"c", "d"}},
		{{""}},
	}, got)
}

func TestDownloader_EndToEnd(t *testing.T) {
	const todo = `{"userId": 1, "id": 1, "title": "delectus aut autem", "completed": false}`

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.NotFound(w, r)

			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, todo)
	}))
	t.Cleanup(srv.Close)

	client, err := httpfetch.New(httpfetch.NewHTTPClient(5*time.Second, 100), httpfetch.Options{})
	require.NoError(t, err)
	d := download.New(client, download.Options{})

	urls, err := download.Batch(srv.URL+"/todos/1", 50)
	require.NoError(t, err)

	seq, err := d.Sequential(context.Background(), urls)
	require.NoError(t, err)
	conc, err := d.Concurrent(context.Background(), urls)
	require.NoError(t, err)

	require.Len(t, seq, 50)
	require.Equal(t, seq, conc)
	require.JSONEq(t, todo, string(seq[0]))
	require.Equal(t, int32(100), hits.Load())

	mixed := []string{srv.URL + "/todos/1", srv.URL + "/missing"}
	seq, err = d.Sequential(context.Background(), mixed)
	require.NoError(t, err)
	require.Len(t, seq, 1)
	conc, err = d.Concurrent(context.Background(), mixed)
	require.NoError(t, err)
	require.Len(t, conc, 2)
	require.Empty(t, conc[1])
}

func TestDownloader_Concurrent_CanceledContext(t *testing.T) {
	client, d := newTestDownloader(t, download.Options{})
	client.EXPECT().Fetch(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(ctx context.Context, _ string) (fetch.Response, error) {
			return fetch.Response{}, ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Concurrent(ctx, urlsN(3))
	require.True(t, errors.Is(err, context.Canceled))
}
