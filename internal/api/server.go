// Package api configures the HTTP server of the benchmark service: the v1
// routes, API docs, metrics, profiling and the middleware chain.
package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"dlbench/internal/api/handler/v1handler"
	"dlbench/internal/config"
	"dlbench/pkg/controller"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

// v1Spec is the OpenAPI document of the v1 API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds the server settings. Zero durations fall back to net/http
// defaults.
type Options struct {
	SecHandlerOptions *v1handler.SecHandlerOptions

	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// RequestTimeout bounds the context of each request.
	RequestTimeout time.Duration
	MaxHeaderBytes int
	// MetricsPath is where Prometheus metrics are served.
	MetricsPath string
	// CORSOrigins lists the allowed browser origins; empty allows any.
	CORSOrigins []string
}

func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: v1handler.NewSecHandlerOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
	}
}

type Deps struct {
	v1handler.Deps

	// Registry receives the HTTP collectors and backs MetricsPath.
	Registry *prometheus.Registry
}

// NewHandler builds the routed and instrumented handler of the server.
func NewHandler(deps Deps, opts Options) (http.Handler, error) {
	mux := http.NewServeMux()

	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /specs/v1.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	mux.Handle("/v1/docs/", v5emb.New(
		"Download Benchmark Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	secHandler, err := v1handler.NewSecHandler(opts.SecHandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create sec handler: %w", err)
	}
	v1handler.New(deps.Deps).Register(mux, secHandler)

	controller.RegisterPprof(mux)

	httpMetrics, err := controller.NewHTTPMetrics(deps.Registry)
	if err != nil {
		return nil, fmt.Errorf("could not create http metrics: %w", err)
	}

	return controller.Chain(mux,
		controller.WithLogger,
		controller.WithCORS(opts.CORSOrigins...),
		controller.WithTimeout(opts.RequestTimeout),
		httpMetrics.Wrap,
	), nil
}

// NewServer returns an *http.Server serving NewHandler on opts.Addr.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	handler, err := NewHandler(deps, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
