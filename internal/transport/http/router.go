package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cookiegate/internal/platform/health"
	"cookiegate/pkg/platform/middleware/device"
	"cookiegate/pkg/platform/middleware/metadata"
	"cookiegate/pkg/platform/middleware/request"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultMaxBodyBytes   = 16 << 10
)

// Routes is implemented by feature handlers that mount their own endpoints.
type Routes interface {
	Register(r chi.Router)
}

// Config collects what NewRouter needs. Zero values fall back to defaults;
// nil Metrics disables request metrics.
type Config struct {
	Logger         *slog.Logger
	Health         *health.Handler
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	Metadata       *metadata.Config
	Device         device.Config
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires the middleware stack, platform endpoints and every feature
// handler.
func NewRouter(cfg Config, features ...Routes) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(metadata.NewMiddleware(cfg.Metadata).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.Instrument(cfg.Metrics, routePattern))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", metricsHandler(cfg.Gatherer))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.BodyLimit(maxBody))
		r.Use(request.ContentTypeJSON)
		r.Use(device.Device(cfg.Device))
		for _, f := range features {
			f.Register(r)
		}
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
