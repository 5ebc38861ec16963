package metrics

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authrelay"

// Registry owns a private prometheus registry so parallel tests and the two
// services never collide on the global default registerer.
type Registry struct {
	registry     *prometheus.Registry
	authOps      *prometheus.CounterVec
	rateLimits   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

func New(service string) *Registry {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	r := &Registry{
		registry: reg,
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "auth_operations_total",
			Help:        "Token lifecycle operations by outcome.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		rateLimits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_limit_decisions_total",
			Help:        "Rate limiter decisions by scope and outcome.",
			ConstLabels: constLabels,
		}, []string{"scope", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "HTTP responses by method and status class.",
			ConstLabels: constLabels,
		}, []string{"method", "class"}),
	}

	reg.MustRegister(
		r.authOps,
		r.rateLimits,
		r.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

func (r *Registry) ObserveAuthOperation(operation, outcome string) {
	if r == nil {
		return
	}
	r.authOps.WithLabelValues(operation, outcome).Inc()
}

func (r *Registry) ObserveRateLimit(scope, outcome string) {
	if r == nil {
		return
	}
	r.rateLimits.WithLabelValues(scope, outcome).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}

// Middleware counts every response by status class. Handler errors are
// rendered through the echo error handler first so the class reflects what
// the client received; the handler is a no-op once the response is committed.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
			}
			r.httpRequests.WithLabelValues(c.Request().Method, statusClass(status)).Inc()

			return err
		}
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
