package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. A nil *Collector is valid and records nothing.
type Collector struct {
	registry             *prometheus.Registry
	registrations        *prometheus.CounterVec
	registrationDuration prometheus.Histogram
	uploads              *prometheus.CounterVec
	wizardTransitions    *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "symposium",
			Name:      "registrations_total",
			Help:      "Registration submissions by outcome.",
		}, []string{"outcome"}),
		registrationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "symposium",
			Name:      "registration_duration_seconds",
			Help:      "Time spent in the registration write path.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "symposium",
			Name:      "uploads_total",
			Help:      "Payment proof uploads by backend and outcome.",
		}, []string{"backend", "outcome"}),
		wizardTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "symposium",
			Name:      "wizard_transitions_total",
			Help:      "Wizard step transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "symposium",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.registrations,
		c.registrationDuration,
		c.uploads,
		c.wizardTransitions,
		c.httpDuration,
	)
	return c
}

func (c *Collector) ObserveRegistration(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.registrations.WithLabelValues(outcome).Inc()
	c.registrationDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveUpload(backend, outcome string) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(backend, outcome).Inc()
}

func (c *Collector) ObserveWizard(action, outcome string) {
	if c == nil {
		return
	}
	c.wizardTransitions.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records latency per chi route pattern, not per raw path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
