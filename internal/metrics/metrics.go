// Package metrics provides Prometheus metrics for the LinkVibez service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkvibez"

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	swipes           *prometheus.CounterVec
	matchesShown     prometheus.Counter
	likeWriteErrors  prometheus.Counter
	decksLoaded      *prometheus.CounterVec
	vibeRequests     *prometheus.CounterVec
	staleAnnotations prometheus.Counter
	messagesSent     prometheus.Counter
	toneFallbacks    prometheus.Counter
	feedSubscribers  prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		swipes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "swipe", Name: "decisions_total",
			Help: "Swipe decisions by kind (like, pass).",
		}, []string{"decision"}),
		matchesShown: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "swipe", Name: "matches_shown_total",
			Help: "Likes that crossed the chemistry threshold.",
		}),
		likeWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "swipe", Name: "like_write_errors_total",
			Help: "Like or pass records that failed to persist.",
		}),
		decksLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "deck", Name: "loads_total",
			Help: "Deck loads by outcome (ok, empty, error).",
		}, []string{"outcome"}),
		vibeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "wingman", Name: "vibe_requests_total",
			Help: "Vibe annotation requests by outcome (ready, unavailable).",
		}, []string{"outcome"}),
		staleAnnotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "wingman", Name: "stale_annotations_total",
			Help: "Annotations discarded because the cursor had moved on.",
		}),
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chat", Name: "messages_sent_total",
			Help: "Chat messages persisted.",
		}),
		toneFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chat", Name: "tone_fallbacks_total",
			Help: "Sends that continued without a tone analysis.",
		}),
		feedSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "chat", Name: "feed_subscribers",
			Help: "Open chat feed subscriptions.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Swipe(decision string) {
	if m == nil {
		return
	}
	m.swipes.WithLabelValues(decision).Inc()
}

func (m *Metrics) MatchShown() {
	if m == nil {
		return
	}
	m.matchesShown.Inc()
}

func (m *Metrics) LikeWriteFailed() {
	if m == nil {
		return
	}
	m.likeWriteErrors.Inc()
}

func (m *Metrics) DeckLoaded(outcome string) {
	if m == nil {
		return
	}
	m.decksLoaded.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VibeRequest(outcome string) {
	if m == nil {
		return
	}
	m.vibeRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StaleAnnotation() {
	if m == nil {
		return
	}
	m.staleAnnotations.Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) ToneFallback() {
	if m == nil {
		return
	}
	m.toneFallbacks.Inc()
}

// FeedSubscribed adjusts the open subscription gauge by delta (+1 or -1).
func (m *Metrics) FeedSubscribed(delta int) {
	if m == nil {
		return
	}
	m.feedSubscribers.Add(float64(delta))
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
