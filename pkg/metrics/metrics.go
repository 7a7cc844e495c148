// Package metrics exports wizard transitions and HTTP traffic as Prometheus
// metrics. A Collector is a wizard.Observer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Config controls metric naming.
type Config struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	Subsystem string `mapstructure:"subsystem" yaml:"subsystem" json:"subsystem"`
	Path      string `mapstructure:"path" yaml:"path" json:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Namespace: "formwizard", Path: "/metrics"}
}

// Collector owns a private registry with the wizard metric vectors.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	Transitions    *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	SubmitDuration *prometheus.HistogramVec
	ActiveSessions *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

var _ wizard.Observer = (*Collector)(nil)

// New registers the metric vectors on a fresh registry.
func New(cfg Config) *Collector {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	ns, sub := cfg.Namespace, cfg.Subsystem
	c := &Collector{config: cfg, registry: prometheus.NewRegistry()}

	c.Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "wizard_transitions_total",
		Help:      "Wizard state transitions by event type.",
	}, []string{"wizard", "event"})
	c.Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "wizard_submissions_total",
		Help:      "Completed wizard submissions by outcome.",
	}, []string{"wizard", "status"})
	c.SubmitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "wizard_submit_duration_seconds",
		Help:      "Time spent in the external submit call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"wizard"})
	c.ActiveSessions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "wizard_active_sessions",
		Help:      "Sessions started and not yet submitted or exited.",
	}, []string{"wizard"})
	c.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by the wizard host.",
	}, []string{"method", "route", "status_code"})
	c.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: sub,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the wizard host.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	c.registry.MustRegister(
		c.Transitions,
		c.Submissions,
		c.SubmitDuration,
		c.ActiveSessions,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Path returns the configured scrape path.
func (c *Collector) Path() string { return c.config.Path }

// Registry exposes the registry for extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Observe implements wizard.Observer.
func (c *Collector) Observe(event wizard.Event) {
	name := event.Wizard
	c.Transitions.WithLabelValues(name, string(event.Type)).Inc()

	switch event.Type {
	case wizard.EventStarted:
		c.ActiveSessions.WithLabelValues(name).Inc()
	case wizard.EventExited:
		c.ActiveSessions.WithLabelValues(name).Dec()
	case wizard.EventSubmitted:
		c.ActiveSessions.WithLabelValues(name).Dec()
		c.Submissions.WithLabelValues(name, "success").Inc()
		c.SubmitDuration.WithLabelValues(name).Observe(event.Duration.Seconds())
	case wizard.EventSubmitFailed:
		c.Submissions.WithLabelValues(name, "failure").Inc()
		c.SubmitDuration.WithLabelValues(name).Observe(event.Duration.Seconds())
	}
}

// RecordHTTPRequest records one served request. route should be the route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
