package frogbot

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	postOutcomeCreated  = "created"
	postOutcomeUpdated  = "updated"
	postOutcomeRejected = "rejected"

	promptOutcomeCompleted = "completed"
	promptOutcomeTimeout   = "timeout"
	promptOutcomeCancelled = "cancelled"
)

// Metrics holds the bot's prometheus collectors. Each bot instance has
// its own registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Interactions     *prometheus.CounterVec
	Posts            *prometheus.CounterVec
	Prompts          *prometheus.CounterVec
	ImagesStored     *prometheus.CounterVec
	GatewayConnected prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Interactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frogbot_interactions_total",
				Help: "Discord interactions received, by type",
			},
			[]string{"type"},
		),
		Posts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frogbot_profile_posts_total",
				Help: "Profile publish attempts, by outcome",
			},
			[]string{"outcome"},
		),
		Prompts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frogbot_prompts_total",
				Help: "Interactive prompts finished, by outcome",
			},
			[]string{"outcome"},
		),
		ImagesStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frogbot_images_stored_total",
				Help: "Uploaded images re-hosted, by backend",
			},
			[]string{"backend"},
		),
		GatewayConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "frogbot_gateway_connected",
				Help: "1 while the discord gateway websocket is connected",
			},
		),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) interaction(typ string) {
	m.Interactions.WithLabelValues(typ).Inc()
}

func (m *Metrics) post(outcome string) {
	m.Posts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) prompt(outcome string) {
	m.Prompts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) imageStored(backend string) {
	m.ImagesStored.WithLabelValues(backend).Inc()
}
