package logging

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GatewayMetrics is the gateway binary's small counter set, exposed on
// /metrics. The flight node has no network listener of its own, so
// these are gateway-only (§1 Non-goals exclude a display surface, not
// observability — but there is nothing to listen on, on the flight
// side, to expose this over).
type GatewayMetrics struct {
	registry        *prometheus.Registry
	PacketsReceived prometheus.Counter
	PacketsSent     prometheus.Counter
	PacketsLost     prometheus.Counter
	// FlightsRecorded is registered and exposed, but nothing in the
	// gateway increments it, so it always reads 0.
	FlightsRecorded prometheus.Counter
}

// NewGatewayMetrics registers a fresh counter set against its own
// registry so repeated construction in tests never panics on duplicate
// registration.
func NewGatewayMetrics() *GatewayMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &GatewayMetrics{
		registry: reg,
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "rocketavionics_gateway_packets_received_total",
			Help: "Radio frames received from the flight node.",
		}),
		PacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rocketavionics_gateway_packets_sent_total",
			Help: "Radio frames transmitted to the flight node (ACKs and commands).",
		}),
		PacketsLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "rocketavionics_gateway_packets_lost_total",
			Help: "Radio frames dropped for bad magic, length, or CRC.",
		}),
		FlightsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "rocketavionics_gateway_flights_recorded_total",
			Help: "Flights observed to complete via the flight-computer info/status stream.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this counter set.
func (m *GatewayMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
