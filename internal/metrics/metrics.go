// Package metrics holds the prometheus collectors for the ordering core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service exports. Build one per
// registry; tests use a fresh registry so counters start at zero.
type Metrics struct {
	registry *prometheus.Registry

	OrdersPlaced        *prometheus.CounterVec
	SeatConflicts       prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
	SeatReleaseFailures prometheus.Counter
	RealtimeDropped     prometheus.Counter
	RealtimeClients     prometheus.Gauge
	BrokerPublishErrors prometheus.Counter
}

// New registers all collectors on a new registry. withRuntime adds the Go
// and process collectors served by cmd/server.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_orders_placed_total",
			Help: "Orders accepted, by order type.",
		}, []string{"order_type"}),
		SeatConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafe_seat_conflicts_total",
			Help: "Placements rejected because the seat was not available.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_order_status_transitions_total",
			Help: "Order status writes, by target status and whether an override was used.",
		}, []string{"status", "override"}),
		SeatReleaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafe_seat_release_failures_total",
			Help: "Status updates rolled back because the seat could not be released.",
		}),
		RealtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafe_realtime_dropped_total",
			Help: "Events not delivered to a websocket client because its buffer was full.",
		}),
		RealtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cafe_realtime_clients",
			Help: "Connected websocket clients.",
		}),
		BrokerPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafe_broker_publish_errors_total",
			Help: "Events that could not be mirrored to RabbitMQ.",
		}),
	}
	reg.MustRegister(m.OrdersPlaced, m.SeatConflicts, m.StatusTransitions,
		m.SeatReleaseFailures, m.RealtimeDropped, m.RealtimeClients, m.BrokerPublishErrors)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
