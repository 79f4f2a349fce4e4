package proxy

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the proxy. Each Metrics
// owns its registry, so independent proxies (and tests) do not collide on
// the default one.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal prometheus.Counter
	bytesRelayed     *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	roomsTotal       prometheus.Gauge
	syncState        *prometheus.GaugeVec
}

// NewMetrics creates and registers the proxy's Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomapper_connections_total",
			Help: "Player connections accepted since start.",
		}),
		bytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomapper_bytes_relayed_total",
			Help: "Bytes relayed, by originating side.",
		}, []string{"side"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomapper_events_total",
			Help: "Typed events recovered from the game stream.",
		}, []string{"type"}),
		roomsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomapper_rooms_total",
			Help: "Rooms in the world model.",
		}),
		syncState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gomapper_sync_state",
			Help: "Synchronizer state (1 on the active state).",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		m.connectionsTotal,
		m.bytesRelayed,
		m.eventsTotal,
		m.roomsTotal,
		m.syncState,
	)
	return m
}

func (m *Metrics) ConnectionOpened() { m.connectionsTotal.Inc() }

func (m *Metrics) BytesRelayed(side string, n int) {
	m.bytesRelayed.WithLabelValues(side).Add(float64(n))
}

func (m *Metrics) EventSeen(eventType string) {
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SetRooms(n int) { m.roomsTotal.Set(float64(n)) }

func (m *Metrics) SetSyncState(state string) {
	for _, s := range []string{"unsynced", "synced", "tentative"} {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.syncState.WithLabelValues(s).Set(value)
	}
}

// ListenAndServe exposes /metrics on the given address.
func (m *Metrics) ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	log.Printf("metrics: listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics: %v", err)
	}
}
