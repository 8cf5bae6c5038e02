// Package metrics exposes the coordinator's observability hook as
// Prometheus series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tidewallet/tidewallet/internal/wallet"
)

// Sink implements wallet.EventSink over a Prometheus registry. It is also
// a channel observer via ObserveExchange.
type Sink struct {
	sessionsActive  prometheus.Gauge
	sessionEvents   *prometheus.CounterVec
	signTotal       *prometheus.CounterVec
	exchangeSeconds prometheus.Histogram
}

// NewSink registers the coordinator metrics on reg.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_sessions_active",
			Help: "Number of wallet sessions currently in the store.",
		}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_session_events_total",
			Help: "Session lifecycle events by kind.",
		}, []string{"kind"}),
		signTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_sign_total",
			Help: "Signing operations by kind and result.",
		}, []string{"kind", "result"}),
		exchangeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_exchange_seconds",
			Help:    "Duration of external wallet exchanges.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(s.sessionsActive, s.sessionEvents, s.signTotal, s.exchangeSeconds)
	return s
}

// OnEvent consumes a coordinator event.
func (s *Sink) OnEvent(kind string, payload map[string]any) {
	switch kind {
	case wallet.EventSignCompleted:
		s.signTotal.WithLabelValues(signKind(payload), "ok").Inc()
	case wallet.EventSignFailed:
		s.signTotal.WithLabelValues(signKind(payload), "error").Inc()
	default:
		s.sessionEvents.WithLabelValues(kind).Inc()
	}

	if n, ok := payload["wallet_count"].(int); ok {
		s.sessionsActive.Set(float64(n))
	}
	if kind == wallet.EventDisconnectAll {
		s.sessionsActive.Set(0)
	}
}

// ObserveExchange records one completed exchange. Wire it with
// channel.WithObserver.
func (s *Sink) ObserveExchange(d time.Duration, _ error) {
	s.exchangeSeconds.Observe(d.Seconds())
}

func signKind(payload map[string]any) string {
	if kind, ok := payload["kind"].(string); ok {
		return kind
	}
	return "unknown"
}
