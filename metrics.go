package cachetrip

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup and write result labels.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultStale  = "stale"
	resultBypass = "bypass"
	resultError  = "error"
	resultOK     = "ok"
	resultSkip   = "skipped"
)

// Metrics instruments a Transport. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
	writes  *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cachetrip_lookups_total",
		Help: "Total cache lookups by result",
	}, []string{"result"})

	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cachetrip_writes_total",
		Help: "Total cache write-backs by result",
	}, []string{"result"})

	reg.MustRegister(lookups, writes)

	return &Metrics{
		lookups: lookups,
		writes:  writes,
	}
}

func (m *Metrics) observeLookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeWrite(result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result).Inc()
}
