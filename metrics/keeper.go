package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/ledger"
)

var (
	keeperPassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "keeper",
		Name:      "pass_total",
		Help:      "Count of keeper maintenance passes.",
	}, []string{"network", "status"})

	keeperPassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "keeper",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a keeper maintenance pass.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	keeperOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "keeper",
		Name:      "operations_total",
		Help:      "Count of maintenance operations submitted, by error class.",
	}, []string{"network", "op", "class"})

	keeperClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "keeper",
		Name:      "claims_total",
		Help:      "Count of death claims accepted from the keeper.",
	}, []string{"network", "tier"})
)

// Keeper records keeper activity.
type Keeper struct {
	network string
}

func NewKeeper(network string) *Keeper {
	if network == "" {
		network = "unknown"
	}
	return &Keeper{network: network}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Keeper) ObservePass(err error, started time.Time) {
	keeperPassTotal.WithLabelValues(m.network, status(err)).Inc()
	keeperPassDuration.WithLabelValues(m.network, status(err)).Observe(time.Since(started).Seconds())
}

func (m *Keeper) ObserveOperation(op string, err error) {
	class := string(ledger.Class(err))
	if class == "" {
		class = "none"
	}
	keeperOperationsTotal.WithLabelValues(m.network, op, class).Inc()
}

func (m *Keeper) ObserveClaims(t inter.Tier, accepted int) {
	keeperClaimsTotal.WithLabelValues(m.network, tierLabel(t)).Add(float64(accepted))
}
