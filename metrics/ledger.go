// Package metrics exports Prometheus metrics for the ledger and the keeper.
package metrics

import (
	"math/big"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

const namespace = "survival"

var (
	ledgerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "events_total",
		Help:      "Count of committed ledger events.",
	}, []string{"network", "kind"})

	ledgerTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tokens_total",
		Help:      "Tokens moved by the ledger, in whole tokens.",
	}, []string{"network", "tier", "flow"})

	ledgerDeathsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "deaths_total",
		Help:      "Count of positions eliminated by scans or culled.",
	}, []string{"network", "tier", "cause"})

	ledgerTierStake = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tier_stake",
		Help:      "Total live stake of a tier, in whole tokens.",
	}, []string{"network", "tier"})

	ledgerTierPositions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tier_positions",
		Help:      "Number of live positions in a tier.",
	}, []string{"network", "tier"})

	ledgerResetEpoch = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "reset_epoch",
		Help:      "Current reset epoch.",
	}, []string{"network"})
)

// Ledger turns committed ledger events into metrics. It implements
// ledger.Emitter.
type Ledger struct {
	network string
}

func NewLedger(network string) *Ledger {
	if network == "" {
		network = "unknown"
	}
	return &Ledger{network: network}
}

// tokens converts base units into whole tokens. Precision loss is
// acceptable for metrics.
func tokens(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(rules.Unit)).Float64()
	return f
}

func tierLabel(t inter.Tier) string {
	return strconv.Itoa(int(t))
}

func (m *Ledger) flow(t inter.Tier, flow string, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	ledgerTokensTotal.WithLabelValues(m.network, tierLabel(t), flow).Add(tokens(amount))
}

func (m *Ledger) stake(t inter.Tier, total *big.Int) {
	ledgerTierStake.WithLabelValues(m.network, tierLabel(t)).Set(tokens(total))
}

// Emit records ev.
func (m *Ledger) Emit(ev inter.Event) {
	ledgerEventsTotal.WithLabelValues(m.network, string(ev.Kind())).Inc()

	switch e := ev.(type) {
	case *inter.Joined:
		m.flow(e.Tier, "deposit", e.Amount)
		m.stake(e.Tier, e.TierTotalAfter)
		ledgerTierPositions.WithLabelValues(m.network, tierLabel(e.Tier)).Set(float64(e.LiveCount))
	case *inter.StakeAdded:
		m.flow(e.Tier, "deposit", e.Amount)
		m.stake(e.Tier, e.TierTotalAfter)
	case *inter.Withdrawn:
		m.flow(e.Tier, "withdraw", e.Stake)
		m.flow(e.Tier, "reward", e.Reward)
		m.stake(e.Tier, e.TierTotalAfter)
		ledgerTierPositions.WithLabelValues(m.network, tierLabel(e.Tier)).Dec()
	case *inter.RewardClaimed:
		m.flow(e.Tier, "reward", e.Reward)
		m.flow(e.Tier, "bonus", e.Bonus)
	case *inter.DeathRecorded:
		ledgerDeathsTotal.WithLabelValues(m.network, tierLabel(e.Tier), "scan").Inc()
		ledgerTierPositions.WithLabelValues(m.network, tierLabel(e.Tier)).Dec()
		m.stake(e.Tier, e.TierTotalAfter)
	case *inter.Culled:
		ledgerDeathsTotal.WithLabelValues(m.network, tierLabel(e.Tier), "cull").Inc()
		ledgerTierPositions.WithLabelValues(m.network, tierLabel(e.Tier)).Dec()
	case *inter.CascadeDistributed:
		m.flow(e.Tier, "cascade", e.DeadCapital)
		m.flow(e.Tier, "burn", e.Burn)
		m.flow(e.Tier, "protocol", e.Protocol)
	case *inter.PenaltySettled:
		m.flow(e.Tier, "penalty", e.Penalty)
		m.flow(e.Tier, "burn", e.Burn)
		m.flow(e.Tier, "protocol", e.Protocol)
	case *inter.EmissionAdded:
		m.flow(e.Tier, "emission", e.Amount)
	case *inter.ResetTriggered:
		ledgerResetEpoch.WithLabelValues(m.network).Set(float64(e.Epoch))
	}
}
