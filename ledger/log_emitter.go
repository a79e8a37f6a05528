package ledger

import (
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
)

// LogEmitter writes every committed event as a structured log entry.
type LogEmitter struct {
	Log   logrus.FieldLogger
	Level logrus.Level
}

// NewLogEmitter logs events to log at info level.
func NewLogEmitter(log logrus.FieldLogger) *LogEmitter {
	return &LogEmitter{Log: log, Level: logrus.InfoLevel}
}

func (e *LogEmitter) Emit(ev inter.Event) {
	entry := e.Log.WithFields(EventFields(ev))
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug("Ledger event")
	default:
		entry.Info("Ledger event")
	}
}

// EventFields flattens ev into log fields.
func EventFields(ev inter.Event) logrus.Fields {
	f := logrus.Fields{"event": string(ev.Kind())}
	switch ev := ev.(type) {
	case *inter.Joined:
		f["participant"] = ev.Participant.Hex()
		f["tier"] = ev.Tier
		f["amount"] = ev.Amount
		f["total"] = ev.TierTotalAfter
	case *inter.StakeAdded:
		f["participant"] = ev.Participant.Hex()
		f["tier"] = ev.Tier
		f["amount"] = ev.Amount
		f["stake"] = ev.StakeAfter
	case *inter.Withdrawn:
		f["participant"] = ev.Participant.Hex()
		f["tier"] = ev.Tier
		f["stake"] = ev.Stake
		f["reward"] = ev.Reward
	case *inter.RewardClaimed:
		f["participant"] = ev.Participant.Hex()
		f["reward"] = ev.Reward
		f["bonus"] = ev.Bonus
		f["closed"] = ev.Closed
	case *inter.BoostApplied:
		f["participant"] = ev.Participant.Hex()
		f["kind"] = ev.BoostKind
		f["magnitude"] = ev.Magnitude
		f["expiry"] = ev.Expiry
	case *inter.ScanStarted:
		f["tier"] = ev.Tier
		f["scan"] = ev.Scan
		f["seed"] = ev.Seed.Hex()
	case *inter.DeathRecorded:
		f["tier"] = ev.Tier
		f["scan"] = ev.Scan
		f["participant"] = ev.Participant.Hex()
		f["stake"] = ev.Stake
		f["roll"] = ev.Roll
		f["rate"] = ev.Rate
	case *inter.ScanFinalized:
		f["tier"] = ev.Tier
		f["scan"] = ev.Scan
		f["deaths"] = ev.DeathCount
		f["dead"] = ev.DeadCapital
	case *inter.CascadeDistributed:
		f["tier"] = ev.Tier
		f["source"] = ev.Source
		f["dead"] = ev.DeadCapital
		f["same"] = ev.SameTier
		f["upstream"] = ev.Upstream
		f["burn"] = ev.Burn
		f["protocol"] = ev.Protocol
	case *inter.Culled:
		f["tier"] = ev.Tier
		f["victim"] = ev.Victim.Hex()
		f["entrant"] = ev.Entrant.Hex()
		f["penalty"] = ev.Penalty
	case *inter.ResetTriggered:
		f["epoch"] = ev.Epoch
		f["beneficiary"] = ev.Beneficiary.Hex()
		f["deadline"] = ev.NextDeadline
	case *inter.PenaltySettled:
		f["participant"] = ev.Participant.Hex()
		f["epoch"] = ev.Epoch
		f["penalty"] = ev.Penalty
	case *inter.EmissionAdded:
		f["tier"] = ev.Tier
		f["amount"] = ev.Amount
	case *inter.DeadlineExtended:
		f["depositor"] = ev.Depositor.Hex()
		f["deadline"] = ev.DeadlineAfter
	}
	return f
}
