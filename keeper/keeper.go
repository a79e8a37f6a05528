// Package keeper runs the permissionless maintenance of a ledger: it starts
// due scans, claims the positions their seeds doom, finalizes scans whose
// submission window has closed and triggers resets once the deadline passed.
//
// Anyone may perform these operations; the keeper only saves participants
// from having to. It reads the ledger through the same verdict function the
// ledger uses, so every claim it submits is accepted.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/ledger"
)

// Observer receives keeper activity, typically metrics.Keeper.
type Observer interface {
	ObservePass(err error, started time.Time)
	ObserveOperation(op string, err error)
	ObserveClaims(t inter.Tier, accepted int)
}

type nopObserver struct{}

func (nopObserver) ObservePass(error, time.Time)   {}
func (nopObserver) ObserveOperation(string, error) {}
func (nopObserver) ObserveClaims(inter.Tier, int)  {}

// Config tunes the keeper.
type Config struct {
	// Schedule is a cron spec such as "@every 30s".
	Schedule string
	// Batch is the largest death-claim batch submitted at once. It is
	// clamped to the ledger's own limit.
	Batch int
	// Submitter is the address death claims are submitted from.
	Submitter common.Address
}

// Report summarizes one maintenance pass.
type Report struct {
	ID        uuid.UUID
	Started   []inter.Tier
	Finalized []inter.Tier
	Claims    int
	Rejected  int
	Reset     bool
}

// Keeper is safe to run alongside other ledger users as long as they go
// through the same Executor.
type Keeper struct {
	ex       *ledger.Executor
	cfg      Config
	log      logrus.FieldLogger
	observer Observer

	// OnPass, when set, is called after every scheduled pass.
	OnPass func(Report, error)

	cron *cron.Cron
}

// New creates a keeper operating on ex. A nil observer disables metrics.
func New(ex *ledger.Executor, cfg Config, log logrus.FieldLogger, observer Observer) *Keeper {
	if observer == nil {
		observer = nopObserver{}
	}
	ex.View(func(l *ledger.Ledger) {
		if max := l.Rules().Scan.MaxBatch; cfg.Batch <= 0 || cfg.Batch > max {
			cfg.Batch = max
		}
	})
	return &Keeper{
		ex:       ex,
		cfg:      cfg,
		log:      log,
		observer: observer,
	}
}

// expected reports whether err only means there was nothing to do.
func expected(err error) bool {
	return errors.Is(err, ledger.ErrScanNotDue) ||
		errors.Is(err, ledger.ErrNoActiveScan) ||
		errors.Is(err, ledger.ErrWindowOpen) ||
		errors.Is(err, ledger.ErrResetNotDue)
}

func (k *Keeper) do(log logrus.FieldLogger, op string, fn func(l *ledger.Ledger) error) (bool, error) {
	err := k.ex.Do(fn)
	k.observer.ObserveOperation(op, err)
	switch {
	case err == nil:
		return true, nil
	case expected(err):
		return false, nil
	default:
		log.WithError(err).WithField("op", op).Warn("Maintenance operation failed")
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// Pass performs one maintenance round over every tier.
func (k *Keeper) Pass() (Report, error) {
	rep := Report{ID: uuid.New()}
	started := time.Now()
	log := k.log.WithField("pass", rep.ID.String())

	var passErr error
	keep := func(err error) {
		if err != nil && passErr == nil {
			passErr = err
		}
	}
	for _, tier := range inter.AllTiers() {
		keep(k.maintain(log, tier, &rep))
	}
	ok, err := k.do(log, "triggerReset", func(l *ledger.Ledger) error {
		return l.TriggerReset()
	})
	keep(err)
	rep.Reset = ok

	k.observer.ObservePass(passErr, started)
	log.WithFields(logrus.Fields{
		"started":   len(rep.Started),
		"finalized": len(rep.Finalized),
		"claims":    rep.Claims,
		"rejected":  rep.Rejected,
		"reset":     rep.Reset,
		"elapsed":   time.Since(started),
	}).Debug("Keeper pass done")
	return rep, passErr
}

func (k *Keeper) maintain(log logrus.FieldLogger, tier inter.Tier, rep *Report) error {
	log = log.WithField("tier", tier)

	var active bool
	k.ex.View(func(l *ledger.Ledger) {
		_, active = l.ActiveScan(tier)
	})
	if !active {
		ok, err := k.do(log, "startScan", func(l *ledger.Ledger) error {
			return l.StartScan(tier)
		})
		if err != nil || !ok {
			return err
		}
		rep.Started = append(rep.Started, tier)
	}

	if err := k.claim(log, tier, rep); err != nil {
		return err
	}

	ok, err := k.do(log, "finalizeScan", func(l *ledger.Ledger) error {
		return l.FinalizeScan(tier)
	})
	if ok {
		rep.Finalized = append(rep.Finalized, tier)
	}
	return err
}

// claim submits every doomed position of the active scan in batches.
func (k *Keeper) claim(log logrus.FieldLogger, tier inter.Tier, rep *Report) error {
	var doomed []common.Address
	k.ex.View(func(l *ledger.Ledger) {
		doomed = l.Doomed(tier)
	})
	for len(doomed) > 0 {
		n := k.cfg.Batch
		if n > len(doomed) {
			n = len(doomed)
		}
		batch := doomed[:n]
		doomed = doomed[n:]

		var claims ledger.ClaimReport
		_, err := k.do(log, "submitDeathClaims", func(l *ledger.Ledger) error {
			var err error
			claims, err = l.SubmitDeathClaims(k.cfg.Submitter, tier, batch)
			return err
		})
		if err != nil {
			return err
		}
		k.observer.ObserveClaims(tier, len(claims.Recorded))
		rep.Claims += len(claims.Recorded)
		rep.Rejected += len(claims.Rejected)
	}
	return nil
}

// Start schedules passes in the background.
func (k *Keeper) Start() error {
	logger := cron.PrintfLogger(k.log)
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(k.cfg.Schedule, k.scheduled); err != nil {
		return fmt.Errorf("keeper schedule %q: %w", k.cfg.Schedule, err)
	}
	k.cron = c
	c.Start()
	k.log.WithField("schedule", k.cfg.Schedule).Info("Keeper started")
	return nil
}

func (k *Keeper) scheduled() {
	rep, err := k.Pass()
	if k.OnPass != nil {
		k.OnPass(rep, err)
	}
}

// Stop stops scheduling and waits for a running pass to finish.
func (k *Keeper) Stop() {
	if k.cron == nil {
		return
	}
	<-k.cron.Stop().Done()
	k.cron = nil
	k.log.Info("Keeper stopped")
}

// Run starts the keeper and stops it once ctx is done.
func (k *Keeper) Run(ctx context.Context) error {
	if err := k.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	k.Stop()
	return nil
}
