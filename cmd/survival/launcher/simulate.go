package launcher

import (
	"fmt"
	"io"
	"math/big"
	"math/rand"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-survival/integration"
	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/keeper"
	"github.com/rony4d/go-survival/ledger"
	"github.com/rony4d/go-survival/rules"
)

// simConfig drives a deterministic local run on the fake network.
type simConfig struct {
	Participants int
	Duration     time.Duration
	Step         time.Duration
	Seed         int64
	Batch        int
}

// simResult summarizes a finished simulation.
type simResult struct {
	Steps    int
	Accepted int
	Rejected int
	Claims   int
	Resets   int

	Events map[inter.EventKind]int
	Tiers  []inter.TierState
	Meta   inter.LedgerMeta
	State  inter.LedgerState

	Custody  *big.Int
	Treasury *big.Int
}

// simulator plays random participants against a fake network ledger.
type simulator struct {
	cfg    simConfig
	net    *integration.FakeNet
	ex     *ledger.Executor
	keeper *keeper.Keeper
	rng    *rand.Rand
	nonce  int64
	res    simResult
}

func simulate(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Node.Logging)
	if err != nil {
		return err
	}
	res, err := runSimulation(simConfig{
		Participants: ctx.Int("sim.participants"),
		Duration:     ctx.Duration("sim.duration"),
		Step:         ctx.Duration("sim.step"),
		Seed:         ctx.Int64("sim.seed"),
		Batch:        cfg.Keeper.Batch,
	}, log)
	if err != nil {
		return err
	}
	return printSummary(ctx.App.Writer, res)
}

func runSimulation(cfg simConfig, log logrus.FieldLogger) (simResult, error) {
	if cfg.Participants <= 0 || cfg.Step <= 0 || cfg.Duration < cfg.Step {
		return simResult{}, fmt.Errorf("simulation needs participants, a positive step and a duration of at least one step")
	}
	s := &simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		res: simResult{Events: make(map[inter.EventKind]int)},
	}
	counter := ledger.EmitterFunc(func(ev inter.Event) {
		s.res.Events[ev.Kind()]++
	})
	net, err := integration.NewFakeNet(rules.FakeNetRules(), cfg.Participants, rules.Tokens(100_000), log.WithField("module", "ledger"), counter)
	if err != nil {
		return simResult{}, err
	}
	// the recorder would keep every event of the run
	net.Recorder.Reset()
	s.net = net
	s.ex = ledger.NewExecutor(net.Ledger)
	s.keeper = keeper.New(s.ex, keeper.Config{
		Batch:     cfg.Batch,
		Submitter: integration.FakeDistributor,
	}, log.WithField("module", "keeper"), nil)

	for elapsed := time.Duration(0); elapsed < cfg.Duration; elapsed += cfg.Step {
		if err := s.step(); err != nil {
			return simResult{}, err
		}
	}
	return s.finish()
}

func (s *simulator) step() error {
	actions := s.cfg.Participants/8 + 1
	for i := 0; i < actions; i++ {
		err := s.ex.Do(s.act)
		if err == nil {
			s.res.Accepted++
			continue
		}
		switch ledger.Class(err) {
		case ledger.ClassValidation, ledger.ClassPrecondition:
			s.res.Rejected++
		default:
			return fmt.Errorf("step %d: %w", s.res.Steps, err)
		}
	}
	s.net.Recorder.Reset()

	s.net.Env.Advance(s.cfg.Step)
	rep, err := s.keeper.Pass()
	if err != nil {
		return fmt.Errorf("keeper pass %d: %w", s.res.Steps, err)
	}
	s.res.Steps++
	s.res.Claims += rep.Claims
	if rep.Reset {
		s.res.Resets++
	}
	return nil
}

// act performs one random participant operation.
func (s *simulator) act(l *ledger.Ledger) error {
	who := s.net.Participant(s.rng.Intn(s.cfg.Participants))
	tier := inter.Tier(s.rng.Intn(inter.NumTiers) + 1)

	switch roll := s.rng.Intn(100); {
	case roll < 40:
		minStake := l.Rules().Tier(tier).MinStake
		amount := new(big.Int).Mul(minStake, big.NewInt(int64(1+s.rng.Intn(20))))
		return l.Join(who, amount, tier)
	case roll < 55:
		return l.AddStake(who, rules.Tokens(int64(1+s.rng.Intn(10))))
	case roll < 75:
		return l.Claim(who)
	case roll < 80:
		return l.Withdraw(who)
	case roll < 90:
		return l.AddEmissionReward(integration.FakeDistributor, tier, rules.Tokens(int64(1+s.rng.Intn(50))))
	default:
		return s.boost(l, who)
	}
}

func (s *simulator) boost(l *ledger.Ledger, who common.Address) error {
	s.nonce++
	m := ledger.BoostMessage{
		Participant: who,
		Kind:        inter.BoostYield,
		Magnitude:   uint64(100 * (1 + s.rng.Intn(20))),
		Expiry:      s.net.Env.Now() + inter.Timestamp(time.Hour),
		Nonce:       big.NewInt(s.nonce),
	}
	if s.rng.Intn(2) == 0 {
		m.Kind = inter.BoostDeathRate
	}
	sig, err := s.net.SignBoost(m)
	if err != nil {
		return err
	}
	return l.ApplyBoost(m.Participant, m.Kind, m.Magnitude, m.Expiry, m.Nonce, sig)
}

func (s *simulator) finish() (simResult, error) {
	var err error
	s.ex.View(func(l *ledger.Ledger) {
		if err = l.CheckInvariants(); err != nil {
			return
		}
		for _, t := range inter.AllTiers() {
			ts, _ := l.Tier(t)
			s.res.Tiers = append(s.res.Tiers, ts)
		}
		s.res.Meta = l.Meta()
		s.res.State = l.Export()
	})
	if err != nil {
		return simResult{}, fmt.Errorf("ledger inconsistent after simulation: %w", err)
	}
	s.res.Custody = s.net.Bank.BalanceOf(integration.FakeCustody)
	s.res.Treasury = s.net.Bank.BalanceOf(integration.FakeTreasury)
	return s.res, nil
}

func tokens(v *big.Int) string {
	return new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(rules.Unit)).Text('f', 2)
}

func printSummary(w io.Writer, res simResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "steps\t%d\n", res.Steps)
	fmt.Fprintf(tw, "operations\t%d accepted, %d rejected\n", res.Accepted, res.Rejected)
	fmt.Fprintf(tw, "death claims\t%d\n", res.Claims)
	fmt.Fprintf(tw, "resets\t%d (epoch %d)\n", res.Resets, res.Meta.Epoch)
	fmt.Fprintf(tw, "burned\t%s\n", tokens(res.Meta.Burned))
	fmt.Fprintf(tw, "protocol\t%s\n", tokens(res.Meta.ProtocolPaid))
	fmt.Fprintf(tw, "custody\t%s\n", tokens(res.Custody))
	fmt.Fprintf(tw, "treasury\t%s\n", tokens(res.Treasury))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "tier\tlive\tstake\tscans")
	for _, ts := range res.Tiers {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", ts.Tier, ts.LiveCount, tokens(ts.TotalStake), ts.FinalizedScans)
	}
	fmt.Fprintln(tw)

	kinds := make([]string, 0, len(res.Events))
	for k := range res.Events {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	fmt.Fprintln(tw, "event\tcount")
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, res.Events[inter.EventKind(k)])
	}
	return tw.Flush()
}
