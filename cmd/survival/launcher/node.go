package launcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rony4d/go-survival/bank"
	"github.com/rony4d/go-survival/env"
	"github.com/rony4d/go-survival/integration"
	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/inter/signerpk"
	"github.com/rony4d/go-survival/keeper"
	"github.com/rony4d/go-survival/ledger"
	"github.com/rony4d/go-survival/metrics"
	"github.com/rony4d/go-survival/rules"
	"github.com/rony4d/go-survival/store"
)

const shutdownTimeout = 5 * time.Second

// node is an assembled ledger with its storage, keeper and metrics endpoint.
type node struct {
	cfg   Config
	log   logrus.FieldLogger
	rules rules.Rules

	env    *env.Wall
	bank   *bank.Memory
	store  *store.Store
	ledger *ledger.Ledger
	ex     *ledger.Executor

	keeper  *keeper.Keeper
	metrics *http.Server

	passes int
}

func makeNode(cfg Config, log logrus.FieldLogger) (*node, error) {
	r, err := rules.ByName(cfg.Ledger.Network)
	if err != nil {
		return nil, err
	}
	fake := r.Name == rules.FakeNetRules().Name

	blockTime, err := time.ParseDuration(cfg.Ledger.BlockTime)
	if err != nil {
		return nil, fmt.Errorf("block time: %w", err)
	}
	custody, err := address("custody", cfg.Ledger.Custody, integration.FakeCustody, fake)
	if err != nil {
		return nil, err
	}
	treasury, err := address("treasury", cfg.Ledger.Treasury, integration.FakeTreasury, fake)
	if err != nil {
		return nil, err
	}
	distributor, err := address("distributor", cfg.Ledger.Distributor, integration.FakeDistributor, fake)
	if err != nil {
		return nil, err
	}
	signer, err := signerAddress(cfg.Ledger.Signer, fake)
	if err != nil {
		return nil, err
	}
	if signer == (common.Address{}) {
		log.Warn("No boost signer configured, boosts are disabled")
	}

	if cfg.Ledger.DBBackend != "memdb" {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return nil, err
		}
	}
	st, err := store.Open("ledger", cfg.Ledger.DBBackend, cfg.Node.DataDir)
	if err != nil {
		return nil, err
	}

	n := &node{
		cfg:   cfg,
		log:   log,
		rules: r,
		env:   env.NewWall(blockTime),
		store: st,
	}
	if err := n.open(custody, treasury, distributor, signer); err != nil {
		st.Close()
		return nil, err
	}
	return n, nil
}

// open builds the ledger, restoring the latest snapshot when there is one.
func (n *node) open(custody, treasury, distributor, signer common.Address) error {
	height, snap, err := n.store.LatestSnapshot()
	restored := err == nil
	var balances map[common.Address]*big.Int
	switch {
	case restored:
		if balances, err = n.store.LoadBalances(height); err != nil {
			return fmt.Errorf("restore height %d: %w", height, err)
		}
	case errors.Is(err, store.ErrNotFound):
		if balances, err = genesisBalances(n.cfg.Genesis, n.rules); err != nil {
			return err
		}
	default:
		return fmt.Errorf("read latest snapshot: %w", err)
	}
	n.bank = bank.NewMemory(balances)

	emitters := ledger.MultiEmitter{ledger.NewLogEmitter(n.log.WithField("module", "ledger"))}
	if n.cfg.Metrics.Enabled {
		emitters = append(emitters, metrics.NewLedger(n.rules.Name))
	}
	if n.cfg.Ledger.Journal {
		emitters = append(emitters, &store.JournalEmitter{Store: n.store, Log: n.log.WithField("module", "journal")})
	}

	l, err := ledger.New(ledger.Config{
		Rules:       n.rules,
		Self:        custody,
		Treasury:    treasury,
		Distributor: distributor,
		Signer:      signer,
		Log:         n.log.WithField("module", "ledger"),
	}, n.env, n.bank, emitters)
	if err != nil {
		return err
	}
	if restored {
		if err := l.Import(snap); err != nil {
			return fmt.Errorf("restore height %d: %w", height, err)
		}
		n.env.Resume(height)
		n.log.WithFields(logrus.Fields{"height": height, "positions": len(snap.Positions)}).Info("Restored ledger snapshot")
	}
	n.ledger = l
	n.ex = ledger.NewExecutor(l)

	if n.cfg.Keeper.Enabled {
		submitter := custody
		if n.cfg.Keeper.Submitter != "" {
			if submitter, err = parseAddress("keeper submitter", n.cfg.Keeper.Submitter); err != nil {
				return err
			}
		}
		var observer keeper.Observer
		if n.cfg.Metrics.Enabled {
			observer = metrics.NewKeeper(n.rules.Name)
		}
		n.keeper = keeper.New(n.ex, keeper.Config{
			Schedule:  n.cfg.Keeper.Schedule,
			Batch:     n.cfg.Keeper.Batch,
			Submitter: submitter,
		}, n.log.WithField("module", "keeper"), observer)
		n.keeper.OnPass = n.onPass
	}

	if n.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		n.metrics = &http.Server{
			Addr:              net.JoinHostPort(n.cfg.Metrics.ListenAddr, strconv.Itoa(n.cfg.Metrics.ListenPort)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return nil
}

func (n *node) onPass(rep keeper.Report, err error) {
	n.passes++
	if n.cfg.Keeper.SnapshotEvery <= 0 || n.passes%n.cfg.Keeper.SnapshotEvery != 0 {
		return
	}
	if err := n.checkpoint(); err != nil {
		n.log.WithError(err).WithField("pass", rep.ID.String()).Error("Failed to save ledger snapshot")
	}
}

// checkpoint saves the ledger and balances at the current height and drops
// older snapshots.
func (n *node) checkpoint() error {
	var (
		height   idx.Block
		state    inter.LedgerState
		balances map[common.Address]*big.Int
	)
	n.ex.View(func(l *ledger.Ledger) {
		height = n.env.Height()
		state = l.Export()
		balances = n.bank.Accounts()
	})
	if err := n.store.SaveBalances(height, balances); err != nil {
		return err
	}
	if err := n.store.SaveSnapshot(height, state); err != nil {
		return err
	}
	pruned, err := n.store.PruneSnapshots(height)
	if err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{"height": height, "pruned": pruned}).Debug("Saved ledger snapshot")
	return nil
}

// Run serves until ctx is done, then saves a final snapshot.
func (n *node) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if n.keeper != nil {
		g.Go(func() error {
			return n.keeper.Run(gctx)
		})
	}
	if n.metrics != nil {
		g.Go(func() error {
			n.log.WithField("addr", n.metrics.Addr).Info("Starting metrics server")
			if err := n.metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return n.metrics.Shutdown(sctx)
		})
	}
	n.log.WithFields(logrus.Fields{
		"name":    n.cfg.Node.Name,
		"network": n.rules.Name,
		"keeper":  n.keeper != nil,
		"metrics": n.metrics != nil,
	}).Info("Ledger node started")

	<-gctx.Done()
	err := g.Wait()
	if cerr := n.checkpoint(); cerr != nil {
		n.log.WithError(cerr).Error("Failed to save final ledger snapshot")
		if err == nil {
			err = cerr
		}
	}
	n.log.Info("Ledger node stopped")
	return err
}

func (n *node) Close() error {
	return n.store.Close()
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, s)
	}
	return common.HexToAddress(s), nil
}

// address parses s, falling back to the fake network's well-known address.
func address(name, s string, fallback common.Address, fake bool) (common.Address, error) {
	if s != "" {
		return parseAddress(name, s)
	}
	if fake {
		return fallback, nil
	}
	return common.Address{}, fmt.Errorf("%s address is required", name)
}

func signerAddress(s string, fake bool) (common.Address, error) {
	if s == "" {
		if fake {
			return crypto.PubkeyToAddress(integration.FakeSignerKey().PublicKey), nil
		}
		return common.Address{}, nil
	}
	pk, err := signerpk.FromString(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("boost signer: %w", err)
	}
	return pk.Address()
}

// genesisBalances returns the configured allocation, or funded fake
// accounts on a fake network without one.
func genesisBalances(cfg GenesisConfig, r rules.Rules) (map[common.Address]*big.Int, error) {
	if len(cfg.Balances) == 0 && r.Name == rules.FakeNetRules().Name {
		return integration.FakeGenesisBalances(cfg.FakeAccounts, rules.Tokens(1_000_000)), nil
	}
	res := make(map[common.Address]*big.Int, len(cfg.Balances))
	for addr, amount := range cfg.Balances {
		a, err := parseAddress("genesis", addr)
		if err != nil {
			return nil, err
		}
		whole, ok := new(big.Int).SetString(amount, 10)
		if !ok || whole.Sign() < 0 {
			return nil, fmt.Errorf("genesis: invalid amount %q for %s", amount, addr)
		}
		res[a] = whole.Mul(whole, rules.Unit)
	}
	return res, nil
}
