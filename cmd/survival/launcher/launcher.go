package launcher

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-survival/flags"
)

var (
	app = flags.NewApp("survival staking ledger node")

	nodeFlags = flags.Merge(
		flags.CommonFlags(),
		flags.LedgerFlags(),
		flags.KeeperFlags(),
		flags.MetricsFlags(),
	)

	runCommand = cli.Command{
		Name:   "run",
		Usage:  "Run the ledger node with its keeper and metrics endpoint",
		Flags:  nodeFlags,
		Action: runNode,
	}

	simulateCommand = cli.Command{
		Name:   "simulate",
		Usage:  "Play random participants against a fake network ledger and print a summary",
		Flags:  flags.Merge(flags.CommonFlags(), flags.KeeperFlags(), flags.SimulateFlags()),
		Action: simulate,
	}
)

func init() {
	app.Flags = nodeFlags
	app.Action = runNode
	app.Commands = []cli.Command{
		runCommand,
		simulateCommand,
	}
}

// Launch runs the survival app with args, os.Args included.
func Launch(args []string) error {
	return app.Run(args)
}

// runNode starts the node and blocks until it is interrupted.
func runNode(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Node.Logging)
	if err != nil {
		return err
	}
	n, err := makeNode(cfg, log)
	if err != nil {
		return err
	}
	defer n.Close()

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return n.Run(sigctx)
}
