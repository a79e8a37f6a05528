package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// KeeperFlags tunes the maintenance keeper and snapshots.
func KeeperFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "keeper.disable",
			Usage: "Do not run the maintenance keeper",
		},
		cli.StringFlag{
			Name:  "keeper.schedule",
			Usage: "Cron spec of keeper passes (e.g. \"@every 30s\")",
		},
		cli.IntFlag{
			Name:  "keeper.batch",
			Usage: "Largest death-claim batch the keeper submits",
		},
		cli.StringFlag{
			Name:  "keeper.submitter",
			Usage: "Address the keeper submits death claims from",
		},
		cli.IntFlag{
			Name:  "snapshot.every",
			Usage: "Keeper passes between ledger snapshots",
		},
	}
}

// MetricsFlags configures the Prometheus endpoint.
func MetricsFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "Enable collection of Prometheus-compatible metrics",
		},
		cli.StringFlag{
			Name:  "metrics.addr",
			Usage: "Metrics server listening interface",
			Value: "127.0.0.1",
		},
		cli.IntFlag{
			Name:  "metrics.port",
			Usage: "Metrics server listening port",
			Value: 6060,
		},
	}
}

// SimulateFlags drives the deterministic local simulation.
func SimulateFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "sim.participants",
			Usage: "Number of funded fake participants",
			Value: 64,
		},
		cli.DurationFlag{
			Name:  "sim.duration",
			Usage: "Simulated time to run for",
			Value: 2 * time.Hour,
		},
		cli.DurationFlag{
			Name:  "sim.step",
			Usage: "Simulated time between keeper passes",
			Value: 10 * time.Second,
		},
		cli.Int64Flag{
			Name:  "sim.seed",
			Usage: "Seed of the simulated participants' behaviour",
			Value: 1,
		},
	}
}
