package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// LedgerFlags holds knobs of the local ledger instance (network, storage, privileged addresses).

func LedgerFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Custom node name used in logs and metrics",
		},
		cli.StringFlag{
			Name:  "network",
			Usage: "Ledger rules (main|test|fake)",
		},
		cli.StringFlag{
			Name:  "db.backend",
			Usage: "Database backend (goleveldb|memdb)",
		},
		cli.BoolFlag{
			Name:  "journal",
			Usage: "Append every committed event to the event journal",
		},
		cli.DurationFlag{
			Name:  "blocktime",
			Usage: "Interval between heights of the wall-clock environment",
		},
		cli.StringFlag{
			Name:  "signer",
			Usage: "Public key of the boost signer (0x-prefixed hex with type byte)",
		},
		cli.StringFlag{
			Name:  "custody",
			Usage: "Custody address holding staked and reward tokens",
		},
		cli.StringFlag{
			Name:  "treasury",
			Usage: "Treasury address receiving protocol shares",
		},
		cli.StringFlag{
			Name:  "distributor",
			Usage: "Address allowed to add emission rewards",
		},
	}
}
