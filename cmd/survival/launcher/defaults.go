package launcher

import (
	"path/filepath"

	"github.com/rony4d/go-survival/integration"
)

// Baseline values the presets leave open.
const (
	DefaultBlockTime    = "1s"
	DefaultMetricsAddr  = "127.0.0.1"
	DefaultMetricsPort  = 6060
	DefaultFakeAccounts = 16
	DefaultVerbosity    = 4 // logrus info
)

// DefaultConfig returns the configuration of the default preset.
func DefaultConfig() Config {
	return presetConfig(integration.DefaultPreset())
}

// presetConfig expands a preset into a full configuration.
func presetConfig(p integration.PresetConfig) Config {
	return Config{
		Node: NodeConfig{
			DataDir: filepath.Join(GuessHomeDir(), ".survival"),
			Name:    "survival",
			Logging: LoggingConfig{
				Verbosity: DefaultVerbosity,
				Format:    "text",
			},
		},
		Ledger: LedgerConfig{
			Preset:    p.Name,
			Network:   p.Network,
			DBBackend: p.DBBackend,
			Journal:   p.EnableJournal,
			BlockTime: DefaultBlockTime,
		},
		Keeper: KeeperConfig{
			Enabled:       p.KeeperSchedule != "",
			Schedule:      p.KeeperSchedule,
			Batch:         p.KeeperBatch,
			SnapshotEvery: p.SnapshotEvery,
		},
		Metrics: MetricsConfig{
			Enabled:    p.EnableMetrics,
			ListenAddr: DefaultMetricsAddr,
			ListenPort: DefaultMetricsPort,
		},
		Genesis: GenesisConfig{
			FakeAccounts: DefaultFakeAccounts,
		},
	}
}
