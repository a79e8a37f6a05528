// Package integration provides configuration presets and assembly helpers for
// building a survival ledger runtime. Presets bundle common settings (network
// rules, storage backend, keeper cadence) into named profiles (lite, full,
// archive) so operators can spin up a node without tweaking dozens of flags.
//
// Usage:
//
//	cfg := integration.LitePreset()    // local development on the fake network
//	cfg := integration.FullPreset()    // production keeper node
//	cfg := integration.ArchivePreset() // node that also keeps the full event journal
package integration

import "fmt"

// PresetConfig captures the tunable parameters that vary across preset profiles.
// It intentionally excludes fields that are always the same (like the custody
// address or the listen port) so presets focus on operational trade-offs.
type PresetConfig struct {
	Name           string // human-readable identifier (e.g., "lite", "full")
	Network        string // rules preset: "main", "test" or "fake"
	DBBackend      string // tm-db backend: "memdb" or "goleveldb"
	KeeperSchedule string // cron spec of the maintenance keeper, empty disables it
	KeeperBatch    int    // largest death-claim batch the keeper submits
	SnapshotEvery  int    // keeper passes between ledger snapshots
	EnableJournal  bool   // whether every event is appended to the event journal
	EnableMetrics  bool   // whether to expose the Prometheus /metrics endpoint
}

// DefaultPreset returns a balanced configuration on the main network.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:           "default",
		Network:        "main",
		DBBackend:      "goleveldb",  // durable on-disk storage
		KeeperSchedule: "@every 30s", // well inside every tier's submission window
		KeeperBatch:    100,
		SnapshotEvery:  64,
		EnableJournal:  false, // events are logged but not persisted by default
		EnableMetrics:  false,
	}
}

// LitePreset returns a lightweight configuration for development and CI.
// Everything lives in memory and scans run on the accelerated fake network.
//
// Trade-offs:
//   - Nothing survives a restart
//   - Fake rules use minute-scale scan intervals, never use them for real funds
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.Network = "fake"
	cfg.DBBackend = "memdb"
	cfg.KeeperSchedule = "@every 5s" // keep up with 30s fake-network windows
	cfg.KeeperBatch = 16
	cfg.SnapshotEvery = 1
	cfg.EnableJournal = true // journal helps diagnose issues in development
	cfg.EnableMetrics = true
	return cfg
}

// FullPreset returns a production configuration for a keeper node.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.KeeperSchedule = "@every 10s"
	cfg.EnableMetrics = true
	return cfg
}

// ArchivePreset returns a configuration for nodes that serve the complete
// event history, typically to indexers and analytics jobs.
//
// Trade-offs:
//   - The event journal grows linearly with ledger activity
func ArchivePreset() PresetConfig {
	cfg := FullPreset()
	cfg.Name = "archive"
	cfg.EnableJournal = true
	return cfg
}

// GetPresetByName looks up a preset by its string identifier.
//
// Example:
//
//	preset, err := integration.GetPresetByName("lite")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset merges a preset into an existing config. Non-zero preset
// fields override the target; booleans are always applied.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Network != "" {
		target.Network = preset.Network
	}
	if preset.DBBackend != "" {
		target.DBBackend = preset.DBBackend
	}
	if preset.KeeperSchedule != "" {
		target.KeeperSchedule = preset.KeeperSchedule
	}
	if preset.KeeperBatch > 0 {
		target.KeeperBatch = preset.KeeperBatch
	}
	if preset.SnapshotEvery > 0 {
		target.SnapshotEvery = preset.SnapshotEvery
	}
	target.EnableJournal = preset.EnableJournal
	target.EnableMetrics = preset.EnableMetrics
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
