// This file maps the CLI context and config files onto the Config struct.

package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/rony4d/go-survival/integration"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node    NodeConfig
	Ledger  LedgerConfig
	Keeper  KeeperConfig
	Metrics MetricsConfig
	Genesis GenesisConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	Sentry    string // DSN, empty disables the hook
}

type LedgerConfig struct {
	Preset    string
	Network   string
	DBBackend string
	Journal   bool
	BlockTime string // duration string, e.g. "1s"

	// Signer is the boost signer public key. Empty disables boosts except
	// on the fake network, which uses its well-known key.
	Signer string

	// Privileged addresses. They default to the fake network's addresses
	// only when Network is "fake".
	Custody     string
	Treasury    string
	Distributor string
}

type KeeperConfig struct {
	Enabled       bool
	Schedule      string
	Batch         int
	Submitter     string
	SnapshotEvery int
}

type MetricsConfig struct {
	Enabled    bool
	ListenAddr string
	ListenPort int
}

type GenesisConfig struct {
	// Balances maps hex addresses to whole-token amounts. It is only used
	// when the store holds no snapshot yet.
	Balances map[string]string

	// FakeAccounts is the number of funded fake participants of a fake
	// network without Balances.
	FakeAccounts int
}

// MakeAllConfigs merges the preset defaults, the optional config file, then
// CLI flag overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	preset, err := integration.GetPresetByName(ctx.String("preset"))
	if err != nil {
		return Config{}, err
	}
	cfg := presetConfig(preset)

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
	}

	applyCLIOverrides(ctx, &cfg)
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Config-file / CLI wiring
// -----------------------------------------------------------------------------

func loadConfigFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			return fmt.Errorf("unknown keys %v", undecoded)
		}
		return nil
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q (valid: .toml, .yaml, .yml)", ext)
	}
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("datadir") {
		cfg.Node.DataDir = ctx.String("datadir")
	}
	if ctx.IsSet("identity") {
		cfg.Node.Name = ctx.String("identity")
	}

	if ctx.IsSet("log.format") {
		cfg.Node.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Node.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("log.sentry") {
		cfg.Node.Logging.Sentry = ctx.String("log.sentry")
	}

	if ctx.IsSet("network") {
		cfg.Ledger.Network = ctx.String("network")
	}
	if ctx.IsSet("db.backend") {
		cfg.Ledger.DBBackend = ctx.String("db.backend")
	}
	if ctx.Bool("journal") {
		cfg.Ledger.Journal = true
	}
	if ctx.IsSet("blocktime") {
		cfg.Ledger.BlockTime = ctx.Duration("blocktime").String()
	}
	if ctx.IsSet("signer") {
		cfg.Ledger.Signer = ctx.String("signer")
	}
	if ctx.IsSet("custody") {
		cfg.Ledger.Custody = ctx.String("custody")
	}
	if ctx.IsSet("treasury") {
		cfg.Ledger.Treasury = ctx.String("treasury")
	}
	if ctx.IsSet("distributor") {
		cfg.Ledger.Distributor = ctx.String("distributor")
	}

	if ctx.Bool("keeper.disable") {
		cfg.Keeper.Enabled = false
	}
	if ctx.IsSet("keeper.schedule") {
		cfg.Keeper.Schedule = ctx.String("keeper.schedule")
	}
	if ctx.IsSet("keeper.batch") {
		cfg.Keeper.Batch = ctx.Int("keeper.batch")
	}
	if ctx.IsSet("keeper.submitter") {
		cfg.Keeper.Submitter = ctx.String("keeper.submitter")
	}
	if ctx.IsSet("snapshot.every") {
		cfg.Keeper.SnapshotEvery = ctx.Int("snapshot.every")
	}

	if ctx.Bool("metrics") {
		cfg.Metrics.Enabled = true
	}
	if ctx.IsSet("metrics.addr") {
		cfg.Metrics.ListenAddr = ctx.String("metrics.addr")
	}
	if ctx.IsSet("metrics.port") {
		cfg.Metrics.ListenPort = ctx.Int("metrics.port")
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
