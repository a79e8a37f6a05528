package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-survival/integration"
)

// runConfigFromArgs runs MakeAllConfigs with a synthetic CLI context.
func runConfigFromArgs(t *testing.T, args []string) (Config, error) {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = nodeFlags

	var (
		got    Config
		cfgErr error
	)
	app.Action = func(c *cli.Context) error {
		got, cfgErr = MakeAllConfigs(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"survival"}, args...)))
	return got, cfgErr
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestMakeAllConfigs_flagOverrides verifies that the command-line flags
// override the corresponding fields of the aggregated Config.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg Config)
	}{
		{
			name: "defaults",
			args: nil,
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, DefaultConfig(), cfg)
				require.Equal(t, "main", cfg.Ledger.Network)
				require.True(t, cfg.Keeper.Enabled)
			},
		},
		{
			name: "datadir and identity",
			args: []string{"--datadir", dir, "--identity", "keeper-1"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, dir, cfg.Node.DataDir)
				require.Equal(t, "keeper-1", cfg.Node.Name)
			},
		},
		{
			name: "relative datadir",
			args: []string{"--datadir", "node-data"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, filepath.Join(GuessWorkDir(), "node-data"), cfg.Node.DataDir)
			},
		},
		{
			name: "lite preset",
			args: []string{"--preset", "lite"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, "lite", cfg.Ledger.Preset)
				require.Equal(t, "fake", cfg.Ledger.Network)
				require.Equal(t, "memdb", cfg.Ledger.DBBackend)
				require.True(t, cfg.Ledger.Journal)
				require.True(t, cfg.Metrics.Enabled)
				require.Equal(t, integration.LitePreset().KeeperSchedule, cfg.Keeper.Schedule)
			},
		},
		{
			name: "ledger",
			args: []string{"--network", "test", "--db.backend", "memdb", "--journal", "--blocktime", "2s", "--custody", "0x5afe000000000000000000000000000000000001"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, "test", cfg.Ledger.Network)
				require.Equal(t, "memdb", cfg.Ledger.DBBackend)
				require.True(t, cfg.Ledger.Journal)
				require.Equal(t, "2s", cfg.Ledger.BlockTime)
				require.Equal(t, "0x5afe000000000000000000000000000000000001", cfg.Ledger.Custody)
			},
		},
		{
			name: "keeper and metrics",
			args: []string{"--keeper.schedule", "@every 1m", "--keeper.batch", "7", "--snapshot.every", "3", "--metrics", "--metrics.port", "9100"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, "@every 1m", cfg.Keeper.Schedule)
				require.Equal(t, 7, cfg.Keeper.Batch)
				require.Equal(t, 3, cfg.Keeper.SnapshotEvery)
				require.True(t, cfg.Metrics.Enabled)
				require.Equal(t, 9100, cfg.Metrics.ListenPort)
				require.Equal(t, DefaultMetricsAddr, cfg.Metrics.ListenAddr)
			},
		},
		{
			name: "keeper disabled",
			args: []string{"--keeper.disable"},
			want: func(t *testing.T, cfg Config) {
				require.False(t, cfg.Keeper.Enabled)
			},
		},
		{
			name: "logging",
			args: []string{"--log.format", "json", "--log.verbosity", "5", "--log.color", "--log.sentry", "https://key@sentry.example.com/1"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, LoggingConfig{
					Verbosity: 5,
					Format:    "json",
					Color:     true,
					Sentry:    "https://key@sentry.example.com/1",
				}, cfg.Node.Logging)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := runConfigFromArgs(t, test.args)
			require.NoError(t, err)
			test.want(t, cfg)
		})
	}
}

func TestMakeAllConfigs_unknownPreset(t *testing.T) {
	_, err := runConfigFromArgs(t, []string{"--preset", "huge"})
	require.Error(t, err)
}

func TestMakeAllConfigs_files(t *testing.T) {
	toml := writeFile(t, "node.toml", `
[Ledger]
Network = "fake"
DBBackend = "memdb"

[Keeper]
Batch = 5
Schedule = "@every 2s"

[Genesis.Balances]
"0x0000000000000000000000000000000000000001" = "100"
`)
	yaml := writeFile(t, "node.yaml", `
ledger:
  network: fake
  dbbackend: memdb
keeper:
  batch: 5
  schedule: "@every 2s"
genesis:
  balances:
    "0x0000000000000000000000000000000000000001": "100"
`)

	for _, file := range []string{toml, yaml} {
		t.Run(filepath.Ext(file), func(t *testing.T) {
			cfg, err := runConfigFromArgs(t, []string{"--config", file, "--keeper.batch", "9"})
			require.NoError(t, err)
			require.Equal(t, "fake", cfg.Ledger.Network)
			require.Equal(t, "memdb", cfg.Ledger.DBBackend)
			require.Equal(t, "@every 2s", cfg.Keeper.Schedule)
			require.Equal(t, 9, cfg.Keeper.Batch, "flags override the file")
			require.Equal(t, map[string]string{"0x0000000000000000000000000000000000000001": "100"}, cfg.Genesis.Balances)
			// untouched values keep their defaults
			require.Equal(t, DefaultBlockTime, cfg.Ledger.BlockTime)
		})
	}
}

func TestMakeAllConfigs_badFiles(t *testing.T) {
	tests := map[string]string{
		"unknown toml key": writeFile(t, "node.toml", "[Ledger]\nNetwrok = \"fake\"\n"),
		"unknown yaml key": writeFile(t, "node.yml", "ledger:\n  netwrok: fake\n"),
		"bad extension":    writeFile(t, "node.json", "{}"),
		"missing file":     filepath.Join(t.TempDir(), "absent.toml"),
	}
	for name, file := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runConfigFromArgs(t, []string{"--config", file})
			require.Error(t, err)
		})
	}
}
