package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/pitwall/internal/cliconfig"
	"github.com/bft-labs/pitwall/internal/metrics"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/pitwall"
)

const longHelp = `
Read racing-simulator telemetry from the live shared-memory feed or from
.ibt recordings.

Configuration is read from $HOME/.pitwall/config.toml, then PITWALL_*
environment variables, then command-line flags.
`

var exampleUsage = strings.TrimSpace(`
  pitwall vars session.ibt
  pitwall replay session.ibt --rate 4 --hz 10
  pitwall live --wait
  pitwall record --out stint.ibt
  pitwall watch --dir ~/Documents/iRacing/telemetry
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the resolved configuration and the ambient services shared by
// every subcommand.
type cli struct {
	mu      sync.Mutex
	cfg     cliconfig.Config
	cfgPath string
	cfgFile string
	changed map[string]bool
	wait    bool

	logger   *log.ZerologAdapter
	logClose io.Closer
	registry *prometheus.Registry

	out io.Writer
}

func main() {
	c := &cli{
		cfg:    cliconfig.DefaultConfig(),
		logger: log.NewZerologAdapter(),
		out:    os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(c).ExecuteContext(ctx)
	stop()

	if err != nil {
		c.logger.Error("pitwall", log.Err(err))
	}
	if c.logClose != nil {
		_ = c.logClose.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "pitwall",
		Short:             "Racing-simulator telemetry from shared memory and .ibt files",
		Long:              strings.TrimSpace(longHelp),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.pitwall/config.toml)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.LogFile, "log-file", c.cfg.LogFile, "write JSON logs to a rotating file instead of stderr")
	pf.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9100)")

	root.AddCommand(
		newVarsCmd(c),
		newSessionCmd(c),
		newReplayCmd(c),
		newLiveCmd(c),
		newRecordCmd(c),
		newWatchCmd(c),
	)
	return root
}

// setup layers the configuration, builds the logger and starts the metrics
// endpoint. Flags set on the command line always win.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	c.cfgFile = c.cfgPath
	if c.cfgFile == "" {
		c.cfgFile = cliconfig.DefaultConfigPath()
	}

	c.changed = map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { c.changed[f.Name] = true })

	if c.cfgPath != "" && !cliconfig.FileExists(c.cfgPath) {
		return fmt.Errorf("config file %s not found", c.cfgPath)
	}
	cfg, err := c.layer(c.cfg)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, closer, err := cliconfig.NewLogger(c.cfg)
	if err != nil {
		return err
	}
	c.logger, c.logClose = logger, closer
	c.logger.Debug("configuration", log.Any("config", c.cfg))

	if c.cfg.MetricsAddr != "" {
		c.registry = metrics.NewRegistry()
		ctx := cmd.Context()
		go func() {
			if err := metrics.Serve(ctx, c.cfg.MetricsAddr, c.registry, c.logger); err != nil {
				c.logger.Error("metrics server", log.Err(err))
			}
		}()
	}
	return nil
}

// options translates the configuration into connection options.
func (c *cli) options(extra ...pitwall.Option) []pitwall.Option {
	cfg := c.current()
	opts := []pitwall.Option{
		pitwall.WithLogger(c.logger),
		pitwall.WithPlaybackRate(cfg.PlaybackRate),
		pitwall.WithStateHandler(stateLogger{c.logger}),
	}
	if cfg.Unpaced {
		opts = append(opts, pitwall.WithUnpaced())
	}
	if cfg.MappingPath != "" {
		opts = append(opts, pitwall.WithMappingPath(cfg.MappingPath))
	}
	if cfg.PollInterval > 0 {
		opts = append(opts, pitwall.WithPollInterval(cfg.PollInterval))
	}
	if c.registry != nil {
		opts = append(opts, pitwall.WithMetrics(c.registry))
	}
	return append(opts, extra...)
}

// layer applies the config file and the environment on top of base. Flags
// recorded in c.changed are left alone.
func (c *cli) layer(base cliconfig.Config) (cliconfig.Config, error) {
	cfg := base
	if c.cfgFile != "" && cliconfig.FileExists(c.cfgFile) {
		fc, err := cliconfig.LoadFileConfig(c.cfgFile)
		if err != nil {
			return base, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, c.changed); err != nil {
			return base, err
		}
	}
	if err := cliconfig.ApplyEnvConfig(&cfg, c.changed); err != nil {
		return base, err
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
