package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/hostlink/internal/adapters/sim"
	"github.com/bft-labs/hostlink/internal/cliconfig"
	"github.com/bft-labs/hostlink/internal/output"
	"github.com/bft-labs/hostlink/pkg/hostlink"
	"github.com/bft-labs/hostlink/pkg/log"
)

const longHelp = `Drive a USB host adapter through blocking, goroutine-safe calls.

Every request gets a transfer id; replies arriving in any order are routed
back to the caller that issued them. Multi-step transactions run as one
sequence whose responses come back in submission order.

Configure via file ($HOME/.hostlink/config.toml), HOSTLINK_* environment
variables, or flags, in increasing order of precedence.`

var exampleUsage = strings.TrimSpace(`
  hostlink info
  hostlink i2c write --address 0x50 --register 0000 --data deadbeef
  hostlink i2c read-from --address 0x50 --register 0000 --length 4 -o json
  hostlink serve --listen 127.0.0.1:7545
  hostlink call i2c_read --address 0x50 --length 2
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli holds the state resolved by the root command before any subcommand
// runs.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	changed map[string]bool

	logger *log.ZerologAdapter
	zl     zerolog.Logger
	out    output.Formatter
}

// print writes v in the configured output format.
func (c *cli) print(cmd *cobra.Command, v any) {
	fmt.Fprint(cmd.OutOrStdout(), c.out.Format(v))
}

// session starts a host on the configured transport, runs fn and stops
// the host again.
func (c *cli) session(ctx context.Context, fn func(ctx context.Context, h *hostlink.Hostlink) error, opts ...hostlink.Option) error {
	dev := sim.New(c.cfg.SimConfig(), c.logger)

	opts = append([]hostlink.Option{hostlink.WithLogger(c.logger)}, opts...)
	h, err := hostlink.New(c.cfg.HostConfig(), dev, opts...)
	if err != nil {
		return fmt.Errorf("create hostlink: %w", err)
	}
	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("start hostlink: %w", err)
	}
	defer func() {
		if err := h.Stop(); err != nil {
			c.zl.Error().Err(err).Msg("stop hostlink")
		}
	}()
	return fn(ctx, h)
}

func newRootCommand() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "hostlink",
		Short:         "Synchronous access to an asynchronous USB host adapter",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := c.cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			c.cfgPath = cfgFile

			// Build set of changed flags
			c.changed = map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { c.changed[f.Name] = true })

			if err := cliconfig.Load(&c.cfg, cfgFile, c.changed); err != nil {
				return err
			}

			logger, err := cliconfig.NewLogger(c.cfg, os.Stderr)
			if err != nil {
				return err
			}
			c.logger = logger
			c.zl = logger.Logger()
			c.out = output.NewFormatter(c.cfg.Output)

			c.zl.Debug().Interface("config", c.cfg).Str("file", cfgFile).Msg("configuration")
			return nil
		},
	}

	cfg := &c.cfg
	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.hostlink/config.toml)")
	pf.StringVar(&cfg.Transport, "transport", cfg.Transport, "host adapter transport (sim)")
	pf.StringVarP(&cfg.Output, "output", "o", cfg.Output, "output format: table, json or yaml")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error or disabled")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	pf.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "timeout of a single call")
	pf.DurationVar(&cfg.SequenceTimeout, "sequence-timeout", cfg.SequenceTimeout, "timeout of a multi-step sequence")
	pf.DurationVar(&cfg.NotificationTimeout, "notification-timeout", cfg.NotificationTimeout, "how long to wait for a notification")
	pf.IntVar(&cfg.MinTransferID, "min-transfer-id", cfg.MinTransferID, "lowest transfer id handed out")
	pf.IntVar(&cfg.MaxTransferID, "max-transfer-id", cfg.MaxTransferID, "transfer ids stay below this bound")
	for _, name := range []string{"min-transfer-id", "max-transfer-id"} {
		if err := pf.MarkHidden(name); err != nil {
			fmt.Fprintf(os.Stderr, "hide %s flag: %v\n", name, err)
		}
	}

	pf.DurationVar(&cfg.SimLatency, "sim-latency", cfg.SimLatency, "simulated reply latency")
	pf.DurationVar(&cfg.SimJitter, "sim-jitter", cfg.SimJitter, "random extra latency, reorders replies")
	pf.DurationVar(&cfg.SimNotifyInterval, "sim-notify-interval", cfg.SimNotifyInterval, "simulated notification interval (0 disables)")
	pf.IntVar(&cfg.SimSeed, "sim-seed", cfg.SimSeed, "seed of the simulated jitter")
	pf.IntVar(&cfg.SimI2CAddress, "sim-i2c-address", cfg.SimI2CAddress, "bus address of the simulated EEPROM")

	root.AddCommand(
		newInfoCommand(c),
		newI2CCommand(c),
		newBenchCommand(c),
		newListenCommand(c),
		newServeCommand(c),
		newCallCommand(c),
		newOpsCommand(c),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		zl := log.NewZerologAdapter().Logger()
		zl.Error().Err(err).Msg("hostlink")
		os.Exit(1)
	}
}
