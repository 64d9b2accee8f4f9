package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/hostlink/internal/adapters/jsonrpc"
	"github.com/bft-labs/hostlink/internal/adapters/sim"
	"github.com/bft-labs/hostlink/pkg/hostlink"
	"github.com/bft-labs/hostlink/plugins/configwatcher"
)

// withSignals returns a context canceled on SIGINT or SIGTERM.
func (c *cli) withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			c.zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func newInfoCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Read the adapter's USB descriptor strings in one sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.session(cmd.Context(), func(ctx context.Context, h *hostlink.Hostlink) error {
				info, err := hostlink.NewDevice(h).DeviceInfo(ctx)
				if err != nil {
					return err
				}
				c.print(cmd, info)
				return nil
			})
		},
	}
}

// formatAddress renders a 7-bit bus address as two hex digits.
func formatAddress(addr uint8) string {
	return fmt.Sprintf("0x%02x", addr)
}

type transferResult struct {
	Operation string `json:"operation" yaml:"operation"`
	Address   string `json:"address" yaml:"address"`
	Register  string `json:"register,omitempty" yaml:"register,omitempty"`
	Data      string `json:"data,omitempty" yaml:"data,omitempty"`
	Length    int    `json:"length" yaml:"length"`
}

func newI2CCommand(c *cli) *cobra.Command {
	var (
		address  uint8
		register string
		data     string
		length   uint16
		baudrate uint32
		voltage  uint16
	)

	i2c := &cobra.Command{
		Use:   "i2c",
		Short: "I2C controller operations",
	}
	i2c.PersistentFlags().Uint8Var(&address, "address", sim.DefaultI2CAddress, "7-bit target address")

	// transfer runs one I2C request built from the shared flags.
	transfer := func(name string, needData bool, run func(ctx context.Context, d *hostlink.Device, reg, payload []byte) ([]byte, error)) *cobra.Command {
		cmd := &cobra.Command{
			Use:  name,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := hex.DecodeString(register)
				if err != nil {
					return fmt.Errorf("--register: %w", err)
				}
				payload, err := hex.DecodeString(data)
				if err != nil {
					return fmt.Errorf("--data: %w", err)
				}
				if needData && len(payload) == 0 {
					return errors.New("--data is required")
				}
				return c.session(cmd.Context(), func(ctx context.Context, h *hostlink.Hostlink) error {
					got, err := run(ctx, hostlink.NewDevice(h), reg, payload)
					if err != nil {
						return err
					}
					if got == nil {
						got = payload
					}
					c.print(cmd, transferResult{
						Operation: name,
						Address:   formatAddress(address),
						Register:  hex.EncodeToString(reg),
						Data:      hex.EncodeToString(got),
						Length:    len(got),
					})
					return nil
				})
			},
		}
		if name != "read" {
			cmd.Flags().StringVar(&register, "register", "", "register address as hex, e.g. 0010")
		}
		return cmd
	}

	write := transfer("write", true, func(ctx context.Context, d *hostlink.Device, reg, payload []byte) ([]byte, error) {
		return nil, d.I2CWrite(ctx, address, reg, payload)
	})
	write.Short = "Write register and data, ending with a stop condition"
	write.Flags().StringVar(&data, "data", "", "bytes to write as hex")

	writeNonStop := transfer("write-non-stop", false, func(ctx context.Context, d *hostlink.Device, reg, payload []byte) ([]byte, error) {
		return nil, d.I2CWriteNonStop(ctx, address, reg, payload)
	})
	writeNonStop.Short = "Write without a stop condition"
	writeNonStop.Flags().StringVar(&data, "data", "", "bytes to write as hex")

	read := transfer("read", false, func(ctx context.Context, d *hostlink.Device, reg, payload []byte) ([]byte, error) {
		return d.I2CRead(ctx, address, length)
	})
	read.Short = "Read from the current register pointer"
	read.Flags().Uint16Var(&length, "length", 1, "bytes to read")

	readFrom := transfer("read-from", false, func(ctx context.Context, d *hostlink.Device, reg, payload []byte) ([]byte, error) {
		return d.I2CReadFrom(ctx, address, reg, length)
	})
	readFrom.Short = "Write the register with a repeated start, then read"
	readFrom.Flags().Uint16Var(&length, "length", 1, "bytes to read")

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Set the bus voltage and I2C clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.session(cmd.Context(), func(ctx context.Context, h *hostlink.Hostlink) error {
				d := hostlink.NewDevice(h)
				if voltage > 0 {
					if err := d.SetBusVoltage(ctx, voltage); err != nil {
						return fmt.Errorf("set bus voltage: %w", err)
					}
				}
				if err := d.I2CSetParameters(ctx, baudrate); err != nil {
					return fmt.Errorf("set i2c parameters: %w", err)
				}
				c.zl.Info().Uint32("baudrate", baudrate).Uint16("millivolts", voltage).Msg("i2c configured")
				return nil
			})
		},
	}
	setup.Flags().Uint32Var(&baudrate, "baudrate", 400_000, "I2C clock in Hz")
	setup.Flags().Uint16Var(&voltage, "voltage", 3300, "bus voltage in millivolts (0 keeps the current voltage)")

	i2c.AddCommand(setup, write, writeNonStop, read, readFrom)
	return i2c
}

type benchResult struct {
	Cycles     int            `json:"cycles" yaml:"cycles"`
	Workers    int            `json:"workers" yaml:"workers"`
	Bytes      int            `json:"bytes" yaml:"bytes"`
	Elapsed    string         `json:"elapsed" yaml:"elapsed"`
	PerCycle   string         `json:"per_cycle" yaml:"per_cycle"`
	Mismatches int            `json:"mismatches" yaml:"mismatches"`
	Stats      hostlink.Stats `json:"stats" yaml:"stats"`
}

func newBenchCommand(c *cli) *cobra.Command {
	var (
		cycles  int
		size    int
		workers int
		address uint8
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time write/read round trips against the adapter's EEPROM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cycles <= 0 || workers <= 0 || size <= 0 || size > sim.MaxTransferSize {
				return fmt.Errorf("cycles and workers must be positive and size in [1, %d]", sim.MaxTransferSize)
			}
			return c.session(cmd.Context(), func(ctx context.Context, h *hostlink.Hostlink) error {
				d := hostlink.NewDevice(h)

				var (
					mu         sync.Mutex
					mismatches int
					firstErr   error
					wg         sync.WaitGroup
				)
				start := time.Now()
				for w := 0; w < workers; w++ {
					wg.Add(1)
					go func(w int) {
						defer wg.Done()
						for i := w; i < cycles; i += workers {
							ok, err := benchCycle(ctx, d, address, i, size)
							mu.Lock()
							if err != nil && firstErr == nil {
								firstErr = err
							}
							if err == nil && !ok {
								mismatches++
							}
							mu.Unlock()
							if err != nil {
								return
							}
						}
					}(w)
				}
				wg.Wait()
				elapsed := time.Since(start)
				if firstErr != nil {
					return firstErr
				}

				c.print(cmd, benchResult{
					Cycles:     cycles,
					Workers:    workers,
					Bytes:      cycles * size * 2,
					Elapsed:    elapsed.Round(time.Microsecond).String(),
					PerCycle:   (elapsed / time.Duration(cycles)).Round(time.Microsecond).String(),
					Mismatches: mismatches,
					Stats:      h.Stats(),
				})
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 100, "write/read cycles")
	cmd.Flags().IntVar(&size, "size", 16, "bytes per transfer")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent callers")
	cmd.Flags().Uint8Var(&address, "address", sim.DefaultI2CAddress, "7-bit EEPROM address")
	return cmd
}

// benchCycle writes a pattern to a slot derived from i and reads it back.
func benchCycle(ctx context.Context, d *hostlink.Device, addr uint8, i, size int) (bool, error) {
	slot := (i * size) % (sim.EEPROMSize - size)
	reg := binary.BigEndian.AppendUint16(nil, uint16(slot))

	want := make([]byte, size)
	for j := range want {
		want[j] = byte(i + j)
	}
	if err := d.I2CWrite(ctx, addr, reg, want); err != nil {
		return false, fmt.Errorf("cycle %d write: %w", i, err)
	}
	got, err := d.I2CReadFrom(ctx, addr, reg, uint16(size))
	if err != nil {
		return false, fmt.Errorf("cycle %d read: %w", i, err)
	}
	return bytes.Equal(got, want), nil
}

type notificationView struct {
	Sequence uint64 `json:"sequence" yaml:"sequence"`
	Payload  string `json:"payload" yaml:"payload"`
	Received string `json:"received" yaml:"received"`
}

func newListenCommand(c *cli) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print notifications pushed by the adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.SimNotifyInterval == 0 && !c.changed["sim-notify-interval"] {
				c.cfg.SimNotifyInterval = time.Second
			}
			ctx, cancel := c.withSignals(cmd.Context())
			defer cancel()

			return c.session(ctx, func(ctx context.Context, h *hostlink.Hostlink) error {
				for seen := 0; count == 0 || seen < count; {
					f, err := h.NextNotification(ctx, c.cfg.NotificationTimeout)
					switch {
					case errors.Is(err, hostlink.ErrTimeout):
						c.zl.Warn().Dur("timeout", c.cfg.NotificationTimeout).Msg("no notification")
						continue
					case ctx.Err() != nil:
						return nil
					case err != nil:
						return err
					}
					seen++

					v := notificationView{
						Payload:  hex.EncodeToString(f.Payload),
						Received: time.Now().UTC().Format(time.RFC3339Nano),
					}
					if len(f.Payload) == 8 {
						v.Sequence = binary.BigEndian.Uint64(f.Payload)
					}
					c.print(cmd, v)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many notifications (0 runs until interrupted)")
	return cmd
}

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the adapter over a JSON-RPC 2.0 bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withSignals(cmd.Context())
			defer cancel()

			var opts []hostlink.Option
			if dir := filepath.Dir(c.cfgPath); c.cfgPath != "" && dirExists(dir) {
				opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
					Path:   c.cfgPath,
					Pinned: c.changed,
				}))
			} else {
				c.zl.Warn().Str("path", c.cfgPath).Msg("config directory missing, hot reload disabled")
			}

			return c.session(ctx, func(ctx context.Context, h *hostlink.Hostlink) error {
				srv, err := jsonrpc.NewServer(c.cfg.Listen, h, c.logger)
				if err != nil {
					return err
				}
				return srv.Serve(ctx)
			}, opts...)
		},
	}
	cmd.Flags().StringVar(&c.cfg.Listen, "listen", c.cfg.Listen, "address of the JSON-RPC bridge")
	return cmd
}

func dirExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func newCallCommand(c *cli) *cobra.Command {
	var (
		remote  string
		retries int
		a       hostlink.Args
	)

	cmd := &cobra.Command{
		Use:   "call OPERATION",
		Short: "Run one operation on a bridge started with serve",
		Long:  "Run one operation on a bridge started with serve. See 'hostlink ops' for the operation names.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := hostlink.LookupOperation(args[0]); err != nil {
				return err
			}
			url := remote
			if url == "" {
				url = "http://" + c.cfg.Listen + jsonrpc.Path
			}

			client := jsonrpc.NewClient(url, c.cfg.CallTimeout+5*time.Second)
			client.SetRetries(retries)
			resp, err := client.Call(cmd.Context(), args[0], a, c.cfg.CallTimeout)
			if err != nil {
				return err
			}
			c.print(cmd, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "bridge URL (default: http://<listen>/rpc)")
	cmd.Flags().StringVar(&c.cfg.Listen, "listen", c.cfg.Listen, "address of the bridge when --remote is empty")
	cmd.Flags().IntVar(&retries, "retries", 3, "retries while the bridge refuses connections")
	cmd.Flags().StringVar(&a.String, "string", "", "USB descriptor name for get_usb_string")
	cmd.Flags().Uint16Var(&a.MilliVolts, "millivolts", 0, "bus voltage for set_bus_voltage")
	cmd.Flags().Uint32Var(&a.Baudrate, "baudrate", 0, "I2C clock for i2c_set_parameters")
	cmd.Flags().Uint8Var(&a.Address, "address", sim.DefaultI2CAddress, "7-bit target address")
	cmd.Flags().StringVar(&a.Register, "register", "", "register address as hex")
	cmd.Flags().StringVar(&a.Data, "data", "", "bytes to write as hex")
	cmd.Flags().Uint16Var(&a.Length, "length", 0, "bytes to read")
	return cmd
}

func newOpsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operations accepted by call and the bridge",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c.print(cmd, hostlink.Operations())
		},
	}
}
