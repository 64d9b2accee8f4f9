package sim

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

const (
	// EEPROMSize is the capacity of the simulated I2C EEPROM.
	EEPROMSize = 32 * 1024

	// MaxTransferSize is the largest I2C payload accepted in one request.
	MaxTransferSize = 1024

	MinBaudrate = 100_000
	MaxBaudrate = 1_000_000

	MinBusVoltage = 1200
	MaxBusVoltage = 3300

	// DefaultI2CAddress is the bus address of the simulated EEPROM.
	DefaultI2CAddress = 0x50
)

// Config configures the simulated host adapter.
type Config struct {
	// Latency is the base delay before a reply is delivered.
	Latency time.Duration

	// Jitter adds a random delay in [0, Jitter) to every reply, which
	// reorders replies of requests issued close together.
	Jitter time.Duration

	// NotifyInterval emits a notification frame at this interval.
	// Zero disables notifications.
	NotifyInterval time.Duration

	// Seed makes jitter reproducible.
	Seed uint64

	// I2CAddress is the EEPROM address; every other address NACKs.
	I2CAddress uint8

	// Strings overrides the USB descriptor strings.
	Strings map[domain.USBString]string
}

// DefaultConfig returns a device with a millisecond of latency and jitter.
func DefaultConfig() Config {
	return Config{
		Latency:    time.Millisecond,
		Jitter:     time.Millisecond,
		Seed:       1,
		I2CAddress: DefaultI2CAddress,
	}
}

var defaultStrings = map[domain.USBString]string{
	domain.USBStringManufacturer:    "Binho LLC",
	domain.USBStringProductName:     "Supernova Simulator",
	domain.USBStringSerialNumber:    "SIM-0001",
	domain.USBStringFirmwareVersion: "1.2.0",
	domain.USBStringHardwareVersion: "C",
}

// Device is an in-process host adapter implementing ports.Transport.
// Requests are executed in the order they are sent; replies are delivered
// from a separate goroutine after latency plus jitter, so they may arrive
// out of order.
type Device struct {
	cfg    Config
	logger ports.Logger

	mu      sync.Mutex
	open    bool
	onFrame func(domain.Frame)
	rng     *rand.Rand
	out     chan domain.Frame
	stop    chan struct{}
	wg      sync.WaitGroup

	// device state
	baudrate uint32
	voltage  uint16
	eeprom   []byte
	pointer  uint16
	notices  uint64
}

var _ ports.Transport = (*Device)(nil)

// New creates a closed simulated device.
func New(cfg Config, logger ports.Logger) *Device {
	if cfg.I2CAddress == 0 {
		cfg.I2CAddress = DefaultI2CAddress
	}
	strings := make(map[domain.USBString]string, len(defaultStrings))
	for k, v := range defaultStrings {
		strings[k] = v
	}
	for k, v := range cfg.Strings {
		strings[k] = v
	}
	cfg.Strings = strings

	return &Device{
		cfg:      cfg,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		baudrate: 400_000,
		eeprom:   make([]byte, EEPROMSize),
	}
}

// Open starts the delivery goroutine and, if configured, the notifier.
func (d *Device) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	d.open = true
	d.out = make(chan domain.Frame, 1024)
	d.stop = make(chan struct{})

	d.wg.Add(1)
	go d.deliver(d.out, d.stop)

	if d.cfg.NotifyInterval > 0 {
		d.wg.Add(1)
		go d.notify(d.stop)
	}

	d.logger.Info("simulated device opened",
		ports.Int("i2c_address", int(d.cfg.I2CAddress)),
		ports.Duration("latency", d.cfg.Latency),
		ports.Duration("jitter", d.cfg.Jitter),
	)
	return nil
}

// Close stops delivery. It is safe to call more than once. No frame is
// delivered after Close returns.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	d.open = false
	close(d.stop)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("simulated device closed")
	return nil
}

// OnFrame registers the inbound frame callback.
func (d *Device) OnFrame(fn func(domain.Frame)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrame = fn
}

// Send executes req and schedules its reply.
func (d *Device) Send(id domain.TransferID, req domain.Request) (domain.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return domain.Ack{Opcode: domain.OpcodeNotOpen}, nil
	}

	result, payload, opcode := d.execute(req)
	if opcode != domain.OpcodeAccepted {
		d.logger.Debug("request rejected",
			ports.Uint64("id", uint64(id)),
			ports.Stringer("command", req.Command),
			ports.Stringer("opcode", opcode),
		)
		return domain.Ack{Opcode: opcode, Result: domain.ResultInvalidParameter}, nil
	}

	d.scheduleLocked(domain.Frame{ID: id, Command: req.Command, Result: result, Payload: payload})
	return domain.Ack{}, nil
}

// scheduleLocked hands f to the delivery goroutine after the configured
// delay. Must hold d.mu.
func (d *Device) scheduleLocked(f domain.Frame) {
	delay := d.cfg.Latency
	if d.cfg.Jitter > 0 {
		delay += time.Duration(d.rng.Int64N(int64(d.cfg.Jitter)))
	}
	out, stop := d.out, d.stop

	time.AfterFunc(delay, func() {
		select {
		case <-stop:
		case out <- f:
		}
	})
}

func (d *Device) deliver(out <-chan domain.Frame, stop <-chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-stop:
			return
		case f := <-out:
			d.mu.Lock()
			fn := d.onFrame
			d.mu.Unlock()
			if fn != nil {
				fn(f)
			}
		}
	}
}

func (d *Device) notify(stop <-chan struct{}) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			d.notices++
			payload := binary.BigEndian.AppendUint64(nil, d.notices)
			if d.open {
				d.scheduleLocked(domain.Frame{
					ID:      domain.NotificationID,
					Command: domain.CmdNotification,
					Payload: payload,
				})
			}
			d.mu.Unlock()
		}
	}
}

// Peek returns a copy of n EEPROM bytes starting at addr.
func (d *Device) Peek(addr uint16, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = d.eeprom[(int(addr)+i)%EEPROMSize]
	}
	return out
}

// BusVoltage returns the last accepted bus voltage in millivolts.
func (d *Device) BusVoltage() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voltage
}

// Baudrate returns the configured I2C clock.
func (d *Device) Baudrate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baudrate
}
