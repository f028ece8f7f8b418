package apa102

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"satleds/pkg/proto"
)

const (
	// Leading byte of every pixel word: 0b111 marker plus 5 brightness bits.
	headerMarker  = 0b1110_0000
	maxBrightness = 31

	bytesPerPixel = 4
)

type Config struct {
	// Count is the number of LEDs on the strip.
	Count int
	// Brightness is the global 5-bit cap (1-31). Values outside that range
	// are clamped, zero means full.
	Brightness int
	// Order is the channel order, e.g. "BGR".
	Order string
	// SpeedHz is the bus clock. Zero picks the bus default.
	SpeedHz int
}

// New opens the bus and returns a blanked strip.
func New(bus proto.Bus, logger *zap.Logger, cfg Config) (*Device, error) {
	if cfg.Count <= 0 {
		return nil, errors.Errorf("invalid LED count: %d", cfg.Count)
	}

	order, err := ParseOrder(cfg.Order)
	if err != nil {
		return nil, err
	}

	global := cfg.Brightness
	if global <= 0 || global > maxBrightness {
		global = maxBrightness
	}

	d := &Device{
		bus:    bus,
		logger: logger,
		count:  cfg.Count,
		global: global,
		order:  order,
		buf:    make([]byte, cfg.Count*bytesPerPixel),
	}
	d.fill(0, 0, 0)

	if err := bus.Open(&proto.Options{SpeedHz: cfg.SpeedHz}); err != nil {
		return nil, err
	}

	return d, nil
}

type Device struct {
	mu     sync.Mutex
	bus    proto.Bus
	logger *zap.Logger
	count  int
	global int
	order  Order
	buf    []byte
	closed bool
}

func (d *Device) SetPixel(i int, r, g, b byte, brightness int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setPixel(i, r, g, b, brightness)
}

func (d *Device) Fill(r, g, b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fill(r, g, b)
}

// setPixel encodes one pixel word in place. Out-of-range indices are a
// deliberate no-op so callers can write patterns without bounds bookkeeping.
func (d *Device) setPixel(i int, r, g, b byte, brightness int) {
	if i < 0 || i >= d.count {
		return
	}

	if brightness < 0 {
		brightness = 0
	} else if brightness > 100 {
		brightness = 100
	}

	// ceil(percent * global / 100), clamped to the 5-bit field
	enc := (brightness*d.global + 99) / 100
	if enc > maxBrightness {
		enc = maxBrightness
	}

	off := i * bytesPerPixel
	d.buf[off] = headerMarker | byte(enc)
	d.buf[off+d.order.r] = r
	d.buf[off+d.order.g] = g
	d.buf[off+d.order.b] = b
}

func (d *Device) fill(r, g, b byte) {
	for i := 0; i < d.count; i++ {
		d.setPixel(i, r, g, b, 100)
	}
}

// Close releases the bus. Idempotent: it is reached from both the normal
// and the interrupt teardown path.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	return d.bus.Close()
}
