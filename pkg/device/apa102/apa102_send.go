package apa102

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	startFrameLen = 4
	minEndFrame   = 4

	// Bounded transfer size to stay under bus driver limits.
	chunkSize = 32
)

// Show transmits start frame, pixel words and end frame. Bus failures
// surface to the caller untouched; retrying is the caller's call.
func (d *Device) Show() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("device closed")
	}

	start := time.Now()

	frame := make([]byte, 0, startFrameLen+len(d.buf)+d.endFrameLen())
	frame = append(frame, make([]byte, startFrameLen)...)
	frame = append(frame, d.buf...)
	for i := 0; i < d.endFrameLen(); i++ {
		frame = append(frame, 0xFF)
	}

	for off := 0; off < len(frame); off += chunkSize {
		end := off + chunkSize
		if end > len(frame) {
			end = len(frame)
		}
		if err := d.bus.Tx(frame[off:end]); err != nil {
			return errors.Wrap(err, "spi transfer")
		}
	}

	d.logger.With(
		zap.Int("bytes", len(frame)),
		zap.String("cost", time.Since(start).String()),
	).Debug("show")

	return nil
}

// endFrameLen returns the number of 0xFF bytes needed to clock the last
// pixel through the strip: at least one extra clock edge per two LEDs.
// The 4-byte floor matches the classic framing for short strips.
func (d *Device) endFrameLen() int {
	n := (d.count + 15) / 16
	if n < minEndFrame {
		n = minEndFrame
	}
	return n
}
