package virtual

import (
	"go.uber.org/zap"

	"satleds/pkg/proto"
)

// Mock returns a log-only strip for running the service without hardware.
func Mock(logger *zap.Logger) proto.Strip {
	return &Mocker{logger}
}

type Mocker struct {
	l *zap.Logger
}

func (m *Mocker) SetPixel(i int, r, g, b byte, brightness int) {
	m.l.With(
		zap.Int("i", i),
		zap.Uint8("r", r),
		zap.Uint8("g", g),
		zap.Uint8("b", b),
		zap.Int("brightness", brightness),
	).Debug("set-pixel")
}

func (m *Mocker) Fill(r, g, b byte) {
	m.l.With(
		zap.Uint8("r", r),
		zap.Uint8("g", g),
		zap.Uint8("b", b),
	).Info("fill")
}

func (m *Mocker) Show() error {
	m.l.Debug("show")
	return nil
}

func (m *Mocker) Close() error {
	m.l.Info("close")
	return nil
}
