package proto

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func NewSPI(device string) *SPI {
	return &SPI{device: device}
}

type SPI struct {
	mu     sync.Mutex
	device string
	port   spi.PortCloser
	conn   spi.Conn
}

func (s *SPI) Open(opts *Options) error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "host init")
	}

	port, err := spireg.Open(s.device)
	if err != nil {
		return errors.Wrap(err, "open spi port")
	}

	speed := 4 * physic.MegaHertz
	if opts != nil && opts.SpeedHz > 0 {
		speed = physic.Frequency(opts.SpeedHz) * physic.Hertz
	}

	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return errors.Wrap(err, "connect spi")
	}

	s.mu.Lock()
	s.port = port
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *SPI) Tx(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errors.New("spi bus not open")
	}

	return s.conn.Tx(p, nil)
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	s.conn = nil
	return err
}
