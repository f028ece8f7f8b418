package proto

// Options carries the bus addressing parameters, read once at startup.
type Options struct {
	SpeedHz int
}

// Bus is the clocked serial transport below the strip driver. The strip
// never answers, so transfers are write-only.
type Bus interface {
	Open(opts *Options) error
	Tx(p []byte) error
	Close() error
}

// Strip is the control surface the reactor programs against.
type Strip interface {
	// SetPixel programs one pixel. brightness is a percentage (0-100) of
	// the global cap. Out-of-range indices are ignored.
	SetPixel(i int, r, g, b byte, brightness int)

	// Fill programs every pixel to the same color at full brightness.
	Fill(r, g, b byte)

	// Show pushes the current buffer to hardware.
	Show() error

	// Close releases the bus. Safe to call more than once.
	Close() error
}
