package apa102

import (
	"strings"

	"github.com/pkg/errors"
)

// Order maps each color channel to its byte slot (1-3) behind the pixel
// header. Fixed for the lifetime of a device.
type Order struct {
	r, g, b int
}

// ParseOrder accepts one of the six permutations of "RGB",
// case-insensitively. APA102-class strips usually want "BGR".
func ParseOrder(s string) (Order, error) {
	var o Order
	if len(s) != 3 {
		return o, errors.Errorf("bad channel order %q", s)
	}

	seen := map[byte]bool{}
	for i, c := range []byte(strings.ToUpper(s)) {
		if seen[c] {
			return o, errors.Errorf("bad channel order %q", s)
		}
		seen[c] = true

		switch c {
		case 'R':
			o.r = i + 1
		case 'G':
			o.g = i + 1
		case 'B':
			o.b = i + 1
		default:
			return o, errors.Errorf("bad channel order %q", s)
		}
	}

	return o, nil
}
