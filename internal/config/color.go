package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidColor = errors.New("invalid color")

// ParseHex turns "#rrggbb" (leading # optional) into sRGB components in [0,1].
func ParseHex(s string) ([3]float32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return [3]float32{}, fmt.Errorf("%w: %q is not #rrggbb", ErrInvalidColor, s)
	}
	var out [3]float32
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(hex[i*2])
		lo, ok2 := hexNibble(hex[i*2+1])
		if !ok1 || !ok2 {
			return [3]float32{}, fmt.Errorf("%w: %q has a non-hex digit", ErrInvalidColor, s)
		}
		out[i] = float32(hi<<4|lo) / 255
	}
	return out, nil
}

// FormatHex is the inverse of ParseHex; components are clamped to [0,1].
func FormatHex(c [3]float32) string {
	var b strings.Builder
	b.WriteByte('#')
	for _, v := range c {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		fmt.Fprintf(&b, "%02x", uint8(v*255+0.5))
	}
	return b.String()
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
