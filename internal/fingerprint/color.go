package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// RGB is a colour sample with 8-bit channels.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("%w: colour %q is not 6 hex digits", ErrInvalidFormat, s)
	}
	var ch [3]uint8
	for i := range 3 {
		hi, ok1 := hexNibble(hex[2*i])
		lo, ok2 := hexNibble(hex[2*i+1])
		if !ok1 || !ok2 {
			return RGB{}, fmt.Errorf("%w: colour %q is not 6 hex digits", ErrInvalidFormat, s)
		}
		ch[i] = hi<<4 | lo
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// UnmarshalJSON accepts [r, g, b], "#rrggbb" or {"r":..,"g":..,"b":..}.
func (c *RGB) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty colour", ErrInvalidFormat)
	}

	var channels []int
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		parsed, err := ParseHex(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case '[':
		if err := json.Unmarshal(data, &channels); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		if len(channels) != 3 {
			return fmt.Errorf("%w: colour needs 3 channels, got %d", ErrInvalidFormat, len(channels))
		}
	default:
		var obj struct {
			R, G, B int
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		channels = []int{obj.R, obj.G, obj.B}
	}

	for _, v := range channels {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: channel value %d outside 0-255", ErrInvalidFormat, v)
		}
	}
	*c = RGB{R: uint8(channels[0]), G: uint8(channels[1]), B: uint8(channels[2])}
	return nil
}

// Hex returns the colour as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorDistance is the Euclidean distance between two colours in RGB space.
func ColorDistance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Quantize maps a hex colour onto a coarse grid cell "r-g-b", each channel
// integer-divided by bucketSize. Larger buckets mean fewer, coarser groups.
func Quantize(hex string, bucketSize int) (string, error) {
	if bucketSize <= 0 {
		return "", fmt.Errorf("%w: bucket size must be positive, got %d", ErrInvalidFormat, bucketSize)
	}
	c, err := ParseHex(hex)
	if err != nil {
		return "", err
	}
	return QuantizeRGB(c, bucketSize), nil
}

// QuantizeRGB is Quantize for an already parsed colour. bucketSize must be positive.
func QuantizeRGB(c RGB, bucketSize int) string {
	return fmt.Sprintf("%d-%d-%d", int(c.R)/bucketSize, int(c.G)/bucketSize, int(c.B)/bucketSize)
}
