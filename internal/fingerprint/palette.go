package fingerprint

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"golang.org/x/image/draw"
)

// Tone labels, named after the Vibrant swatch classes.
const (
	ToneNeutral      = "neutral"
	ToneVibrant      = "vibrant"
	ToneMuted        = "muted"
	ToneDarkVibrant  = "darkvibrant"
	ToneDarkMuted    = "darkmuted"
	ToneLightVibrant = "lightvibrant"
	ToneLightMuted   = "lightmuted"
)

const (
	// DefaultPaletteSize is the number of colours returned by default.
	DefaultPaletteSize = 5
	// paletteSampleSize is the maximum edge of the downscaled sampling image.
	paletteSampleSize = 64
	// cellShift quantises each channel to 16 levels for the histogram.
	cellShift = 4
)

// ErrEmptyPalette is returned when no opaque pixels could be sampled.
var ErrEmptyPalette = errors.New("empty palette")

// Swatch is the colour fingerprint of one image.
type Swatch struct {
	Color   RGB      `json:"color"`
	Palette []string `json:"palette"`
	Tone    string   `json:"tone"`
}

// PaletteExtractor computes a dominant-first palette from raw image bytes.
type PaletteExtractor interface {
	Extract(imageData []byte) (*Swatch, error)
}

// HistogramExtractor builds palettes from a coarse colour histogram of a
// downscaled copy of the image.
type HistogramExtractor struct {
	size int
}

// NewHistogramExtractor returns an extractor producing up to size colours.
func NewHistogramExtractor(size int) *HistogramExtractor {
	if size <= 0 {
		size = DefaultPaletteSize
	}
	return &HistogramExtractor{size: size}
}

// Extract decodes the image and computes its swatch.
func (e *HistogramExtractor) Extract(imageData []byte) (*Swatch, error) {
	img, err := Decode(imageData)
	if err != nil {
		return nil, err
	}
	return e.ExtractImage(img)
}

type histogramCell struct {
	key     int
	count   int
	r, g, b int
}

// ExtractImage computes the swatch of an already decoded image.
func (e *HistogramExtractor) ExtractImage(img image.Image) (*Swatch, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrEmptyPalette)
	}
	w, h := bounds.Dx(), bounds.Dy()
	var sample *image.RGBA
	if w > paletteSampleSize || h > paletteSampleSize {
		w, h = fitWithin(w, h, paletteSampleSize)
		sample = resizeImage(img, w, h)
	} else {
		sample = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(sample, sample.Bounds(), img, bounds.Min, draw.Src)
	}

	cells := make(map[int]*histogramCell)
	for y := range h {
		for x := range w {
			px := sample.RGBAAt(x, y)
			if px.A < 128 {
				continue
			}
			key := int(px.R>>cellShift)<<8 | int(px.G>>cellShift)<<4 | int(px.B>>cellShift)
			c, ok := cells[key]
			if !ok {
				c = &histogramCell{key: key}
				cells[key] = c
			}
			c.count++
			c.r += int(px.R)
			c.g += int(px.G)
			c.b += int(px.B)
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: image is fully transparent", ErrEmptyPalette)
	}

	ranked := make([]*histogramCell, 0, len(cells))
	for _, c := range cells {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})
	if len(ranked) > e.size {
		ranked = ranked[:e.size]
	}

	swatch := &Swatch{Palette: make([]string, len(ranked))}
	for i, c := range ranked {
		avg := RGB{R: uint8(c.r / c.count), G: uint8(c.g / c.count), B: uint8(c.b / c.count)}
		if i == 0 {
			swatch.Color = avg
		}
		swatch.Palette[i] = avg.Hex()
	}
	swatch.Tone = ClassifyTone(swatch.Color)
	return swatch, nil
}

// ClassifyTone assigns a coarse swatch class from lightness and saturation.
func ClassifyTone(c RGB) string {
	l, s := lightnessSaturation(c)
	if s < 0.15 {
		return ToneNeutral
	}
	vibrant := s >= 0.45
	switch {
	case l < 0.3:
		if vibrant {
			return ToneDarkVibrant
		}
		return ToneDarkMuted
	case l > 0.7:
		if vibrant {
			return ToneLightVibrant
		}
		return ToneLightMuted
	case vibrant:
		return ToneVibrant
	default:
		return ToneMuted
	}
}

// lightnessSaturation returns HSL lightness and saturation in [0, 1].
func lightnessSaturation(c RGB) (float64, float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	hi := max(r, g, b)
	lo := min(r, g, b)
	l := (hi + lo) / 2
	if hi == lo {
		return l, 0
	}
	d := hi - lo
	if l > 0.5 {
		return l, d / (2 - hi - lo)
	}
	return l, d / (hi + lo)
}
