package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Algorithm selects the perceptual hash function.
type Algorithm string

const (
	AlgorithmPerception Algorithm = "phash"
	AlgorithmDifference Algorithm = "dhash"
	AlgorithmAverage    Algorithm = "ahash"
)

// HashBits is the length of every hash produced by ImageHasher.
const HashBits = 64

// Hasher computes a perceptual hash from raw image bytes.
type Hasher interface {
	Hash(imageData []byte) (Hash, error)
}

// ImageHasher computes 64-bit perceptual hashes with goimagehash.
type ImageHasher struct {
	algorithm Algorithm
}

// NewImageHasher returns a hasher for the given algorithm.
func NewImageHasher(alg Algorithm) (*ImageHasher, error) {
	switch alg {
	case "":
		alg = AlgorithmPerception
	case AlgorithmPerception, AlgorithmDifference, AlgorithmAverage:
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q (valid: phash, dhash, ahash)", alg)
	}
	return &ImageHasher{algorithm: alg}, nil
}

// Algorithm returns the configured algorithm.
func (h *ImageHasher) Algorithm() Algorithm {
	return h.algorithm
}

// Hash decodes the image and computes its hash.
func (h *ImageHasher) Hash(imageData []byte) (Hash, error) {
	img, err := Decode(imageData)
	if err != nil {
		return Hash{}, err
	}
	return h.HashImage(img)
}

// HashImage computes the hash of an already decoded image.
func (h *ImageHasher) HashImage(img image.Image) (Hash, error) {
	var (
		ih  *goimagehash.ImageHash
		err error
	)
	switch h.algorithm {
	case AlgorithmDifference:
		ih, err = goimagehash.DifferenceHash(img)
	case AlgorithmAverage:
		ih, err = goimagehash.AverageHash(img)
	default:
		ih, err = goimagehash.PerceptionHash(img)
	}
	if err != nil {
		return Hash{}, fmt.Errorf("failed to compute %s: %w", h.algorithm, err)
	}
	return HashFromUint64(ih.GetHash()), nil
}

// Decode decodes JPEG, PNG, GIF, BMP or WebP data.
func Decode(imageData []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// resizeImage scales an image to the specified dimensions.
func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// ResizeImage resizes an image to fit within maxSize while keeping aspect ratio.
// Returns JPEG-encoded bytes.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxSize || height > maxSize {
		newWidth, newHeight := fitWithin(width, height, maxSize)
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	// Always re-encode so downstream services get a consistent format.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

func fitWithin(width, height, maxSize int) (int, int) {
	if width > height {
		return maxSize, max(1, int(float64(height)*float64(maxSize)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxSize)/float64(height))), maxSize
}
