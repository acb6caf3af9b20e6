// Package cluster groups photo fingerprints into duplicate, similarity and
// colour groups in a single greedy pass.
//
// Every run owns its state. Construct an engine per batch (or call Run) and
// never share one between goroutines. Assignment is representative-anchored
// and order dependent: the same items submitted in another order can form
// different groups.
package cluster

import (
	"errors"
	"fmt"
)

// Policy decides which qualifying group an item joins.
type Policy string

const (
	// FirstFit joins the first group, in creation order, within the threshold.
	FirstFit Policy = "first-fit"
	// BestFit joins the closest group within the threshold; the earliest
	// group wins ties.
	BestFit Policy = "best-fit"
)

// ColorStrategyKind selects how colours are grouped.
type ColorStrategyKind string

const (
	// StrategyProximity compares against group representatives by Euclidean distance.
	StrategyProximity ColorStrategyKind = "proximity"
	// StrategyBucket groups by quantised grid cell.
	StrategyBucket ColorStrategyKind = "bucket"
)

// Defaults used by DefaultConfig.
const (
	DefaultHashBits            = 64
	DefaultSimilarityThreshold = 6
	DefaultColorThreshold      = 50.0
	DefaultBucketSize          = 96
)

// Config parameterises one clustering run.
type Config struct {
	// HashBits is the expected hash length. Zero accepts binary hashes of
	// any length; comparisons between different lengths never match.
	HashBits            int               `json:"hashBits" yaml:"hash_bits"`
	SimilarityThreshold int               `json:"similarityThreshold" yaml:"similarity_threshold"`
	ColorThreshold      float64           `json:"colorThreshold" yaml:"color_threshold"`
	BucketSize          int               `json:"bucketSize" yaml:"bucket_size"`
	BucketWithTone      bool              `json:"bucketWithTone" yaml:"bucket_with_tone"`
	Policy              Policy            `json:"policy" yaml:"policy"`
	ColorStrategy       ColorStrategyKind `json:"colorStrategy" yaml:"color_strategy"`
}

// DefaultConfig returns a 64-bit, best-fit, proximity configuration.
func DefaultConfig() Config {
	return Config{
		HashBits:            DefaultHashBits,
		SimilarityThreshold: DefaultSimilarityThreshold,
		ColorThreshold:      DefaultColorThreshold,
		BucketSize:          DefaultBucketSize,
		Policy:              BestFit,
		ColorStrategy:       StrategyProximity,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid cluster config")

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.HashBits < 0 {
		return fmt.Errorf("%w: hash bits must not be negative, got %d", ErrInvalidConfig, c.HashBits)
	}
	if c.SimilarityThreshold < 0 {
		return fmt.Errorf("%w: similarity threshold must not be negative, got %d", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.ColorThreshold < 0 {
		return fmt.Errorf("%w: color threshold must not be negative, got %g", ErrInvalidConfig, c.ColorThreshold)
	}
	if c.BucketSize <= 0 {
		return fmt.Errorf("%w: bucket size must be positive, got %d", ErrInvalidConfig, c.BucketSize)
	}
	switch c.Policy {
	case FirstFit, BestFit:
	default:
		return fmt.Errorf("%w: unknown policy %q (valid: first-fit, best-fit)", ErrInvalidConfig, c.Policy)
	}
	switch c.ColorStrategy {
	case StrategyProximity, StrategyBucket:
	default:
		return fmt.Errorf("%w: unknown color strategy %q (valid: proximity, bucket)", ErrInvalidConfig, c.ColorStrategy)
	}
	return nil
}
