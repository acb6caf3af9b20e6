// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Processing constants
const (
	// DefaultConcurrency is the default number of parallel fetch and fingerprint workers
	DefaultConcurrency = 8

	// LabelImageSize is the maximum dimension (width or height) of images sent for labelling
	LabelImageSize = 800
)

// Request limits
const (
	// MaxBatchSize is the maximum number of items or URLs accepted in one request
	MaxBatchSize = 5000

	// MaxUploadImages is the maximum number of images in a single upload request
	MaxUploadImages = 100

	// MaxMultipartMemory is the part of a multipart upload kept in memory; the rest spills to disk
	MaxMultipartMemory = 32 << 20
)
