package cluster

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

// Item is one photo entering a clustering run. ID is opaque (URL or path).
type Item struct {
	ID      string           `json:"id"`
	Hash    string           `json:"hash,omitempty"`
	Color   *fingerprint.RGB `json:"color,omitempty"`
	Palette []string         `json:"palette,omitempty"`
	Tone    string           `json:"tone,omitempty"`

	// colorErr holds a malformed JSON colour; the colour engine reports it.
	colorErr error
}

// UnmarshalJSON decodes an item without failing on a malformed colour, so
// one bad value excludes only its own item.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var aux struct {
		plain
		Color json.RawMessage `json:"color"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*it = Item(aux.plain).WithRawColor(aux.Color)
	return nil
}

// WithRawColor sets the colour from its JSON form ([r,g,b], "#rrggbb" or
// {"r","g","b"}). An empty or null value leaves the item without a colour.
func (it Item) WithRawColor(raw json.RawMessage) Item {
	it.Color, it.colorErr = nil, nil
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return it
	}
	var c fingerprint.RGB
	if err := json.Unmarshal(raw, &c); err != nil {
		it.colorErr = err
		return it
	}
	it.Color = &c
	return it
}

// HasHash reports whether the item carries a hash to cluster on.
func (it Item) HasHash() bool {
	return it.Hash != ""
}

// HasColor reports whether the item carries colour data.
func (it Item) HasColor() bool {
	return it.Color != nil || it.colorErr != nil || len(it.Palette) > 0
}

// ErrorKind classifies why an item was excluded.
type ErrorKind string

const (
	KindInvalidFingerprint ErrorKind = "InvalidFingerprint"
	KindInvalidFormat      ErrorKind = "InvalidFormat"
	KindFetchFailed        ErrorKind = "FetchFailed"
	KindDecodeFailed       ErrorKind = "DecodeFailed"
	KindStorageFailed      ErrorKind = "StorageFailed"
	KindInternal           ErrorKind = "Internal"
)

// Engine names used in ItemError.
const (
	EngineHash  = "hash"
	EngineColor = "color"
)

// ItemError reports one excluded item. The run that produced it continued.
type ItemError struct {
	ID      string    `json:"id"`
	Engine  string    `json:"engine,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	err     error
}

// NewItemError classifies err and wraps it for item id.
func NewItemError(id, engine string, err error) ItemError {
	return ItemError{
		ID:      id,
		Engine:  engine,
		Kind:    KindOf(err),
		Message: err.Error(),
		err:     err,
	}
}

// NewItemErrorKind wraps err with an explicit kind, used for upstream failures.
func NewItemErrorKind(id string, kind ErrorKind, err error) ItemError {
	return ItemError{ID: id, Kind: kind, Message: err.Error(), err: err}
}

func (e ItemError) Error() string {
	return e.ID + ": " + e.Message
}

func (e ItemError) Unwrap() error {
	return e.err
}

// KindOf maps fingerprint errors onto error kinds.
func KindOf(err error) ErrorKind {
	var ie ItemError
	switch {
	case errors.As(err, &ie):
		return ie.Kind
	case errors.Is(err, fingerprint.ErrInvalidFormat):
		return KindInvalidFormat
	case errors.Is(err, fingerprint.ErrInvalidFingerprint):
		return KindInvalidFingerprint
	default:
		return KindInternal
	}
}
