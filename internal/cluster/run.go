package cluster

import (
	"fmt"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

// Result holds the output of Run. A nil part means that engine did not run.
type Result struct {
	Hash   *HashResult  `json:"hash,omitempty"`
	Color  *ColorResult `json:"color,omitempty"`
	Errors []ItemError  `json:"errors,omitempty"`
}

// Run feeds every item to the engines its fingerprints qualify for: items
// with a hash go to the hash engine, items with colour data to the colour
// engine. Items carrying neither are reported as InvalidFingerprint.
// Both engines see items in submission order with fresh state.
func Run(items []Item, cfg Config) (*Result, error) {
	hashes, err := NewHashEngine(cfg)
	if err != nil {
		return nil, err
	}
	colors, err := NewColorEngine(cfg)
	if err != nil {
		return nil, err
	}

	var (
		errs      []ItemError
		usedHash  bool
		usedColor bool
	)
	for _, item := range items {
		if !item.HasHash() && !item.HasColor() {
			errs = append(errs, NewItemError(item.ID, "",
				fmt.Errorf("%w: item has no hash, color or palette", fingerprint.ErrInvalidFingerprint)))
			continue
		}
		if item.HasHash() {
			usedHash = true
			_ = hashes.Add(item)
		}
		if item.HasColor() {
			usedColor = true
			_ = colors.Add(item)
		}
	}

	res := &Result{}
	if usedHash {
		hr := hashes.Result()
		res.Hash = &hr
		errs = append(errs, hr.Errors...)
	}
	if usedColor {
		cr := colors.Result()
		res.Color = &cr
		errs = append(errs, cr.Errors...)
	}
	res.Errors = errs
	return res, nil
}
