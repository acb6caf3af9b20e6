package cluster

import (
	"strings"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

// DuplicateSet holds items sharing one exact hash, founder first.
type DuplicateSet struct {
	Hash    string   `json:"hash"`
	Members []string `json:"members"`
}

// HashGroup holds near-duplicates anchored on the founder's hash.
type HashGroup struct {
	Representative string   `json:"representative"`
	Members        []string `json:"members"`

	hash fingerprint.Hash
}

// HashResult is the finished state of a hash run.
type HashResult struct {
	Duplicates []DuplicateSet `json:"duplicates"`
	Similar    []HashGroup    `json:"similar"`
	Errors     []ItemError    `json:"errors,omitempty"`
	// Mismatches counts comparisons skipped because hash lengths differed.
	Mismatches int `json:"mismatches,omitempty"`
}

// HashEngine performs exact-duplicate and near-duplicate grouping.
type HashEngine struct {
	cfg        Config
	buckets    map[string]int
	duplicates []DuplicateSet
	groups     []HashGroup
	errors     []ItemError
	mismatches int
}

// NewHashEngine returns an engine with empty state.
func NewHashEngine(cfg Config) (*HashEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HashEngine{
		cfg:     cfg,
		buckets: make(map[string]int),
	}, nil
}

// Add assigns one item. A returned error means the item was excluded; it is
// also recorded in the result.
func (e *HashEngine) Add(item Item) error {
	h, err := fingerprint.ParseHash(item.Hash, e.cfg.HashBits)
	if err != nil {
		ie := NewItemError(item.ID, EngineHash, err)
		e.errors = append(e.errors, ie)
		return ie
	}

	key := h.String()
	if idx, ok := e.buckets[key]; ok {
		// Exact duplicates never take part in similarity matching.
		e.duplicates[idx].Members = append(e.duplicates[idx].Members, item.ID)
		return nil
	}

	if gi := e.match(h); gi >= 0 {
		e.groups[gi].Members = append(e.groups[gi].Members, item.ID)
	} else {
		e.groups = append(e.groups, HashGroup{
			Representative: strings.TrimSpace(item.Hash),
			Members:        []string{item.ID},
			hash:           h,
		})
	}

	e.buckets[key] = len(e.duplicates)
	e.duplicates = append(e.duplicates, DuplicateSet{
		Hash:    strings.TrimSpace(item.Hash),
		Members: []string{item.ID},
	})
	return nil
}

// match returns the index of the group h joins, or -1.
func (e *HashEngine) match(h fingerprint.Hash) int {
	best, bestDist := -1, 0
	for i := range e.groups {
		d, err := fingerprint.HammingDistance(h, e.groups[i].hash)
		if err != nil {
			e.mismatches++
			continue
		}
		if d > e.cfg.SimilarityThreshold {
			continue
		}
		if e.cfg.Policy == FirstFit {
			return i
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Result returns the groups in creation order.
func (e *HashEngine) Result() HashResult {
	return HashResult{
		Duplicates: e.duplicates,
		Similar:    e.groups,
		Errors:     e.errors,
		Mismatches: e.mismatches,
	}
}

// ClusterHashes runs a fresh hash engine over items in order.
func ClusterHashes(items []Item, cfg Config) (*HashResult, error) {
	e, err := NewHashEngine(cfg)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		_ = e.Add(item)
	}
	res := e.Result()
	return &res, nil
}
