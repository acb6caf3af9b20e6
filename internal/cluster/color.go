package cluster

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

// ColorGroup holds items grouped by colour. Key is the founder's hex colour
// for proximity groups and the grid cell for bucket groups.
type ColorGroup struct {
	Key            string           `json:"key"`
	Representative *fingerprint.RGB `json:"representative,omitempty"`
	Members        []string         `json:"members"`
}

// ColorStrategy assigns items to colour groups. Both strategies read the
// explicit colour first and fall back to the dominant palette entry.
// Implementations keep per-run state and are not safe for concurrent use.
type ColorStrategy interface {
	Kind() ColorStrategyKind
	Add(item Item) error
	Groups() []ColorGroup
}

// NewColorStrategy builds the strategy selected by cfg.ColorStrategy.
func NewColorStrategy(cfg Config) (ColorStrategy, error) {
	switch cfg.ColorStrategy {
	case StrategyProximity:
		return &proximityStrategy{threshold: cfg.ColorThreshold, policy: cfg.Policy}, nil
	case StrategyBucket:
		return &bucketStrategy{
			size:     cfg.BucketSize,
			withTone: cfg.BucketWithTone,
			index:    make(map[string]int),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown color strategy %q", ErrInvalidConfig, cfg.ColorStrategy)
	}
}

// itemColor prefers the explicit colour and falls back to the dominant palette entry.
func itemColor(item Item) (fingerprint.RGB, error) {
	if item.colorErr != nil {
		return fingerprint.RGB{}, item.colorErr
	}
	if item.Color != nil {
		return *item.Color, nil
	}
	if len(item.Palette) > 0 {
		return fingerprint.ParseHex(item.Palette[0])
	}
	return fingerprint.RGB{}, fmt.Errorf("%w: item has neither color nor palette", fingerprint.ErrInvalidFingerprint)
}

type proximityStrategy struct {
	threshold float64
	policy    Policy
	groups    []ColorGroup
}

func (s *proximityStrategy) Kind() ColorStrategyKind { return StrategyProximity }

func (s *proximityStrategy) Add(item Item) error {
	c, err := itemColor(item)
	if err != nil {
		return err
	}

	best, bestDist := -1, 0.0
	for i := range s.groups {
		d := fingerprint.ColorDistance(c, *s.groups[i].Representative)
		if d > s.threshold {
			continue
		}
		if s.policy == FirstFit {
			best = i
			break
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}

	if best >= 0 {
		s.groups[best].Members = append(s.groups[best].Members, item.ID)
		return nil
	}
	rep := c
	s.groups = append(s.groups, ColorGroup{
		Key:            rep.Hex(),
		Representative: &rep,
		Members:        []string{item.ID},
	})
	return nil
}

func (s *proximityStrategy) Groups() []ColorGroup { return s.groups }

// bucketStrategy groups by grid cell. Perceptually close colours on either
// side of a cell boundary end up in different groups.
type bucketStrategy struct {
	size     int
	withTone bool
	index    map[string]int
	groups   []ColorGroup
}

func (s *bucketStrategy) Kind() ColorStrategyKind { return StrategyBucket }

func (s *bucketStrategy) key(item Item) (string, error) {
	c, err := itemColor(item)
	if err != nil {
		return "", err
	}
	key := fingerprint.QuantizeRGB(c, s.size)

	if s.withTone {
		tone := strings.ToLower(strings.TrimSpace(item.Tone))
		if tone == "" {
			tone = fingerprint.ToneNeutral
		}
		key += "/" + tone
	}
	return key, nil
}

func (s *bucketStrategy) Add(item Item) error {
	key, err := s.key(item)
	if err != nil {
		return err
	}
	if idx, ok := s.index[key]; ok {
		s.groups[idx].Members = append(s.groups[idx].Members, item.ID)
		return nil
	}
	s.index[key] = len(s.groups)
	s.groups = append(s.groups, ColorGroup{Key: key, Members: []string{item.ID}})
	return nil
}

func (s *bucketStrategy) Groups() []ColorGroup { return s.groups }

// ColorResult is the finished state of a colour run.
type ColorResult struct {
	Strategy ColorStrategyKind `json:"strategy"`
	Groups   []ColorGroup      `json:"groups"`
	Errors   []ItemError       `json:"errors,omitempty"`
}

// ColorEngine wraps a strategy and collects per-item errors.
type ColorEngine struct {
	strategy ColorStrategy
	errors   []ItemError
}

// NewColorEngine returns an engine with empty state.
func NewColorEngine(cfg Config) (*ColorEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := NewColorStrategy(cfg)
	if err != nil {
		return nil, err
	}
	return &ColorEngine{strategy: s}, nil
}

// Add assigns one item. A returned error means the item was excluded.
func (e *ColorEngine) Add(item Item) error {
	if err := e.strategy.Add(item); err != nil {
		ie := NewItemError(item.ID, EngineColor, err)
		e.errors = append(e.errors, ie)
		return ie
	}
	return nil
}

// Result returns the groups in creation order.
func (e *ColorEngine) Result() ColorResult {
	return ColorResult{
		Strategy: e.strategy.Kind(),
		Groups:   e.strategy.Groups(),
		Errors:   e.errors,
	}
}

// ClusterColors runs a fresh colour engine over items in order.
func ClusterColors(items []Item, cfg Config) (*ColorResult, error) {
	e, err := NewColorEngine(cfg)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		_ = e.Add(item)
	}
	res := e.Result()
	return &res, nil
}
