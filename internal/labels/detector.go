package labels

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Detection is the outcome of one food detection.
type Detection struct {
	Labels     []string `json:"labels"`
	Translated []string `json:"translated"`
	Food       []string `json:"food"`
}

// Detector labels an image, translates the labels and filters food.
type Detector struct {
	provider   Provider
	translator Translator
	filter     *FoodFilter
	language   string
	logger     hclog.Logger
}

// NewDetector wires the parts together. translator may be nil, in which case
// labels are matched untranslated.
func NewDetector(provider Provider, translator Translator, filter *FoodFilter, language string, logger hclog.Logger) *Detector {
	if filter == nil {
		filter = NewFoodFilter(nil)
	}
	return &Detector{
		provider:   provider,
		translator: translator,
		filter:     filter,
		language:   language,
		logger:     logger.Named("labels"),
	}
}

func (d *Detector) Detect(ctx context.Context, image []byte) (*Detection, error) {
	if d.provider == nil {
		return nil, ErrNoProvider
	}

	found, err := d.provider.Labels(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting labels: %w", err)
	}
	d.logger.Debug("labels detected", "labels", found)

	translated := found
	if d.translator != nil && len(found) > 0 {
		translated, err = d.translator.Translate(ctx, found, d.language)
		if err != nil {
			return nil, fmt.Errorf("translating labels: %w", err)
		}
	}

	food := d.filter.Filter(translated)
	d.logger.Debug("food labels", "food", food)

	return &Detection{Labels: found, Translated: translated, Food: food}, nil
}
