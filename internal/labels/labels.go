// Package labels detects what a photo shows and picks out food items.
package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoProvider is returned when label detection is not configured.
var ErrNoProvider = errors.New("label provider not configured")

// Provider returns descriptive labels for an image, in English.
type Provider interface {
	Labels(ctx context.Context, image []byte) ([]string, error)
}

// Translator translates labels into a target language, one output per input.
type Translator interface {
	Translate(ctx context.Context, texts []string, language string) ([]string, error)
}

// parseLabelList accepts a JSON array of strings or an object with a
// "labels" array, optionally wrapped in a markdown code fence.
func parseLabelList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var list []string
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return cleanLabels(list), nil
	}

	var wrapped struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("could not parse label list: %w", err)
	}
	return cleanLabels(wrapped.Labels), nil
}

func cleanLabels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
