package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const translatePrompt = `You translate short image labels.
Translate every element of the JSON array you receive into the language with ISO code %q.
Respond with a JSON array of the same length and order, lowercase, without commentary.`

// OpenAITranslator translates labels with a chat completion.
type OpenAITranslator struct {
	client openai.Client
}

func NewOpenAITranslator(apiKey string, opts ...option.RequestOption) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI token is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAITranslator{client: openai.NewClient(opts...)}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, texts []string, language string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	input, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("encoding labels: %w", err)
	}

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4_1Mini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(translatePrompt, language)),
			openai.UserMessage(string(input)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	translated, err := parseLabelList(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(texts), len(translated))
	}
	return translated, nil
}
