package labels

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/photo-grouper/internal/constants"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

const defaultGeminiModel = "gemini-2.5-flash"

const labelPrompt = `List the objects, foods and concepts visible in this photo.
Respond with a JSON array of at most 15 short English labels, most prominent first.
Use lowercase single words or short noun phrases, for example ["banana", "bread", "table"].`

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Labels(ctx context.Context, image []byte) ([]string, error) {
	const maxRetries = 3

	// Resize image to save costs
	resized, err := fingerprint.ResizeImage(image, constants.LabelImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: labelPrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}

		labels, err := parseLabelList(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}},
				&genai.Content{Role: "user", Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Respond with a JSON array of strings only.", err)}}},
			)
			continue
		}
		return labels, nil
	}

	return nil, fmt.Errorf("failed to parse labels after %d attempts: %w", maxRetries, lastError)
}
