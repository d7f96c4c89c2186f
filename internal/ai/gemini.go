package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	usage  Usage
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *GeminiProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *GeminiProvider) trackUsage(inputTokens, outputTokens int32) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
}

// completeJSON sends one instruction with attached images and decodes the
// embedded JSON reply into out, retrying with parse-error feedback.
func (p *GeminiProvider) completeJSON(ctx context.Context, instruction string, images [][]byte, out any) error {
	parts := []*genai.Part{{Text: instruction}}
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img, MIMEType: "image/jpeg"}})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for range maxParseRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			p.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount)
		}

		content := result.Text()
		if content == "" {
			return errors.New("no response from Gemini")
		}

		if err := DecodeResponse(content, out); err != nil {
			lastErr = err
			contents = append(contents,
				&genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}},
				&genai.Content{Role: "user", Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please answer again with only the JSON object.", err)}}},
			)
			continue
		}
		return nil
	}

	return lastErr
}

func (p *GeminiProvider) ValidateFaceCrops(ctx context.Context, crops [][]byte, characters []string) ([]CropJudgment, error) {
	if len(crops) == 0 {
		return nil, nil
	}

	images := make([][]byte, 0, len(crops))
	for i, crop := range crops {
		resized, err := ResizeImage(crop, 512)
		if err != nil {
			return nil, fmt.Errorf("failed to resize crop %d: %w", i, err)
		}
		images = append(images, resized)
	}

	var resp cropJudgmentResponse
	if err := p.completeJSON(ctx, buildFaceValidationPrompt(characters), images, &resp); err != nil {
		return nil, err
	}
	return resp.Crops, nil
}

func (p *GeminiProvider) JudgeGridConsistency(ctx context.Context, gridImage []byte, character string, pages []int) (*ConsistencyJudgment, error) {
	resized, err := ResizeImage(gridImage, 1536)
	if err != nil {
		return nil, fmt.Errorf("failed to resize grid image: %w", err)
	}

	var judgment ConsistencyJudgment
	if err := p.completeJSON(ctx, buildGridPrompt(character, pages), [][]byte{resized}, &judgment); err != nil {
		return nil, err
	}
	return &judgment, nil
}

func (p *GeminiProvider) JudgeImageConsistency(ctx context.Context, facesImgs []PageFace, character string) (*ConsistencyJudgment, error) {
	images := make([][]byte, 0, len(facesImgs))
	pages := make([]int, 0, len(facesImgs))
	for _, f := range facesImgs {
		resized, err := ResizeImage(f.Image, 512)
		if err != nil {
			return nil, fmt.Errorf("failed to resize face for page %d: %w", f.PageNumber, err)
		}
		images = append(images, resized)
		pages = append(pages, f.PageNumber)
	}

	var judgment ConsistencyJudgment
	if err := p.completeJSON(ctx, buildImagesPrompt(character, pages), images, &judgment); err != nil {
		return nil, err
	}
	return &judgment, nil
}
