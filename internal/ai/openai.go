package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const chatModel = openai.ChatModelGPT4_1Mini

// maxParseRetries bounds how often a malformed reply is sent back to the
// model with the parse error before giving up.
const maxParseRetries = 3

type OpenAIProvider struct {
	client *openai.Client
	usage  Usage
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *OpenAIProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *OpenAIProvider) trackUsage(inputTokens, outputTokens int64) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
}

// imagePart encodes image bytes as a data-URL content part.
func imagePart(data []byte) openai.ChatCompletionContentPartUnionParam {
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
		URL:    url,
		Detail: "low",
	})
}

// completeJSON sends one instruction with attached images and decodes the
// embedded JSON reply into out. A malformed reply is fed back to the model
// with the parse error, up to maxParseRetries times.
func (p *OpenAIProvider) completeJSON(ctx context.Context, instruction string, images [][]byte, out any) error {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(instruction),
	}
	for _, img := range images {
		parts = append(parts, imagePart(img))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		},
	}

	var lastErr error
	for range maxParseRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:     chatModel,
			Messages:  messages,
			MaxTokens: openai.Int(1500),
		})
		if err != nil {
			return fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response from OpenAI")
		}

		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		if err := DecodeResponse(content, out); err != nil {
			lastErr = err

			// Feed the reply and the parse error back for a retry.
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please answer again with only the JSON object.", err)),
						},
					},
				},
			)
			continue
		}
		return nil
	}

	return lastErr
}

func (p *OpenAIProvider) ValidateFaceCrops(ctx context.Context, crops [][]byte, characters []string) ([]CropJudgment, error) {
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

func (p *OpenAIProvider) JudgeGridConsistency(ctx context.Context, gridImage []byte, character string, pages []int) (*ConsistencyJudgment, error) {
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

func (p *OpenAIProvider) JudgeImageConsistency(ctx context.Context, facesImgs []PageFace, character string) (*ConsistencyJudgment, error) {
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
