package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"wardrobeapi/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ContentGenerator is the part of genai.Models the image generator calls.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeneratedImage struct {
	Data     []byte
	MIMEType string
	Model    string
}

// ModelsExhaustedError is returned when every configured model failed.
type ModelsExhaustedError struct {
	Attempted []string
	Details   []string
}

func (e *ModelsExhaustedError) Error() string {
	return fmt.Sprintf("Failed to generate image with any model (%s): %s",
		strings.Join(e.Attempted, ", "), strings.Join(e.Details, "; "))
}

// GeminiImageGenerator walks an ordered model list and keeps the first
// model that answers with inline image data.
type GeminiImageGenerator struct {
	Models          ContentGenerator
	ModelNames      []string
	Temperature     float32
	MaxOutputTokens int32
}

func NewGeminiImageGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiImageGenerator{
		Models:          client.Models,
		ModelNames:      cfg.Models,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

func floatPointer(f float32) *float32 {
	return &f
}

// GenerateImage sends the text first and then every image as inline data.
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, text string, images []*Asset) (*GeneratedImage, error) {
	parts := []*genai.Part{{Text: text}}
	for _, image := range images {
		if image == nil || len(image.Data) == 0 {
			continue
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     image.Data,
				MIMEType: image.MIMEType,
			},
		})
	}

	exhausted := &ModelsExhaustedError{}
	for _, model := range g.ModelNames {
		exhausted.Attempted = append(exhausted.Attempted, model)
		image, err := g.generateWithModel(ctx, model, parts)
		if err == nil {
			return image, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		config.Logger.Warn("image model failed, trying next", zap.String("model", model), zap.Error(err))
		exhausted.Details = append(exhausted.Details, fmt.Sprintf("%s: %v", model, err))
	}
	return nil, exhausted
}

func (g *GeminiImageGenerator) generateWithModel(ctx context.Context, model string, parts []*genai.Part) (*GeneratedImage, error) {
	result, err := g.Models.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, &genai.GenerateContentConfig{
		CandidateCount:     1,
		MaxOutputTokens:    g.MaxOutputTokens,
		Temperature:        floatPointer(g.Temperature),
		ResponseModalities: []string{"IMAGE", "TEXT"},
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		},
	})
	if err != nil {
		return nil, err
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("content violation: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}
	data, mime, err := GetFirstInlineImage(result)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("no image data in response")
	}
	return &GeneratedImage{Data: data, MIMEType: mime, Model: model}, nil
}

// GetFirstInlineImage scans candidate parts for inline image data, skipping text parts.
func GetFirstInlineImage(result *genai.GenerateContentResponse) ([]byte, string, error) {
	if result == nil {
		return nil, "", errors.New("empty response")
	}

	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, "", fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			inlineData := part.InlineData
			if inlineData != nil && len(inlineData.Data) > 0 {
				return inlineData.Data, inlineImageMIME(inlineData), nil
			}
		}
	}
	return nil, "", nil
}

// inlineImageMIME trusts the declared type when it names an image, sniffs otherwise and falls back to png.
func inlineImageMIME(blob *genai.Blob) string {
	if strings.HasPrefix(blob.MIMEType, "image/") {
		return blob.MIMEType
	}
	if sniffed := http.DetectContentType(blob.Data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return "image/png"
}
