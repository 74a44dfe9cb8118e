package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	calls     []string
	contents  [][]*genai.Content
	responses map[string]*genai.GenerateContentResponse
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, model)
	f.contents = append(f.contents, contents)
	if resp, ok := f.responses[model]; ok {
		return resp, nil
	}
	return nil, errors.New(model + " unavailable")
}

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here is your outfit"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			}},
		}},
	}
}

func TestGeminiFallsBackToNextModel(t *testing.T) {
	models := &fakeModels{responses: map[string]*genai.GenerateContentResponse{
		"text-only": {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "no image"}}}}}},
		"works":     imageResponse([]byte("png-bytes")),
	}}
	g := &GeminiImageGenerator{Models: models, ModelNames: []string{"broken", "text-only", "works", "never"}}

	image, err := g.GenerateImage(context.Background(), "Blue shirt", []*Asset{
		{Data: []byte("top"), MIMEType: "image/jpeg"},
		nil,
		{Data: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "works", image.Model)
	assert.Equal(t, []byte("png-bytes"), image.Data)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Equal(t, []string{"broken", "text-only", "works"}, models.calls)

	parts := models.contents[0][0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "Blue shirt", parts[0].Text)
	assert.Equal(t, []byte("top"), parts[1].InlineData.Data)
}

func TestGeminiAllModelsFail(t *testing.T) {
	g := &GeminiImageGenerator{Models: &fakeModels{}, ModelNames: []string{"a", "b"}}

	_, err := g.GenerateImage(context.Background(), "p", nil)
	var exhausted *ModelsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"a", "b"}, exhausted.Attempted)
	assert.Contains(t, err.Error(), "Failed to generate image with any model (a, b)")
}

func TestGeminiBlockedPrompt(t *testing.T) {
	models := &fakeModels{responses: map[string]*genai.GenerateContentResponse{
		"a": {PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}},
	}}
	g := &GeminiImageGenerator{Models: models, ModelNames: []string{"a"}}

	_, err := g.GenerateImage(context.Background(), "p", nil)
	assert.ErrorContains(t, err, "content violation")
}

func TestGetFirstInlineImageSkipsText(t *testing.T) {
	data, mime, err := GetFirstInlineImage(imageResponse([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, "image/png", mime)

	_, _, err = GetFirstInlineImage(nil)
	assert.Error(t, err)
}

func TestGetFirstInlineImageUntypedData(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	cases := []struct {
		name     string
		mime     string
		data     []byte
		expected string
	}{
		{"empty mime sniffed", "", jpeg, "image/jpeg"},
		{"octet stream sniffed", "application/octet-stream", jpeg, "image/jpeg"},
		{"unknown bytes default to png", "application/octet-stream", []byte("opaque"), "image/png"},
		{"declared image type kept", "image/webp", []byte("opaque"), "image/webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "done"},
					{InlineData: &genai.Blob{MIMEType: tc.mime, Data: tc.data}},
				}},
			}}}
			data, mime, err := GetFirstInlineImage(resp)
			require.NoError(t, err)
			assert.Equal(t, tc.data, data)
			assert.Equal(t, tc.expected, mime)
		})
	}
}
