package controllers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wardrobeapi/config"
	"wardrobeapi/generation"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageGenerator struct {
	text   string
	images []*services.Asset
	result *services.GeneratedImage
	err    error
}

func (f *fakeImageGenerator) GenerateImage(ctx context.Context, text string, images []*services.Asset) (*services.GeneratedImage, error) {
	f.text = text
	f.images = images
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func imageServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me.png", "/shirt.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(append(test.PNGBytes(), []byte(r.URL.Path)...))
		default:
			http.NotFound(w, r)
		}
	}))
}

func postImageFunction(t *testing.T, generator ImageGenerator, payload generation.ProxyPayload) (*httptest.ResponseRecorder, generation.ProxyResponse) {
	assets, err := services.NewAssetFetcher(nil, config.CacheConfig{})
	require.NoError(t, err)
	e := SetupImageFunctionServer(generator, assets)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONRequest("POST", "/generate-image", payload))
	var out generation.ProxyResponse
	decode(t, rec, &out)
	return rec, out
}

func TestImageFunctionTryOn(t *testing.T) {
	srv := imageServer()
	defer srv.Close()
	generator := &fakeImageGenerator{result: &services.GeneratedImage{Data: []byte("generated"), MIMEType: "image/png", Model: "gemini-2.0-flash-exp"}}

	rec, out := postImageFunction(t, generator, generation.ProxyPayload{
		Prompt:              "Blue shirt",
		Images:              []string{srv.URL + "/shirt.png", srv.URL + "/missing.png"},
		UserProfileImageURL: test.NewRefString(srv.URL + "/me.png"),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("generated")), out.ImageBase64)
	assert.Equal(t, "gemini-2.0-flash-exp", out.ModelUsed)

	assert.True(t, strings.HasPrefix(generator.text, "Make the person in the first image wear"))
	assert.Contains(t, generator.text, "Clothing request: Blue shirt")
	// the missing clothing image is skipped, the profile photo stays first
	require.Len(t, generator.images, 2)
	assert.True(t, strings.HasSuffix(string(generator.images[0].Data), "/me.png"))
	assert.True(t, strings.HasSuffix(string(generator.images[1].Data), "/shirt.png"))
	assert.Equal(t, "image/png", generator.images[0].MIMEType)
}

func TestImageFunctionFashionPhoto(t *testing.T) {
	generator := &fakeImageGenerator{result: &services.GeneratedImage{Data: []byte("x"), Model: "gemini-2.5-flash-image-preview"}}

	rec, _ := postImageFunction(t, generator, generation.ProxyPayload{Prompt: "stylish minimalist casual outfit"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ImageFunctionText("stylish minimalist casual outfit", false), generator.text)
	assert.True(t, strings.HasPrefix(generator.text, "Create a professional fashion photograph showing: stylish minimalist casual outfit"))
	assert.Empty(t, generator.images)
}

func TestImageFunctionAllModelsFail(t *testing.T) {
	generator := &fakeImageGenerator{err: &services.ModelsExhaustedError{
		Attempted: []string{"model-a", "model-b"},
		Details:   []string{"model-a: quota", "model-b: no image data in response"},
	}}

	rec, out := postImageFunction(t, generator, generation.ProxyPayload{Prompt: "Jeans"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate image with any model", out.Error)
	assert.Equal(t, []string{"model-a", "model-b"}, out.ModelsAttempted)
	assert.Contains(t, out.Details, "model-b: no image data in response")

	var raw map[string]interface{}
	decode(t, rec, &raw)
	assert.Contains(t, raw, "modelsAttempted")
	assert.NotContains(t, raw, "models_attempted")
}

func TestImageFunctionMalformedBody(t *testing.T) {
	generator := &fakeImageGenerator{}
	assets, err := services.NewAssetFetcher(nil, config.CacheConfig{})
	require.NoError(t, err)
	e := SetupImageFunctionServer(generator, assets)

	req := httptest.NewRequest("POST", "/generate-image", strings.NewReader(`{"prompt": `))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out generation.ProxyResponse
	decode(t, rec, &out)
	assert.Equal(t, "Internal server error", out.Error)
	assert.NotEmpty(t, out.Details)
	assert.Empty(t, generator.text)
}

func TestImageFunctionWithoutKey(t *testing.T) {
	rec, out := postImageFunction(t, nil, generation.ProxyPayload{Prompt: "Jeans"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GEMINI_API_KEY not set", out.Error)
}

// The API's proxy provider talks to the function service over HTTP.
func TestImageFunctionServesProxyProvider(t *testing.T) {
	generator := &fakeImageGenerator{result: &services.GeneratedImage{Data: test.PNGBytes(), MIMEType: "image/png", Model: "gemini-2.5-flash-image-preview"}}
	assets, err := services.NewAssetFetcher(nil, config.CacheConfig{})
	require.NoError(t, err)
	fn := httptest.NewServer(SetupImageFunctionServer(generator, assets))
	defer fn.Close()

	provider := &generation.ProxyFunction{URL: fn.URL + "/generate-image", Client: fn.Client(), Persister: &services.Persister{}}
	result, err := provider.Generate(context.Background(), generation.Request{Prompt: "Jeans"})

	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(test.PNGBytes()), result.URL)
	assert.Equal(t, "gemini-2.5-flash-image-preview", result.Model)
	assert.Empty(t, result.Path)
}
