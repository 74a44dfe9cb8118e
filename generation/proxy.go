package generation

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const proxyOp = "generate-image function"

// ProxyFunction calls the server-side function that holds the multimodal
// model key. Contract: {prompt, images, userProfileImageUrl} in,
// {image_base64, model_used} or {error, details} out.
type ProxyFunction struct {
	URL       string
	Client    *http.Client
	Timeout   time.Duration
	Persister ResultPersister
}

type ProxyPayload struct {
	Prompt              string   `json:"prompt"`
	Images              []string `json:"images"`
	UserProfileImageURL *string  `json:"userProfileImageUrl"`
}

type ProxyResponse struct {
	ImageBase64     string   `json:"image_base64,omitempty"`
	ModelUsed       string   `json:"model_used,omitempty"`
	Error           string   `json:"error,omitempty"`
	Details         string   `json:"details,omitempty"`
	ModelsAttempted []string `json:"modelsAttempted,omitempty"`
}

func (p *ProxyFunction) Kind() Kind {
	return KindProxyFunction
}

func (p *ProxyFunction) Generate(ctx context.Context, req Request) (*ImageResult, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProxyTimeout
	}
	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	body, err := postJSON(callCtx, p.Client, proxyOp, p.URL, header, ProxyPayload{
		Prompt:              req.Prompt,
		Images:              limitImages(req.Images),
		UserProfileImageURL: optional(req.ProfileImageURL),
	})
	cancel()
	if err != nil {
		return nil, err
	}

	found, ok := ExtractImage(body, proxyExtractors...)
	if !ok {
		return nil, &ContractError{Op: proxyOp, Expected: "image_base64", Raw: string(body)}
	}
	model, _ := stringAt(body, "model_used")
	stored, err := p.Persister.PersistBase64(ctx, req.UserID, previewsFolder, "gemini", found.Base64)
	if err != nil {
		return nil, err
	}
	return &ImageResult{URL: stored.URL, Path: stored.Path, Provider: KindProxyFunction, Model: model}, nil
}
