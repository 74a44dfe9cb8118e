package generation

import (
	"context"
	"net/http"
	"time"
)

const (
	genericOp       = "Nano Banana request"
	genericResultOp = "Nano Banana"
)

// GenericEndpoint is a single POST to a configured image endpoint.
type GenericEndpoint struct {
	URL       string
	Auth      string
	Timeout   time.Duration
	Client    *http.Client
	Persister ResultPersister
}

type genericPayload struct {
	Prompt              string         `json:"prompt"`
	UserProfileImageURL *string        `json:"userProfileImageUrl"`
	Context             genericContext `json:"context"`
	Inputs              promptInputs   `json:"inputs"`
}

type genericContext struct {
	Images []string    `json:"images"`
	Meta   ItemMetaSet `json:"meta"`
}

type promptInputs struct {
	Prompt string `json:"prompt"`
}

func (g *GenericEndpoint) Kind() Kind {
	return KindGenericEndpoint
}

func (g *GenericEndpoint) Generate(ctx context.Context, req Request) (*ImageResult, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultEndpointTimeout
	}

	payload := genericPayload{
		Prompt:              req.Prompt,
		UserProfileImageURL: optional(req.ProfileImageURL),
		Context: genericContext{
			Images: limitImages(req.Images),
			Meta:   req.Meta,
		},
		Inputs: promptInputs{Prompt: req.Prompt},
	}
	header := http.Header{}
	if g.Auth != "" {
		header.Set("Authorization", g.Auth)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	body, err := postJSON(callCtx, g.Client, genericOp, g.URL, header, payload)
	cancel()
	if err != nil {
		return nil, err
	}

	found, ok := ExtractImage(body, genericExtractors...)
	if !ok {
		return nil, &ContractError{Op: genericResultOp, Expected: "image_url", Raw: string(body)}
	}
	result := &ImageResult{Provider: KindGenericEndpoint}
	if found.URL != "" {
		stored := g.Persister.PersistURL(ctx, req.UserID, previewsFolder, "preview", found.URL)
		result.URL, result.Path = stored.URL, stored.Path
		return result, nil
	}
	stored, err := g.Persister.PersistBase64(ctx, req.UserID, previewsFolder, "generated", found.Base64)
	if err != nil {
		return nil, err
	}
	result.URL, result.Path = stored.URL, stored.Path
	return result, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func limitImages(images []string) []string {
	out := []string{}
	for _, image := range images {
		if image == "" {
			continue
		}
		out = append(out, image)
		if len(out) == MaxReferenceImages {
			break
		}
	}
	return out
}
