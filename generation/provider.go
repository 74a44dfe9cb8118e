package generation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/services"
)

type Kind string

const (
	KindJobQueue        Kind = "job_queue"
	KindProxyFunction   Kind = "proxy_function"
	KindGenericEndpoint Kind = "generic_endpoint"
)

// EndpointPlaceholder is the endpoint value shipped in sample configs.
const EndpointPlaceholder = "YOUR-NANO-BANANA-ENDPOINT"

// previewsFolder is where generated images land inside a user's area.
const previewsFolder = "previews"

type ItemMeta struct {
	ID    uint   `json:"id"`
	Color string `json:"color,omitempty"`
	Brand string `json:"brand,omitempty"`
}

type ItemMetaSet struct {
	Top       *ItemMeta `json:"top"`
	Bottom    *ItemMeta `json:"bottom"`
	Accessory *ItemMeta `json:"accessory"`
}

// Request is one generation call. UserID 0 is an anonymous caller.
type Request struct {
	Prompt          string
	Images          []string
	ProfileImageURL string
	Meta            ItemMetaSet
	UserID          uint
}

type ImageResult struct {
	// URL is a store URL, an external URL or a data URL.
	URL string
	// Path is the object key when the image was written to the store.
	Path     string
	Provider Kind
	Model    string
	Prompt   string
}

type GenerationProvider interface {
	Kind() Kind
	Generate(ctx context.Context, req Request) (*ImageResult, error)
}

type ResultPersister interface {
	PersistBase64(ctx context.Context, userID uint, folder, base, payload string) (*services.StoredImage, error)
	PersistURL(ctx context.Context, userID uint, folder, base, url string) *services.StoredImage
}

// Select picks the provider from static configuration:
// job-queue credentials win, then the proxy function when a multimodal key is
// set and the generic endpoint is unset or a placeholder, else the endpoint.
func Select(cfg config.GenerationConfig) Kind {
	if cfg.JobQueueAPIKey != "" && cfg.JobQueueModelKey != "" {
		return KindJobQueue
	}
	if cfg.GeminiAPIKey != "" && endpointUnset(cfg.EndpointURL) {
		return KindProxyFunction
	}
	return KindGenericEndpoint
}

func endpointUnset(url string) bool {
	url = strings.TrimSpace(url)
	return url == "" || strings.Contains(url, EndpointPlaceholder)
}

type Dependencies struct {
	HTTPClient *http.Client
	Persister  ResultPersister
	Clock      Clock
	Metrics    *Metrics
}

// NewProvider builds the selected provider and fails fast on missing settings.
func NewProvider(cfg config.GenerationConfig, deps Dependencies) (GenerationProvider, error) {
	kind := Select(cfg)
	if deps.Persister == nil {
		return nil, &ConfigError{Provider: kind, Missing: "result persister"}
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}

	switch kind {
	case KindJobQueue:
		baseURL := strings.TrimRight(cfg.JobQueueBaseURL, "/")
		if baseURL == "" {
			return nil, &ConfigError{Provider: kind, Missing: "jobqueue_base_url"}
		}
		return &JobQueue{
			BaseURL:   baseURL,
			APIKey:    cfg.JobQueueAPIKey,
			ModelKey:  cfg.JobQueueModelKey,
			Client:    client,
			Policy:    PollPolicyFrom(cfg),
			Clock:     clock,
			Persister: deps.Persister,
			Metrics:   deps.Metrics,
		}, nil
	case KindProxyFunction:
		if strings.TrimSpace(cfg.ProxyFunctionURL) == "" {
			return nil, &ConfigError{Provider: kind, Missing: "proxy_function_url"}
		}
		return &ProxyFunction{
			URL:       cfg.ProxyFunctionURL,
			Client:    client,
			Timeout:   defaultProxyTimeout,
			Persister: deps.Persister,
		}, nil
	default:
		if endpointUnset(cfg.EndpointURL) {
			return nil, &ConfigError{Provider: kind, Missing: "endpoint_url"}
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultEndpointTimeout
		}
		return &GenericEndpoint{
			URL:       cfg.EndpointURL,
			Auth:      cfg.EndpointAuth,
			Timeout:   timeout,
			Client:    client,
			Persister: deps.Persister,
		}, nil
	}
}

const (
	defaultEndpointTimeout = 30 * time.Second
	defaultProxyTimeout    = 2 * time.Minute
)
