package generation

import (
	"testing"
	"time"

	"wardrobeapi/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.GenerationConfig
		want Kind
	}{
		{"job queue wins", config.GenerationConfig{JobQueueAPIKey: "k", JobQueueModelKey: "m", GeminiAPIKey: "g", EndpointURL: "https://e"}, KindJobQueue},
		{"half job queue credentials", config.GenerationConfig{JobQueueAPIKey: "k", EndpointURL: "https://e"}, KindGenericEndpoint},
		{"proxy without endpoint", config.GenerationConfig{GeminiAPIKey: "g"}, KindProxyFunction},
		{"proxy with placeholder endpoint", config.GenerationConfig{GeminiAPIKey: "g", EndpointURL: "https://" + EndpointPlaceholder}, KindProxyFunction},
		{"endpoint beats gemini key", config.GenerationConfig{GeminiAPIKey: "g", EndpointURL: "https://e"}, KindGenericEndpoint},
		{"nothing set", config.GenerationConfig{}, KindGenericEndpoint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Select(tc.cfg))
		})
	}
}

func TestNewProviderBuildsSelected(t *testing.T) {
	deps := Dependencies{Persister: &fakePersister{}}

	p, err := NewProvider(config.GenerationConfig{JobQueueAPIKey: "k", JobQueueModelKey: "m", JobQueueBaseURL: "https://jobs/"}, deps)
	require.NoError(t, err)
	jobs, ok := p.(*JobQueue)
	require.True(t, ok)
	assert.Equal(t, "https://jobs", jobs.BaseURL)

	p, err = NewProvider(config.GenerationConfig{GeminiAPIKey: "g", ProxyFunctionURL: "http://fn/generate-image"}, deps)
	require.NoError(t, err)
	assert.Equal(t, KindProxyFunction, p.Kind())

	p, err = NewProvider(config.GenerationConfig{EndpointURL: "https://e", EndpointAuth: "Bearer x"}, deps)
	require.NoError(t, err)
	endpoint, ok := p.(*GenericEndpoint)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, endpoint.Timeout)
	assert.Equal(t, "Bearer x", endpoint.Auth)
}

func TestNewProviderConfigErrors(t *testing.T) {
	_, err := NewProvider(config.GenerationConfig{}, Dependencies{Persister: &fakePersister{}})
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "endpoint_url")

	_, err = NewProvider(config.GenerationConfig{EndpointURL: EndpointPlaceholder}, Dependencies{Persister: &fakePersister{}})
	assert.True(t, IsConfigError(err))

	_, err = NewProvider(config.GenerationConfig{GeminiAPIKey: "g"}, Dependencies{Persister: &fakePersister{}})
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "proxy_function_url")

	_, err = NewProvider(config.GenerationConfig{EndpointURL: "https://e"}, Dependencies{})
	assert.True(t, IsConfigError(err))
	assert.False(t, Retryable(err))
}
