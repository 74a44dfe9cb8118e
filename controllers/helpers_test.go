package controllers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"wardrobeapi/config"
	"wardrobeapi/generation"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	inputs []generation.OutfitInput
	result *generation.ImageResult
	err    error
}

func (f *fakeGenerator) Kind() generation.Kind {
	return generation.KindProxyFunction
}

func (f *fakeGenerator) Generate(ctx context.Context, in generation.OutfitInput) (*generation.ImageResult, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	result.Prompt = generation.NewRequest(in).Prompt
	return &result, nil
}

// storeDeps wires a fake bucket the way cmd/api wires the real one.
func storeDeps(t *testing.T, store *test.FakeObjectStore) Deps {
	urlCache, err := services.NewURLCacheService(store, config.CacheConfig{})
	require.NoError(t, err)
	assets, err := services.NewAssetFetcher(nil, config.CacheConfig{})
	require.NoError(t, err)
	return Deps{
		Store:     store,
		URLCache:  urlCache,
		Persister: services.NewPersister(store, assets),
	}
}

func newTestServer(db *gorm.DB, deps Deps) *echo.Echo {
	return SetupServer(db, deps, test.JWTSecret())
}

func do(e *echo.Echo, method, url string, user *models.UserAccount, body interface{}) *httptest.ResponseRecorder {
	req := test.NewJSONAuthRequest(method, url, UIntToStr(user.ID), body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	payload := map[string]string{}
	decode(t, rec, &payload)
	return payload["error"]
}
