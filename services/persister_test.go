package services

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersister(t *testing.T, store *test.FakeObjectStore) *Persister {
	assets, err := NewAssetFetcher(nil, config.CacheConfig{})
	require.NoError(t, err)
	p := NewPersister(store, assets)
	p.Now = func() time.Time { return time.UnixMilli(1714564800123) }
	return p
}

func TestObjectKeyFormat(t *testing.T) {
	p := newTestPersister(t, test.NewFakeObjectStore())
	key, err := p.ObjectKey(42, "previews", "banana", "png")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^42/previews/banana-1714564800123-[a-z0-9]{6}\.png$`), key)

	key, err = p.ObjectKey(42, "", "", "jpg")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^42/1714564800123-[a-z0-9]{6}\.jpg$`), key)
}

func TestPersistBytesRoundTrip(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	stored, err := p.PersistBytes(context.Background(), 3, "wardrobe", "item", test.PNGBytes(), "image/png")
	require.NoError(t, err)
	assert.Equal(t, store.Server.URL+"/"+stored.Path, stored.URL)

	resp, err := http.Get(stored.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := store.Object(stored.Path)
	require.True(t, ok)
	assert.Equal(t, test.PNGBytes(), data)
}

func TestPersistBytesPrivateBucketPresignsRead(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	store.Public = false
	p := newTestPersister(t, store)

	stored, err := p.PersistBytes(context.Background(), 3, "previews", "generated", test.PNGBytes(), "")
	require.NoError(t, err)
	assert.Contains(t, stored.URL, "X-Amz-Signature=read")
	assert.Regexp(t, `\.png$`, stored.Path)
}

func TestPersistBase64(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)
	payload := base64.StdEncoding.EncodeToString(test.PNGBytes())

	stored, err := p.PersistBase64(context.Background(), 8, "previews", "gemini", "data:image/png;base64,"+payload)
	require.NoError(t, err)
	assert.Regexp(t, `^8/previews/gemini-\d+-[a-z0-9]{6}\.png$`, stored.Path)
	data, _ := store.Object(stored.Path)
	assert.Equal(t, test.PNGBytes(), data)
}

func TestPersistBase64AnonymousReturnsDataURL(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	stored, err := p.PersistBase64(context.Background(), 0, "previews", "gemini", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", stored.URL)
	assert.Empty(t, stored.Path)
	assert.Empty(t, store.Keys())
}

func TestPersistBase64RejectsGarbage(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	_, err := p.PersistBase64(context.Background(), 1, "previews", "gemini", "%%%not-base64%%%")
	assert.Error(t, err)
}

func TestPersistURLCopiesRemoteImage(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "image/png")
		w.Write(test.PNGBytes())
	}))
	defer remote.Close()
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	stored := p.PersistURL(context.Background(), 4, "previews", "preview", remote.URL+"/out.png")
	assert.Regexp(t, `^4/previews/preview-\d+-[a-z0-9]{6}\.png$`, stored.Path)
	data, _ := store.Object(stored.Path)
	assert.Equal(t, test.PNGBytes(), data)
}

func TestPersistURLFallsBackToOriginal(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer remote.Close()
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	stored := p.PersistURL(context.Background(), 4, "previews", "preview", remote.URL+"/gone.png")
	assert.Equal(t, remote.URL+"/gone.png", stored.URL)
	assert.Empty(t, stored.Path)

	anonymous := p.PersistURL(context.Background(), 0, "previews", "preview", "https://img/x.png")
	assert.Equal(t, "https://img/x.png", anonymous.URL)
}

func TestPersisterDeleteIsBestEffort(t *testing.T) {
	store := test.NewFakeObjectStore()
	defer store.Close()
	p := newTestPersister(t, store)

	p.Delete(context.Background(), "")
	p.Delete(context.Background(), "1/wardrobe/a.png")
	assert.Equal(t, []string{"1/wardrobe/a.png"}, store.Deleted())
}
