package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wardrobeapi/config"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"go.uber.org/zap"
)

const maxAssetSize = 20 << 20

// Asset is a downloaded image.
type Asset struct {
	URL      string
	Data     []byte
	MIMEType string
}

func (a *Asset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

func (a *Asset) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", a.MIMEType, a.Base64())
}

// AssetFetcher downloads remote images. Successful downloads are kept in a
// ristretto cache, wardrobe photos and profile photos are fetched over and over.
type AssetFetcher struct {
	Client *http.Client
	cache  *cache.Cache[*Asset]
	ttl    time.Duration
}

func NewAssetFetcher(client *http.Client, cfg config.CacheConfig) (*AssetFetcher, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ristrettoStore, err := newRistrettoStore(cfg.MaxCost)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cacheCleanupInterval
	}
	return &AssetFetcher{
		Client: client,
		cache:  cache.New[*Asset](ristrettoStore),
		ttl:    ttl,
	}, nil
}

// Fetch returns the bytes behind url. data: URLs are decoded in place.
func (f *AssetFetcher) Fetch(ctx context.Context, url string) (*Asset, error) {
	if strings.HasPrefix(url, "data:") {
		data, mime, err := DecodeBase64Image(url)
		if err != nil {
			return nil, err
		}
		return &Asset{URL: url, Data: data, MIMEType: mime}, nil
	}
	if f.cache != nil {
		if asset, err := f.cache.Get(ctx, url); err == nil && asset != nil {
			return asset, nil
		}
	}

	asset, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		if err := f.cache.Set(ctx, url, asset, store.WithCost(int64(len(asset.Data))), store.WithExpiration(f.ttl)); err != nil {
			config.Logger.Warn("asset cache set failed", zap.String("url", url), zap.Error(err))
		}
	}
	return asset, nil
}

func (f *AssetFetcher) download(ctx context.Context, url string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch file, status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(content) > maxAssetSize {
		return nil, fmt.Errorf("file at %s exceeds %d bytes", url, maxAssetSize)
	}
	if len(content) == 0 {
		return nil, errors.New("empty file")
	}

	mime := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(content)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = MimeFromExtension(ExtensionFromURL(url, "jpg"))
	}
	return &Asset{URL: url, Data: content, MIMEType: mime}, nil
}

// DecodeBase64Image accepts raw base64 or a data URL and returns the bytes and
// their MIME type, image/jpeg when nothing is declared.
func DecodeBase64Image(payload string) ([]byte, string, error) {
	mime := "image/jpeg"
	encoded := strings.TrimSpace(payload)
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		if declared != "" {
			mime = declared
		}
		encoded = body
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty base64 image")
	}
	return data, mime, nil
}

// ToDataURL wraps a raw base64 payload, data URLs pass through.
func ToDataURL(payload string, mime string) string {
	if strings.HasPrefix(payload, "data:") {
		return payload
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, payload)
}
