package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wardrobeapi/config"

	"github.com/getsentry/sentry-go"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const fileSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type StoredImage struct {
	// Path is empty when nothing was written to the object store.
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Persister copies generated images into the per-user area of the object store.
type Persister struct {
	Store  ObjectStore
	Assets *AssetFetcher
	Client *http.Client
	Now    func() time.Time
}

func NewPersister(store ObjectStore, assets *AssetFetcher) *Persister {
	return &Persister{
		Store:  store,
		Assets: assets,
		Client: &http.Client{Timeout: 60 * time.Second},
		Now:    time.Now,
	}
}

// ObjectKey builds <userId>/<folder>/<base>-<unixmillis>-<rand6>.<ext>.
func (p *Persister) ObjectKey(userID uint, folder, base, ext string) (string, error) {
	suffix, err := gonanoid.Generate(fileSuffixAlphabet, 6)
	if err != nil {
		return "", err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	name := fmt.Sprintf("%d-%s.%s", now().UnixMilli(), suffix, ext)
	if base != "" {
		name = base + "-" + name
	}
	if folder != "" {
		name = strings.Trim(folder, "/") + "/" + name
	}
	return fmt.Sprintf("%d/%s", userID, name), nil
}

func (p *Persister) PersistBytes(ctx context.Context, userID uint, folder, base string, data []byte, mime string) (*StoredImage, error) {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	key, err := p.ObjectKey(userID, folder, base, ExtensionForMime(mime))
	if err != nil {
		return nil, err
	}
	uploadURL, err := p.Store.PresignUpload(ctx, key, mime)
	if err != nil {
		return nil, err
	}
	if _, err := UploadToPresignedURL(ctx, p.Client, uploadURL, data, mime); err != nil {
		return nil, err
	}
	url, err := p.ReadURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &StoredImage{Path: key, URL: url}, nil
}

func (p *Persister) ReadURL(ctx context.Context, key string) (string, error) {
	if public := p.Store.PublicURL(key); public != "" {
		return public, nil
	}
	return p.Store.PresignRead(ctx, key)
}

// PersistBase64 stores an inline image. Anonymous callers (userID 0) get a
// data URL back and nothing is written.
func (p *Persister) PersistBase64(ctx context.Context, userID uint, folder, base, payload string) (*StoredImage, error) {
	if userID == 0 {
		return &StoredImage{URL: ToDataURL(payload, "image/jpeg")}, nil
	}
	data, mime, err := DecodeBase64Image(payload)
	if err != nil {
		return nil, err
	}
	return p.PersistBytes(ctx, userID, folder, base, data, mime)
}

// PersistURL copies a remote image into the store. It never fails: when the
// copy does not work the original URL is handed back.
func (p *Persister) PersistURL(ctx context.Context, userID uint, folder, base, url string) *StoredImage {
	fallback := &StoredImage{URL: url}
	if userID == 0 || p.Assets == nil {
		return fallback
	}
	asset, err := p.Assets.Fetch(ctx, url)
	if err != nil {
		p.reportCopyFailure(userID, url, err)
		return fallback
	}
	stored, err := p.PersistBytes(ctx, userID, folder, base, asset.Data, asset.MIMEType)
	if err != nil {
		p.reportCopyFailure(userID, url, err)
		return fallback
	}
	return stored
}

func (p *Persister) reportCopyFailure(userID uint, url string, err error) {
	config.Logger.Warn(fmt.Sprintf("[User %v] could not copy generated image, keeping external url", userID),
		zap.String("url", url), zap.Error(err))
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("failure_type", "persist_remote_image")
		scope.SetExtra("url", url)
		sentry.CaptureException(err)
	})
}

// Delete removes an object, logging instead of failing.
func (p *Persister) Delete(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := p.Store.Delete(ctx, key); err != nil {
		config.Logger.Warn("best-effort delete failed", zap.String("key", key), zap.Error(err))
	}
}
