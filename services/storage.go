package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"wardrobeapi/config"
)

// ObjectStore is a bucket that hands out presigned URLs. Bytes never pass
// through the SDK clients: uploads go to the presigned PUT URL.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key string, contentType string) (string, error)
	PresignRead(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// PublicURL returns "" when the bucket is not publicly readable.
	PublicURL(key string) string
}

func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "minio":
		store, err := NewMinioStorage(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "r2", "":
		return NewR2Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var allowedUploadMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
}

// UploadToPresignedURL PUTs fileContent to a presigned URL and returns the
// response status code. An empty contentType is sniffed from the bytes.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url string, fileContent []byte, contentType string) (int, error) {
	mimeType := contentType
	if mimeType == "" {
		mimeType = http.DetectContentType(fileContent)
	}
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !allowedUploadMimeTypes[mimeType] {
		return 0, fmt.Errorf("unsupported file type: %s", mimeType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(fileContent))
	if err != nil {
		return 0, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(fileContent))

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return resp.StatusCode, nil
}

// ExtensionForMime maps a declared MIME type to the stored file extension.
func ExtensionForMime(mime string) string {
	switch {
	case strings.Contains(mime, "png"):
		return "png"
	case strings.Contains(mime, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

func MimeFromExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// ExtensionFromURL returns the lowercased extension of the URL path, or fallback.
func ExtensionFromURL(rawURL string, fallback string) string {
	p := strings.Split(rawURL, "?")[0]
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" || strings.Contains(ext, "/") {
		return fallback
	}
	return strings.ToLower(ext)
}
