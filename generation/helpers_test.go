package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wardrobeapi/services"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the clock right away and fires.
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type persistCall struct {
	UserID  uint
	Folder  string
	Base    string
	Payload string
}

type fakePersister struct {
	mu          sync.Mutex
	base64Calls []persistCall
	urlCalls    []persistCall
	err         error
}

func (p *fakePersister) PersistBase64(ctx context.Context, userID uint, folder, base, payload string) (*services.StoredImage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base64Calls = append(p.base64Calls, persistCall{userID, folder, base, payload})
	if p.err != nil {
		return nil, p.err
	}
	if userID == 0 {
		return &services.StoredImage{URL: services.ToDataURL(payload, "image/jpeg")}, nil
	}
	key := fmt.Sprintf("%d/%s/%s-1.jpg", userID, folder, base)
	return &services.StoredImage{Path: key, URL: "https://cdn.example.com/" + key}, nil
}

func (p *fakePersister) PersistURL(ctx context.Context, userID uint, folder, base, url string) *services.StoredImage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urlCalls = append(p.urlCalls, persistCall{userID, folder, base, url})
	if userID == 0 {
		return &services.StoredImage{URL: url}
	}
	key := fmt.Sprintf("%d/%s/%s-1.png", userID, folder, base)
	return &services.StoredImage{Path: key, URL: "https://cdn.example.com/" + key}
}
