package generation

import (
	"context"
	"fmt"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/models"

	"go.uber.org/zap"
)

// OutfitInput is what callers know about a generation: the picked items,
// the owner and optionally the profile photo to try them on.
type OutfitInput struct {
	UserID          uint
	Top             *models.WardrobeItem
	Bottom          *models.WardrobeItem
	Accessory       *models.WardrobeItem
	ProfileImageURL string
}

// Generator turns picked wardrobe items into one image through the
// configured provider.
type Generator struct {
	Provider GenerationProvider
	Metrics  *Metrics
}

func NewGenerator(cfg config.GenerationConfig, deps Dependencies) (*Generator, error) {
	provider, err := NewProvider(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Generator{Provider: provider, Metrics: deps.Metrics}, nil
}

func descriptor(item *models.WardrobeItem) *ItemDescriptor {
	if item == nil {
		return nil
	}
	return &ItemDescriptor{
		ID:          item.ID,
		Name:        item.Name,
		Subcategory: deref(item.Subcategory),
		Color:       deref(item.Color),
		Brand:       deref(item.Brand),
		ImageURL:    deref(item.ImageURL),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func SelectionFromItems(top, bottom, accessory *models.WardrobeItem) Selection {
	return Selection{
		Top:       descriptor(top),
		Bottom:    descriptor(bottom),
		Accessory: descriptor(accessory),
	}
}

func NewRequest(in OutfitInput) Request {
	selection := SelectionFromItems(in.Top, in.Bottom, in.Accessory)
	return Request{
		Prompt:          BuildPrompt(selection),
		Images:          selection.ImageURLs(),
		ProfileImageURL: in.ProfileImageURL,
		Meta:            selection.Meta(),
		UserID:          in.UserID,
	}
}

func (g *Generator) Kind() Kind {
	return g.Provider.Kind()
}

func (g *Generator) Generate(ctx context.Context, in OutfitInput) (*ImageResult, error) {
	req := NewRequest(in)
	started := time.Now()
	kind := g.Provider.Kind()

	result, err := g.Provider.Generate(ctx, req)
	g.Metrics.observe(kind, started, err)
	if err != nil {
		config.Logger.Warn(fmt.Sprintf("[User %v] generation failed", in.UserID),
			zap.String("provider", string(kind)), zap.Error(err))
		return nil, err
	}
	result.Prompt = req.Prompt
	config.Logger.Info(fmt.Sprintf("[User %v] generation done", in.UserID),
		zap.String("provider", string(kind)),
		zap.String("path", result.Path),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}
