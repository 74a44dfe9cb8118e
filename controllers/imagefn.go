package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"wardrobeapi/config"
	"wardrobeapi/generation"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const tryOnPrompt = `Make the person in the first image wear the clothing items shown in the subsequent images. Leave the background unchanged or use a clean neutral background.

Virtual try-on requirements:
- Use the exact person from the first image as the base
- Replace their current clothing with the new clothing items
- Preserve their face, hair, skin tone, and body proportions exactly
- Maintain their pose and expression
- Ensure the new clothes fit naturally with realistic draping
- Make it look like a real photograph, not a composite

Clothing request: %s

Generate a photorealistic virtual try-on image.`

const fashionPhotoPrompt = `Create a professional fashion photograph showing: %s

Requirements:
- Professional fashion photography style
- Clean studio background
- High quality and photorealistic
- Model wearing the specified clothing
- Professional lighting and composition`

// ImageGenerator is the multimodal model behind the generate-image function.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, text string, images []*services.Asset) (*services.GeneratedImage, error)
}

type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (*services.Asset, error)
}

type ImageFunctionController struct {
	// nil when no model key is configured
	Generator ImageGenerator
	Assets    AssetFetcher
}

func SetupImageFunctionServer(generator ImageGenerator, assets AssetFetcher) *echo.Echo {
	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, "x-client-info", "apikey", echo.HeaderContentType},
	}))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	controller := ImageFunctionController{Generator: generator, Assets: assets}
	e.POST("/generate-image", controller.GenerateImage)
	return e
}

// ImageFunctionText is the instruction sent ahead of the images.
func ImageFunctionText(prompt string, tryOn bool) string {
	if tryOn {
		return fmt.Sprintf(tryOnPrompt, prompt)
	}
	return fmt.Sprintf(fashionPhotoPrompt, prompt)
}

func (controller *ImageFunctionController) GenerateImage(c echo.Context) error {
	if controller.Generator == nil {
		return c.JSON(http.StatusInternalServerError, generation.ProxyResponse{Error: "GEMINI_API_KEY not set"})
	}
	var req generation.ProxyPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusInternalServerError, generation.ProxyResponse{Error: "Internal server error", Details: err.Error()})
	}
	ctx := c.Request().Context()
	requestID := c.Request().Header.Get("X-Request-ID")

	tryOn := req.UserProfileImageURL != nil && *req.UserProfileImageURL != ""
	// the person goes first, the model treats it as the base image
	urls := []string{}
	if tryOn {
		urls = append(urls, *req.UserProfileImageURL)
	}
	urls = append(urls, req.Images...)

	images := make([]*services.Asset, 0, len(urls))
	for i, url := range urls {
		if url == "" {
			continue
		}
		asset, err := controller.Assets.Fetch(ctx, url)
		if err != nil {
			config.Logger.Warn("skip image", zap.String("request_id", requestID), zap.Int("index", i), zap.Error(err))
			continue
		}
		images = append(images, asset)
	}
	config.Logger.Info("generate image",
		zap.String("request_id", requestID), zap.Bool("try_on", tryOn), zap.Int("images", len(images)))

	image, err := controller.Generator.GenerateImage(ctx, ImageFunctionText(req.Prompt, tryOn), images)
	if err != nil {
		var exhausted *services.ModelsExhaustedError
		out := generation.ProxyResponse{Error: "Failed to generate image with any model", Details: err.Error()}
		if errors.As(err, &exhausted) {
			out.ModelsAttempted = exhausted.Attempted
		}
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", requestID)
			sentry.CaptureException(err)
		})
		return c.JSON(http.StatusInternalServerError, out)
	}
	asset := services.Asset{Data: image.Data, MIMEType: image.MIMEType}
	return c.JSON(http.StatusOK, generation.ProxyResponse{ImageBase64: asset.Base64(), ModelUsed: image.Model})
}
