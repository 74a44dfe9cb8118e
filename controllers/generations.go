package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/generation"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GenerationController struct {
	Generator tasks.OutfitGenerator
	Enqueuer  tasks.Enqueuer
	URLCache  services.URLCacheServiceProvider
}

func (controller *GenerationController) GenerationRoutes(g *echo.Group) {
	g.POST("", controller.CreateGeneration)
	g.POST("/preview", controller.PreviewGeneration)
	g.GET("/:id", controller.GetGeneration)
}

func generationOut(record models.OutfitGeneration) models.GenerationOut {
	return models.GenerationOut{
		ID:        record.ID,
		Status:    record.Status,
		Provider:  record.Provider,
		ImageURL:  record.ImageURL,
		ImagePath: record.ImagePath,
		Error:     record.GenerationErrorMessage,
	}
}

// fillFromOutfit takes the first top, bottom and accessory of a saved outfit
// for every slot the request left empty.
// slotOwners holds whose wardrobe each picked item must come from.
type slotOwners struct {
	Top, Bottom, Accessory uint
}

// fillFromOutfit fills the empty slots from the outfit's items. Filled slots
// belong to the outfit owner, the rest stay with the caller.
func fillFromOutfit(db *gorm.DB, userID uint, req *models.GenerationIn, owners *slotOwners) error {
	outfit, err := findOutfit(db, userID, *req.OutfitID, true)
	if err != nil {
		return err
	}
	var items []models.OutfitItem
	if err := db.Where("outfit_id = ?", outfit.ID).Order("id").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		id := item.WardrobeItemID
		switch item.PositionType {
		case models.PositionTop:
			if req.TopItemID == nil {
				req.TopItemID = &id
				owners.Top = outfit.UserAccountID
			}
		case models.PositionBottom:
			if req.BottomItemID == nil {
				req.BottomItemID = &id
				owners.Bottom = outfit.UserAccountID
			}
		case models.PositionAccessory:
			if req.AccessoryItemID == nil {
				req.AccessoryItemID = &id
				owners.Accessory = outfit.UserAccountID
			}
		}
	}
	return nil
}

// prepareGeneration validates the picked items and returns an unsaved pending
// record together with the generator input.
func (controller *GenerationController) prepareGeneration(c echo.Context, db *gorm.DB, user models.UserAccount) (*models.OutfitGeneration, *generation.OutfitInput, error) {
	var req models.GenerationIn
	if err := c.Bind(&req); err != nil {
		return nil, nil, newAPIError(http.StatusBadRequest, "Invalid request body")
	}
	owners := slotOwners{Top: user.ID, Bottom: user.ID, Accessory: user.ID}
	if req.OutfitID != nil {
		if err := fillFromOutfit(db, user.ID, &req, &owners); err != nil {
			return nil, nil, err
		}
	}
	if req.TopItemID == nil && req.BottomItemID == nil && req.AccessoryItemID == nil {
		return nil, nil, newAPIError(http.StatusBadRequest, "Pick at least one item")
	}

	ctx := c.Request().Context()
	load := func(id *uint, ownerID uint) (*models.WardrobeItem, error) {
		if id == nil {
			return nil, nil
		}
		var item models.WardrobeItem
		if err := db.Where("id = ? AND user_account_id = ?", *id, ownerID).Take(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, newAPIError(http.StatusNotFound, "Item not found")
			}
			return nil, err
		}
		item.ImageURL = services.ResolveImageURL(ctx, controller.URLCache, item.ImagePath, item.ImageURL)
		return &item, nil
	}
	input := &generation.OutfitInput{UserID: user.ID}
	var err error
	if input.Top, err = load(req.TopItemID, owners.Top); err != nil {
		return nil, nil, err
	}
	if input.Bottom, err = load(req.BottomItemID, owners.Bottom); err != nil {
		return nil, nil, err
	}
	if input.Accessory, err = load(req.AccessoryItemID, owners.Accessory); err != nil {
		return nil, nil, err
	}

	record := &models.OutfitGeneration{
		TopItemID:       req.TopItemID,
		BottomItemID:    req.BottomItemID,
		AccessoryItemID: req.AccessoryItemID,
		OutfitID:        req.OutfitID,
		UserAccountID:   user.ID,
		Status:          models.GenerationPending,
		Prompt:          generation.NewRequest(*input).Prompt,
	}
	if req.UseProfilePhoto {
		avatar := services.ResolveImageURL(ctx, controller.URLCache, user.AvatarPath, user.AvatarURL)
		if avatar == nil || *avatar == "" {
			return nil, nil, newAPIError(http.StatusBadRequest, "Upload a profile photo to try outfits on")
		}
		input.ProfileImageURL = *avatar
		record.ProfileImageURL = avatar
	}
	return record, input, nil
}

// CreateGeneration stores a pending generation and leaves the work to the worker.
func (controller *GenerationController) CreateGeneration(c echo.Context) error {
	if controller.Enqueuer == nil || controller.Generator == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "Generation is not available right now")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	record, _, err := controller.prepareGeneration(c, db, user)
	if err != nil {
		return writeAPIError(c, err)
	}
	record.Provider = string(controller.Generator.Kind())
	if err := db.Create(record).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to start generation, please try again")
	}
	if err := tasks.EnqueueOutfitGeneration(controller.Enqueuer, record.ID); err != nil {
		sentry.CaptureException(fmt.Errorf("[Generation %v] enqueue: %w", record.ID, err))
		msg := "could not be queued"
		db.Model(record).Updates(map[string]interface{}{
			"status":                   models.GenerationFailed,
			"generation_error_message": msg,
		})
		return errorJSON(c, http.StatusServiceUnavailable, "Generation is not available right now")
	}
	config.Logger.Info(fmt.Sprintf("[Generation %v] Queued", record.ID), zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, generationOut(*record))
}

func previewErrorStatus(err error) (int, string) {
	var transportErr *generation.TransportError
	switch {
	case generation.IsConfigError(err):
		return http.StatusServiceUnavailable, "Image generation is not configured"
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &transportErr) && transportErr.Timeout():
		return http.StatusGatewayTimeout, "Image generation timed out, please try again"
	}
	return http.StatusBadGateway, "Failed to generate image, please try again"
}

// PreviewGeneration runs the provider while the client waits.
func (controller *GenerationController) PreviewGeneration(c echo.Context) error {
	if controller.Generator == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "Generation is not available right now")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	record, input, err := controller.prepareGeneration(c, db, user)
	if err != nil {
		return writeAPIError(c, err)
	}
	started := time.Now()
	result, err := controller.Generator.Generate(c.Request().Context(), *input)
	if err != nil {
		status, msg := previewErrorStatus(err)
		if status != http.StatusServiceUnavailable {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("provider", string(controller.Generator.Kind()))
				sentry.CaptureException(fmt.Errorf("[User %v] preview: %w", user.ID, err))
			})
		}
		return c.JSON(status, map[string]string{"error": msg, "details": err.Error()})
	}

	duration := time.Since(started).Seconds()
	record.Status = models.GenerationCompleted
	record.Provider = string(result.Provider)
	record.Prompt = result.Prompt
	record.ImageURL = &result.URL
	if result.Path != "" {
		record.ImagePath = &result.Path
	}
	record.Duration = &duration
	if err := db.Create(record).Error; err != nil {
		// the image exists either way
		sentry.CaptureException(fmt.Errorf("[User %v] save preview: %w", user.ID, err))
	}
	return c.JSON(http.StatusOK, generationOut(*record))
}

func (controller *GenerationController) GetGeneration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid generation id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var record models.OutfitGeneration
	err = db.Where("id = ? AND user_account_id = ?", id, user.ID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorJSON(c, http.StatusNotFound, "Generation not found")
	}
	if err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch generation")
	}
	record.ImageURL = services.ResolveImageURL(c.Request().Context(), controller.URLCache, record.ImagePath, record.ImageURL)
	return c.JSON(http.StatusOK, generationOut(record))
}
