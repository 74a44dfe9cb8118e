package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"wardrobeapi/config"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WardrobeController struct {
	Store     services.ObjectStore
	URLCache  services.URLCacheServiceProvider
	Persister *services.Persister
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.GET("", controller.ListItems)
	g.POST("", controller.CreateItem)
	g.DELETE("/:id", controller.DeleteItem)
	g.POST("/:id/favorite", controller.ToggleFavorite)
}

// populateImageURLs swaps stored object keys for readable URLs concurrently.
func populateImageURLs(ctx context.Context, urlCache services.URLCacheServiceProvider, items []models.WardrobeItem) {
	var wg sync.WaitGroup
	for i := range items {
		if items[i].ImagePath == nil || *items[i].ImagePath == "" {
			continue
		}
		wg.Add(1)
		go func(item *models.WardrobeItem) {
			defer wg.Done()
			item.ImageURL = services.ResolveImageURL(ctx, urlCache, item.ImagePath, item.ImageURL)
		}(&items[i])
	}
	wg.Wait()
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	query := db.Where("user_account_id = ?", user.ID)
	if category := strings.ToUpper(c.QueryParam("category")); category != "" {
		if !models.Category(category).Valid() {
			return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Unknown category %s", category))
		}
		query = query.Where("category = ?", category)
	}
	items := []models.WardrobeItem{}
	if err := query.Order("created_at desc").Order("id desc").Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch wardrobe")
	}
	populateImageURLs(c.Request().Context(), controller.URLCache, items)
	return c.JSON(http.StatusOK, items)
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	var req models.WardrobeItemIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item := models.WardrobeItem{
		UserAccountID: user.ID,
		Name:          strings.TrimSpace(req.Name),
		Category:      models.Category(req.Category),
		Subcategory:   req.Subcategory,
		Color:         req.Color,
		Brand:         req.Brand,
		ImageURL:      req.ImageURL,
		Tags:          req.Tags,
	}
	out := models.WardrobeItemOut{}
	if req.FileName != nil && *req.FileName != "" {
		upload, err := presignUpload(c, controller.Store, controller.Persister, user.ID, "wardrobe", "item", *req.FileName, "")
		if err != nil {
			return writeAPIError(c, err)
		}
		item.ImagePath = &upload.Path
		item.ImageURL = nil
		if upload.PublicURL != "" {
			item.ImageURL = services.StrPointer(upload.PublicURL)
		}
		out.UploadURL = &upload.UploadURL
	}

	if err := db.Create(&item).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to save item, please try again")
	}
	config.Logger.Info(fmt.Sprintf("[User %v] Wardrobe item %v created", user.ID, item.ID), zap.String("category", string(item.Category)))
	out.WardrobeItem = item
	return c.JSON(http.StatusCreated, out)
}

func findOwnedItem(db *gorm.DB, userID uint, id uint) (*models.WardrobeItem, error) {
	var item models.WardrobeItem
	err := db.Where("id = ? AND user_account_id = ?", id, userID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newAPIError(http.StatusNotFound, "Item not found")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes the row first, the stored photo is cleaned up best effort.
func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid item id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item, err := findOwnedItem(db, user.ID, id)
	if err != nil {
		return writeAPIError(c, err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wardrobe_item_id = ?", item.ID).Delete(&models.OutfitItem{}).Error; err != nil {
			return err
		}
		for _, column := range []string{"top_item_id", "bottom_item_id", "accessory_item_id"} {
			if err := tx.Model(&models.OutfitGeneration{}).Where(column+" = ?", item.ID).Update(column, nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to delete item")
	}
	if item.ImagePath != nil && controller.Persister != nil {
		controller.Persister.Delete(c.Request().Context(), *item.ImagePath)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *WardrobeController) ToggleFavorite(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid item id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item, err := findOwnedItem(db, user.ID, id)
	if err != nil {
		return writeAPIError(c, err)
	}
	item.IsFavorite = !item.IsFavorite
	if err := db.Model(item).Update("is_favorite", item.IsFavorite).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to update item")
	}
	return c.JSON(http.StatusOK, models.ToggleOut{Active: item.IsFavorite})
}
