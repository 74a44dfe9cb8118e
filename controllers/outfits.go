package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"wardrobeapi/config"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutfitController struct {
	URLCache services.URLCacheServiceProvider
}

func (controller *OutfitController) OutfitRoutes(g *echo.Group) {
	g.GET("", controller.ListOutfits)
	g.POST("", controller.CreateOutfit)
	g.GET("/liked", controller.LikedOutfits)
	g.GET("/favorites", controller.FavoriteOutfits)
	g.GET("/:id/items", controller.ListOutfitItems)
	g.POST("/:id/items", controller.AddOutfitItems)
	g.DELETE("/:id", controller.DeleteOutfit)
	g.POST("/:id/like", controller.ToggleLike)
	g.POST("/:id/favorite", controller.ToggleFavorite)
}

func (controller *OutfitController) resolveOutfitImages(c echo.Context, outfits []models.Outfit) {
	items := []models.WardrobeItem{}
	for _, outfit := range outfits {
		for _, item := range outfit.Items {
			items = append(items, item.WardrobeItem)
		}
	}
	populateImageURLs(c.Request().Context(), controller.URLCache, items)
	i := 0
	for o := range outfits {
		for j := range outfits[o].Items {
			outfits[o].Items[j].WardrobeItem = items[i]
			i++
		}
	}
}

func (controller *OutfitController) ListOutfits(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfits := []models.Outfit{}
	err := db.Preload("Items.WardrobeItem").
		Where("user_account_id = ?", user.ID).
		Order("created_at desc").Order("id desc").
		Find(&outfits).Error
	if err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch outfits")
	}
	controller.resolveOutfitImages(c, outfits)
	return c.JSON(http.StatusOK, outfits)
}

// ownedItemIDs fails unless every requested wardrobe item belongs to the user.
func ownedItemIDs(db *gorm.DB, userID uint, ids []uint) error {
	unique := map[uint]bool{}
	for _, id := range ids {
		unique[id] = true
	}
	if len(unique) == 0 {
		return nil
	}
	var count int64
	if err := db.Model(&models.WardrobeItem{}).Where("user_account_id = ? AND id IN ?", userID, ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(unique) {
		return newAPIError(http.StatusBadRequest, "Some items are not in your wardrobe")
	}
	return nil
}

func itemIDs(items []models.OutfitItemIn) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.WardrobeItemID)
	}
	return ids
}

func (controller *OutfitController) CreateOutfit(c echo.Context) error {
	var req models.OutfitIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	if err := ownedItemIDs(db, user.ID, itemIDs(req.Items)); err != nil {
		return writeAPIError(c, err)
	}
	outfit := models.Outfit{
		UserAccountID: user.ID,
		Name:          req.Name,
		Description:   req.Description,
		Occasion:      req.Occasion,
		Season:        req.Season,
		IsPublic:      req.IsPublic,
	}
	for _, item := range req.Items {
		outfit.Items = append(outfit.Items, models.OutfitItem{
			WardrobeItemID: item.WardrobeItemID,
			PositionType:   models.PositionType(item.PositionType),
		})
	}
	if err := db.Create(&outfit).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to save outfit, please try again")
	}
	config.Logger.Info(fmt.Sprintf("[User %v] Outfit %v created with %v items", user.ID, outfit.ID, len(outfit.Items)))

	db.Preload("Items.WardrobeItem").Take(&outfit, outfit.ID)
	outfits := []models.Outfit{outfit}
	controller.resolveOutfitImages(c, outfits)
	return c.JSON(http.StatusCreated, outfits[0])
}

// findOutfit returns the outfit when the user owns it, or when it is public
// and allowPublic is set.
func findOutfit(db *gorm.DB, userID uint, id uint, allowPublic bool) (*models.Outfit, error) {
	var outfit models.Outfit
	err := db.Take(&outfit, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newAPIError(http.StatusNotFound, "Outfit not found")
	}
	if err != nil {
		return nil, err
	}
	if outfit.UserAccountID != userID && !(allowPublic && outfit.IsPublic) {
		return nil, newAPIError(http.StatusNotFound, "Outfit not found")
	}
	return &outfit, nil
}

func (controller *OutfitController) ListOutfitItems(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid outfit id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfit, err := findOutfit(db, user.ID, id, true)
	if err != nil {
		return writeAPIError(c, err)
	}
	items := []models.OutfitItem{}
	if err := db.Preload("WardrobeItem").Where("outfit_id = ?", outfit.ID).Order("id").Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch outfit items")
	}
	outfits := []models.Outfit{{Items: items}}
	controller.resolveOutfitImages(c, outfits)
	return c.JSON(http.StatusOK, outfits[0].Items)
}

func (controller *OutfitController) AddOutfitItems(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid outfit id")
	}
	var req []models.OutfitItemIn
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req) == 0 {
		return errorJSON(c, http.StatusBadRequest, "No items given")
	}
	for _, item := range req {
		if err := c.Validate(item); err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfit, err := findOutfit(db, user.ID, id, false)
	if err != nil {
		return writeAPIError(c, err)
	}
	if err := ownedItemIDs(db, outfit.UserAccountID, itemIDs(req)); err != nil {
		return writeAPIError(c, err)
	}
	items := make([]models.OutfitItem, 0, len(req))
	for _, item := range req {
		items = append(items, models.OutfitItem{
			OutfitID:       outfit.ID,
			WardrobeItemID: item.WardrobeItemID,
			PositionType:   models.PositionType(item.PositionType),
		})
	}
	if err := db.Omit("WardrobeItem").Create(&items).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to add items")
	}
	return c.JSON(http.StatusCreated, items)
}

func (controller *OutfitController) DeleteOutfit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid outfit id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfit, err := findOutfit(db, user.ID, id, false)
	if err != nil {
		return writeAPIError(c, err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, related := range []interface{}{&models.OutfitItem{}, &models.OutfitLike{}, &models.OutfitFavorite{}} {
			if err := tx.Where("outfit_id = ?", outfit.ID).Delete(related).Error; err != nil {
				return err
			}
		}
		return tx.Delete(outfit).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to delete outfit")
	}
	return c.NoContent(http.StatusNoContent)
}

// toggleMark flips a per-user mark row and keeps the denormalized counter in step.
func toggleMark(db *gorm.DB, outfit *models.Outfit, userID uint, mark interface{}, counter string) (models.ToggleOut, error) {
	out := models.ToggleOut{}
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("outfit_id = ? AND user_account_id = ?", outfit.ID, userID).Delete(mark)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Model(outfit).UpdateColumn(counter,
				gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", counter))).Error
		}
		var row interface{}
		switch mark.(type) {
		case *models.OutfitLike:
			row = &models.OutfitLike{UserAccountID: userID, OutfitID: outfit.ID}
		default:
			row = &models.OutfitFavorite{UserAccountID: userID, OutfitID: outfit.ID}
		}
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if created.Error != nil {
			return created.Error
		}
		out.Active = true
		// a concurrent toggle already inserted the row and counted it
		if created.RowsAffected != 1 {
			return nil
		}
		return tx.Model(outfit).UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
	})
	if err != nil {
		return out, err
	}
	var count int
	if err := db.Model(&models.Outfit{}).Where("id = ?", outfit.ID).Select(counter).Scan(&count).Error; err != nil {
		return out, err
	}
	out.Count = count
	return out, nil
}

func (controller *OutfitController) toggle(c echo.Context, mark interface{}, counter string) error {
	id, err := pathID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid outfit id")
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfit, err := findOutfit(db, user.ID, id, true)
	if err != nil {
		return writeAPIError(c, err)
	}
	out, err := toggleMark(db, outfit, user.ID, mark, counter)
	if err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to update outfit")
	}
	return c.JSON(http.StatusOK, out)
}

func (controller *OutfitController) ToggleLike(c echo.Context) error {
	return controller.toggle(c, &models.OutfitLike{}, "likes_count")
}

func (controller *OutfitController) ToggleFavorite(c echo.Context) error {
	return controller.toggle(c, &models.OutfitFavorite{}, "favorites_count")
}

func (controller *OutfitController) markedIDs(c echo.Context, mark interface{}) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	ids := []uint{}
	if err := db.Model(mark).Where("user_account_id = ?", user.ID).Order("created_at desc").Pluck("outfit_id", &ids).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch outfits")
	}
	return c.JSON(http.StatusOK, ids)
}

func (controller *OutfitController) LikedOutfits(c echo.Context) error {
	return controller.markedIDs(c, &models.OutfitLike{})
}

func (controller *OutfitController) FavoriteOutfits(c echo.Context) error {
	return controller.markedIDs(c, &models.OutfitFavorite{})
}
