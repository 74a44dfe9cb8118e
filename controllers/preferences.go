package controllers

import (
	"net/http"
	"strings"

	"wardrobeapi/models"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type PreferenceController struct{}

func (controller *PreferenceController) PreferenceRoutes(g *echo.Group) {
	g.GET("", controller.ListPreferences)
	g.POST("", controller.AddPreference)
}

func (controller *PreferenceController) ListPreferences(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	preferences := []models.StylePreference{}
	if err := db.Where("user_account_id = ?", user.ID).Order("id").Find(&preferences).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch preferences")
	}
	return c.JSON(http.StatusOK, preferences)
}

// AddPreference is idempotent per name.
func (controller *PreferenceController) AddPreference(c echo.Context) error {
	var req models.StylePreferenceIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.PreferenceName = strings.TrimSpace(req.PreferenceName)
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	preference := models.StylePreference{UserAccountID: user.ID, PreferenceName: req.PreferenceName}
	if err := db.Where(preference).FirstOrCreate(&preference).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to save preference")
	}
	return c.JSON(http.StatusOK, preference)
}
