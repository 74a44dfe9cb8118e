package controllers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ProfileController struct {
	Store     services.ObjectStore
	URLCache  services.URLCacheServiceProvider
	Persister *services.Persister
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", controller.GetProfile)
	g.PUT("/me", controller.UpdateProfile)
	g.POST("/avatar/upload-url", controller.AvatarUploadURL)
	g.POST("/push-token", controller.SavePushToken)
}

func (controller *ProfileController) profileOut(c echo.Context, user models.UserAccount) models.ProfileOut {
	return models.ProfileOut{
		ID:                   user.ID,
		Email:                user.Email,
		FullName:             user.FullName,
		AvatarURL:            services.ResolveImageURL(c.Request().Context(), controller.URLCache, user.AvatarPath, user.AvatarURL),
		Bio:                  user.Bio,
		ReceiveNotifications: user.ReceiveNotifications,
	}
}

func (controller *ProfileController) GetProfile(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	return c.JSON(http.StatusOK, controller.profileOut(c, user))
}

func (controller *ProfileController) UpdateProfile(c echo.Context) error {
	var req models.ProfileUpdateIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	if req.AvatarPath != nil && !strings.HasPrefix(*req.AvatarPath, fmt.Sprintf("%d/", user.ID)) {
		return errorJSON(c, http.StatusBadRequest, "Avatar does not belong to this account")
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
		user.AvatarPath = nil
	}
	if req.AvatarPath != nil {
		user.AvatarPath = req.AvatarPath
	}
	if req.ReceiveNotifications != nil {
		user.ReceiveNotifications = *req.ReceiveNotifications
	}
	updates := map[string]interface{}{
		"full_name":             user.FullName,
		"bio":                   user.Bio,
		"avatar_url":            user.AvatarURL,
		"avatar_path":           user.AvatarPath,
		"receive_notifications": user.ReceiveNotifications,
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to update profile")
	}
	return c.JSON(http.StatusOK, controller.profileOut(c, user))
}

// AvatarUploadURL hands out a presigned PUT for a new profile photo. The
// client confirms it afterwards with PUT /me {avatar_path}.
func (controller *ProfileController) AvatarUploadURL(c echo.Context) error {
	var req models.FileUploadIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)

	out, err := presignUpload(c, controller.Store, controller.Persister, user.ID, "avatars", "avatar", req.FileName, req.ContentType)
	if err != nil {
		return writeAPIError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (controller *ProfileController) SavePushToken(c echo.Context) error {
	var req models.UserPushIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var token models.UserPushToken
	db.Where("user_account_id = ? AND token = ?", user.ID, req.Token).Limit(1).Find(&token)
	token.UserAccountID = user.ID
	token.Token = req.Token
	token.Platform = models.Platform(req.Platform)
	token.Active = true
	if err := db.Omit("UserAccount").Save(&token).Error; err != nil {
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to save push token")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// presignUpload reserves a key in the user's area and returns where to PUT it.
func presignUpload(c echo.Context, store services.ObjectStore, persister *services.Persister, userID uint, folder, base, fileName, contentType string) (*models.FileUploadOut, error) {
	if store == nil || persister == nil {
		return nil, newAPIError(http.StatusServiceUnavailable, "Uploads are not available right now")
	}
	ext := services.ExtensionFromURL(path.Base(fileName), "jpg")
	if contentType == "" {
		contentType = services.MimeFromExtension(ext)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, newAPIError(http.StatusBadRequest, "Only images can be uploaded")
	}
	key, err := persister.ObjectKey(userID, folder, base, ext)
	if err != nil {
		sentry.CaptureException(err)
		return nil, newAPIError(http.StatusInternalServerError, "Failed to prepare upload")
	}
	uploadURL, err := store.PresignUpload(c.Request().Context(), key, contentType)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[User %v] presign %s: %w", userID, key, err))
		return nil, newAPIError(http.StatusInternalServerError, "Failed to prepare upload")
	}
	return &models.FileUploadOut{
		Path:      key,
		UploadURL: uploadURL,
		PublicURL: store.PublicURL(key),
	}, nil
}
