package controllers

import (
	"net/http"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("position", models.ValidatePosition)
	return &CustomValidator{validator: v}
}

// Deps are the collaborators handlers reach through their controllers.
// Enqueuer may be nil, async generation then answers 503.
type Deps struct {
	Store     services.ObjectStore
	URLCache  services.URLCacheServiceProvider
	Persister *services.Persister
	Generator tasks.OutfitGenerator
	Enqueuer  tasks.Enqueuer
}

func SetupServer(db *gorm.DB, deps Deps, jwtSecret string) *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiGroup := e.Group("/api", echojwt.JWT([]byte(jwtSecret)))
	apiGroup.Use(UserMiddleware)

	profileController := ProfileController{Store: deps.Store, URLCache: deps.URLCache, Persister: deps.Persister}
	profileController.ProfileRoutes(apiGroup.Group("/profile"))

	wardrobeController := WardrobeController{Store: deps.Store, URLCache: deps.URLCache, Persister: deps.Persister}
	wardrobeController.WardrobeRoutes(apiGroup.Group("/wardrobe"))

	outfitController := OutfitController{URLCache: deps.URLCache}
	outfitController.OutfitRoutes(apiGroup.Group("/outfits"))

	preferenceController := PreferenceController{}
	preferenceController.PreferenceRoutes(apiGroup.Group("/preferences"))

	generationController := GenerationController{Generator: deps.Generator, Enqueuer: deps.Enqueuer, URLCache: deps.URLCache}
	generationController.GenerationRoutes(apiGroup.Group("/generations"))

	return e
}
