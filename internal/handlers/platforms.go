package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/platform"
)

type PlatformsHandler struct {
	registry *platform.Registry
	factory  *platform.Factory
	logger   *slog.Logger
}

func NewPlatformsHandler(log *slog.Logger, registry *platform.Registry, factory *platform.Factory) *PlatformsHandler {
	return &PlatformsHandler{
		registry: registry,
		factory:  factory,
		logger:   log.With(slog.String("handler", "platforms")),
	}
}

func (h *PlatformsHandler) Register(e *echo.Echo) {
	group := e.Group("/platforms")
	group.GET("", h.List)
	group.GET("/:key", h.Get)
	group.POST("/:key/validate", h.Validate)
	group.POST("/:key/test", h.Test)
}

// List godoc
// @Summary List supported platforms
// @Tags platforms
// @Produce json
// @Success 200 {array} platform.Descriptor
// @Router /platforms [get]
func (h *PlatformsHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Descriptors())
}

// Get godoc
// @Summary Get platform metadata by key
// @Tags platforms
// @Produce json
// @Success 200 {object} platform.Descriptor
// @Failure 404 {object} echo.HTTPError
// @Router /platforms/{key} [get]
func (h *PlatformsHandler) Get(c echo.Context) error {
	desc, ok := h.registry.Descriptor(c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unsupported platform: "+c.Param("key"))
	}
	return c.JSON(http.StatusOK, desc)
}

// Validate godoc
// @Summary Validate a platform configuration
// @Tags platforms
// @Accept json
// @Produce json
// @Success 200 {object} platform.Validation
// @Router /platforms/{key}/validate [post]
func (h *PlatformsHandler) Validate(c echo.Context) error {
	var cfg platform.Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.factory.ValidateConfig(c.Param("key"), cfg))
}

// Test godoc
// @Summary Test connectivity for a platform configuration
// @Tags platforms
// @Accept json
// @Produce json
// @Success 200 {object} platform.TestResult
// @Router /platforms/{key}/test [post]
func (h *PlatformsHandler) Test(c echo.Context) error {
	var cfg platform.Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.factory.TestConnection(c.Request().Context(), c.Param("key"), cfg)
	return c.JSON(http.StatusOK, result)
}
