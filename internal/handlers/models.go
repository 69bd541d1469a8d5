package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/store"
)

type ModelsHandler struct {
	service *store.ModelConfigService
	logger  *slog.Logger
}

func NewModelsHandler(log *slog.Logger, service *store.ModelConfigService) *ModelsHandler {
	return &ModelsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "models")),
	}
}

func (h *ModelsHandler) Register(e *echo.Echo) {
	group := e.Group("/models")
	group.POST("", h.Save)
	group.GET("", h.List)
	group.GET("/:name", h.Get)
	group.DELETE("/:name", h.Delete)
	group.POST("/delete", h.DeleteMany)
}

// Save godoc
// @Summary Save a model config (upsert by name)
// @Tags models
// @Accept json
// @Produce json
// @Success 200 {object} store.ModelConfig
// @Failure 400 {object} echo.HTTPError
// @Router /models [post]
func (h *ModelsHandler) Save(c echo.Context) error {
	var cfg store.ModelConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Save(c.Request().Context(), cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *ModelsHandler) List(c echo.Context) error {
	configs, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if configs == nil {
		configs = []store.ModelConfig{}
	}
	return c.JSON(http.StatusOK, configs)
}

func (h *ModelsHandler) Get(c echo.Context) error {
	cfg, err := h.service.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *ModelsHandler) Delete(c echo.Context) error {
	if _, err := h.service.Delete(c.Request().Context(), []string{c.Param("name")}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type deleteManyRequest struct {
	Names []string `json:"names" validate:"required,min=1"`
}

// DeleteMany removes exactly the named configs.
func (h *ModelsHandler) DeleteMany(c echo.Context) error {
	var req deleteManyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.service.Delete(c.Request().Context(), req.Names); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
