package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/platform"
	"github.com/scribesync/scribesync/internal/store"
)

type RecordsHandler struct {
	service *store.RecordService
	factory *platform.Factory
	logger  *slog.Logger
}

func NewRecordsHandler(log *slog.Logger, service *store.RecordService, factory *platform.Factory) *RecordsHandler {
	return &RecordsHandler{
		service: service,
		factory: factory,
		logger:  log.With(slog.String("handler", "records")),
	}
}

func (h *RecordsHandler) Register(e *echo.Echo) {
	group := e.Group("/records")
	group.POST("", h.Save)
	group.GET("", h.List)
	group.GET("/:name", h.Get)
	group.DELETE("/:name", h.Delete)
	group.POST("/delete", h.DeleteMany)
	group.POST("/:name/sync", h.Sync)
}

// Save godoc
// @Summary Save a rewrite record (upsert by name)
// @Tags records
// @Accept json
// @Produce json
// @Success 200 {object} store.RewriteRecord
// @Failure 400 {object} echo.HTTPError
// @Router /records [post]
func (h *RecordsHandler) Save(c echo.Context) error {
	var rec store.RewriteRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.service.Save(c.Request().Context(), rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *RecordsHandler) List(c echo.Context) error {
	records, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []store.RewriteRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *RecordsHandler) Get(c echo.Context) error {
	rec, err := h.service.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *RecordsHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RecordsHandler) DeleteMany(c echo.Context) error {
	var req deleteManyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.service.DeleteMany(c.Request().Context(), req.Names); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type syncRequest struct {
	Platform string          `json:"platform" validate:"required"`
	Config   platform.Config `json:"config" validate:"required"`
}

// Sync godoc
// @Summary Push a stored record to a smart-table platform
// @Tags records
// @Accept json
// @Produce json
// @Success 200 {object} store.RewriteRecord
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /records/{name}/sync [post]
func (h *RecordsHandler) Sync(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	name := c.Param("name")
	rec, err := h.service.Get(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	adapter, err := h.factory.CreateAdapter(req.Platform, req.Config)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	row := platform.Row{
		Name:          rec.Name,
		SourceText:    rec.SourceText,
		RewrittenText: rec.RewrittenText,
		UpdatedAt:     rec.UpdatedAt,
	}
	if err := adapter.WriteRecord(ctx, row); err != nil {
		h.logger.Error("sync failed",
			slog.String("record", name),
			slog.String("platform", req.Platform),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	synced, err := h.service.MarkSynced(ctx, name, req.Platform)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, synced)
}
