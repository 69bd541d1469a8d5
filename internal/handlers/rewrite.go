package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/rewrite"
	"github.com/scribesync/scribesync/internal/store"
)

type RewriteHandler struct {
	rewriter *rewrite.Service
	configs  *store.ModelConfigService
	logger   *slog.Logger
}

func NewRewriteHandler(log *slog.Logger, rewriter *rewrite.Service, configs *store.ModelConfigService) *RewriteHandler {
	return &RewriteHandler{
		rewriter: rewriter,
		configs:  configs,
		logger:   log.With(slog.String("handler", "rewrite")),
	}
}

func (h *RewriteHandler) Register(e *echo.Echo) {
	e.POST("/api/rewrite", h.Rewrite)
}

// rewriteRequest carries the text to rewrite plus either the name of a
// stored model config or an inline one. A named config wins when both
// are present.
type rewriteRequest struct {
	Text        string             `json:"text" validate:"required"`
	Instruction string             `json:"instruction,omitempty"`
	ConfigName  string             `json:"config_name,omitempty"`
	Config      *store.ModelConfig `json:"config,omitempty"`
}

// Rewrite godoc
// @Summary Rewrite text with a configured LLM vendor
// @Tags rewrite
// @Accept json
// @Produce json
// @Success 200 {object} rewrite.Result
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/rewrite [post]
func (h *RewriteHandler) Rewrite(c echo.Context) error {
	var req rewriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	cfg, err := h.resolveConfig(c, req)
	if err != nil {
		return err
	}

	result, err := h.rewriter.Rewrite(ctx, rewrite.Request{
		Text:        req.Text,
		Instruction: req.Instruction,
		Config:      cfg,
	})
	if err != nil {
		if errors.Is(err, rewrite.ErrUnsupportedVendor) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("rewrite failed",
			slog.String("vendor", string(cfg.ModelType)),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *RewriteHandler) resolveConfig(c echo.Context, req rewriteRequest) (store.ModelConfig, error) {
	if req.ConfigName != "" {
		cfg, err := h.configs.Get(c.Request().Context(), req.ConfigName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ModelConfig{}, echo.NewHTTPError(http.StatusNotFound, err.Error())
			}
			return store.ModelConfig{}, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return cfg, nil
	}
	if req.Config == nil {
		return store.ModelConfig{}, echo.NewHTTPError(http.StatusBadRequest, "config or config_name is required")
	}
	if err := req.Config.Validate(); err != nil {
		return store.ModelConfig{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return *req.Config, nil
}
