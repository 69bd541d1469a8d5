package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/platform"
	"github.com/scribesync/scribesync/internal/rewrite"
	"github.com/scribesync/scribesync/internal/store"
)

// Message is the envelope accepted by the single-endpoint protocol. Data is
// decoded per action.
type Message struct {
	Action string          `json:"action" validate:"required"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Reply always travels with HTTP 200; the Success flag carries the outcome.
type Reply struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type MessageHandler struct {
	rewriter *rewrite.Service
	configs  *store.ModelConfigService
	records  *store.RecordService
	registry *platform.Registry
	factory  *platform.Factory
	logger   *slog.Logger
}

func NewMessageHandler(
	log *slog.Logger,
	rewriter *rewrite.Service,
	configs *store.ModelConfigService,
	records *store.RecordService,
	registry *platform.Registry,
	factory *platform.Factory,
) *MessageHandler {
	return &MessageHandler{
		rewriter: rewriter,
		configs:  configs,
		records:  records,
		registry: registry,
		factory:  factory,
		logger:   log.With(slog.String("handler", "message")),
	}
}

func (h *MessageHandler) Register(e *echo.Echo) {
	e.POST("/api/message", h.Handle)
}

// Handle godoc
// @Summary Dispatch an action message
// @Description Accepts {action, data} and answers {success, data|error} with HTTP 200 in both cases.
// @Tags message
// @Accept json
// @Produce json
// @Success 200 {object} handlers.Reply
// @Router /api/message [post]
func (h *MessageHandler) Handle(c echo.Context) error {
	var msg Message
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusOK, Reply{Success: false, Error: err.Error()})
	}
	if msg.Action == "" {
		return c.JSON(http.StatusOK, Reply{Success: false, Error: "action is required"})
	}

	data, err := h.dispatch(c.Request().Context(), msg)
	if err != nil {
		h.logger.Warn("action failed",
			slog.String("action", msg.Action),
			slog.Any("error", err))
		return c.JSON(http.StatusOK, Reply{Success: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, Reply{Success: true, Data: data})
}

func (h *MessageHandler) dispatch(ctx context.Context, msg Message) (any, error) {
	switch msg.Action {
	case "rewriteText":
		return h.rewriteText(ctx, msg.Data)
	case "saveModelConfig":
		return h.saveModelConfig(ctx, msg.Data)
	case "getModelConfigs":
		return h.configs.List(ctx)
	case "deleteModelConfigs":
		return h.deleteModelConfigs(ctx, msg.Data)
	case "saveRecord":
		return h.saveRecord(ctx, msg.Data)
	case "getRecords":
		return h.records.List(ctx)
	case "deleteRecord":
		return h.deleteRecord(ctx, msg.Data)
	case "deleteRecords":
		return h.deleteRecords(ctx, msg.Data)
	case "listPlatforms":
		return h.registry.Descriptors(), nil
	case "validatePlatformConfig":
		return h.validatePlatformConfig(msg.Data)
	case "testPlatformConnection":
		return h.testPlatformConnection(ctx, msg.Data)
	case "syncRecord":
		return h.syncRecord(ctx, msg.Data)
	default:
		return nil, fmt.Errorf("unknown action: %s", msg.Action)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, errors.New("data is required")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode data: %w", err)
	}
	return v, nil
}

func (h *MessageHandler) rewriteText(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[rewriteRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Text == "" {
		return nil, errors.New("text is required")
	}
	cfg, err := h.lookupConfig(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.rewriter.Rewrite(ctx, rewrite.Request{
		Text:        req.Text,
		Instruction: req.Instruction,
		Config:      cfg,
	})
}

func (h *MessageHandler) lookupConfig(ctx context.Context, req rewriteRequest) (store.ModelConfig, error) {
	if req.ConfigName != "" {
		return h.configs.Get(ctx, req.ConfigName)
	}
	if req.Config == nil {
		return store.ModelConfig{}, errors.New("config or config_name is required")
	}
	if err := req.Config.Validate(); err != nil {
		return store.ModelConfig{}, err
	}
	return *req.Config, nil
}

func (h *MessageHandler) saveModelConfig(ctx context.Context, raw json.RawMessage) (any, error) {
	cfg, err := decode[store.ModelConfig](raw)
	if err != nil {
		return nil, err
	}
	if err := h.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *MessageHandler) deleteModelConfigs(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[deleteManyRequest](raw)
	if err != nil {
		return nil, err
	}
	if len(req.Names) == 0 {
		return nil, errors.New("names is required")
	}
	removed, err := h.configs.Delete(ctx, req.Names)
	if err != nil {
		return nil, err
	}
	return map[string]int{"deleted": removed}, nil
}

func (h *MessageHandler) saveRecord(ctx context.Context, raw json.RawMessage) (any, error) {
	rec, err := decode[store.RewriteRecord](raw)
	if err != nil {
		return nil, err
	}
	return h.records.Save(ctx, rec)
}

type namedRequest struct {
	Name string `json:"name"`
}

func (h *MessageHandler) deleteRecord(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[namedRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	if err := h.records.Delete(ctx, req.Name); err != nil {
		return nil, err
	}
	return map[string]string{"name": req.Name}, nil
}

func (h *MessageHandler) deleteRecords(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[deleteManyRequest](raw)
	if err != nil {
		return nil, err
	}
	if len(req.Names) == 0 {
		return nil, errors.New("names is required")
	}
	removed, err := h.records.DeleteMany(ctx, req.Names)
	if err != nil {
		return nil, err
	}
	return map[string]int{"deleted": removed}, nil
}

type platformRequest struct {
	Platform string          `json:"platform"`
	Config   platform.Config `json:"config"`
}

func (h *MessageHandler) validatePlatformConfig(raw json.RawMessage) (any, error) {
	req, err := decode[platformRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Platform == "" {
		return nil, errors.New("platform is required")
	}
	return h.factory.ValidateConfig(req.Platform, req.Config), nil
}

func (h *MessageHandler) testPlatformConnection(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[platformRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Platform == "" {
		return nil, errors.New("platform is required")
	}
	return h.factory.TestConnection(ctx, req.Platform, req.Config), nil
}

type syncMessage struct {
	Name     string          `json:"name"`
	Platform string          `json:"platform"`
	Config   platform.Config `json:"config"`
}

func (h *MessageHandler) syncRecord(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[syncMessage](raw)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	if req.Platform == "" {
		return nil, errors.New("platform is required")
	}
	rec, err := h.records.Get(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	adapter, err := h.factory.CreateAdapter(req.Platform, req.Config)
	if err != nil {
		return nil, err
	}
	row := platform.Row{
		Name:          rec.Name,
		SourceText:    rec.SourceText,
		RewrittenText: rec.RewrittenText,
		UpdatedAt:     rec.UpdatedAt,
	}
	if err := adapter.WriteRecord(ctx, row); err != nil {
		return nil, fmt.Errorf("write record to %s: %w", req.Platform, err)
	}
	return h.records.MarkSynced(ctx, req.Name, req.Platform)
}
