package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/scribesync/scribesync/internal/config"
	"github.com/scribesync/scribesync/internal/retry"
	"github.com/scribesync/scribesync/internal/store"
)

// Service rewrites text through OpenAI-compatible chat-completion endpoints.
// Vendor selection happens per request from the model config's type.
type Service struct {
	cfg    config.RewriteConfig
	logger *slog.Logger
}

func NewService(log *slog.Logger, cfg config.RewriteConfig) *Service {
	return &Service{
		cfg:    cfg,
		logger: log.With(slog.String("service", "rewrite")),
	}
}

// endpoint resolves the base URL and model for a vendor, letting the stored
// config override the configured defaults.
func (s *Service) endpoint(mc store.ModelConfig) (baseURL, model string, err error) {
	var vendor config.VendorConfig
	switch mc.ModelType {
	case store.ModelTypeQwen:
		vendor = s.cfg.Qwen
	case store.ModelTypeDeepSeek:
		vendor = s.cfg.DeepSeek
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedVendor, mc.ModelType)
	}
	baseURL = vendor.BaseURL
	if mc.BaseURL != "" {
		baseURL = mc.BaseURL
	}
	model = vendor.Model
	if mc.Model != "" {
		model = mc.Model
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return "", "", fmt.Errorf("no base url configured for vendor %s", mc.ModelType)
	}
	return baseURL, model, nil
}

// Rewrite sends the text to the vendor and returns the rewritten result.
// Transient failures are retried with doubling backoff; auth and request
// errors fail immediately.
func (s *Service) Rewrite(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, errors.New("text is required")
	}
	if req.Config.APIKey == "" {
		return Result{}, errors.New("api key is required")
	}

	baseURL, model, err := s.endpoint(req.Config)
	if err != nil {
		return Result{}, err
	}

	clientCfg := openai.DefaultConfig(req.Config.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = &http.Client{Timeout: s.cfg.Timeout()}
	client := openai.NewClientWithConfig(clientCfg)

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req.Instruction)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	}

	retryCfg := retry.Config{MaxRetries: s.cfg.MaxRetries, BaseDelay: s.cfg.RetryBase()}
	resp, err := retry.Do(ctx, retryCfg, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		resp, err := client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != http.StatusTooManyRequests {
				return resp, retry.Permanent(err)
			}
			return resp, err
		}
		return resp, nil
	})
	if err != nil {
		s.logger.Warn("rewrite failed",
			slog.String("vendor", string(req.Config.ModelType)),
			slog.String("model", model),
			slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("rewrite: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, errors.New("rewrite: vendor returned no choices")
	}

	result := Result{
		Text:   strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:  resp.Model,
		Vendor: req.Config.ModelType,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	s.logger.Debug("rewrite completed",
		slog.String("vendor", string(result.Vendor)),
		slog.String("model", result.Model),
		slog.Int("total_tokens", result.Usage.TotalTokens))
	return result, nil
}
