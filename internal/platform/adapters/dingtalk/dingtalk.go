// Package dingtalk syncs rewrite records into a DingTalk Notable base.
package dingtalk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/scribesync/scribesync/internal/platform"
)

// Key is the platform key for DingTalk Notable.
const Key = "dingtalk"

const defaultAPIBase = "https://api.dingtalk.com"

// tokens are refreshed one minute before the vendor-reported expiry.
const tokenExpirySlack = 60 * time.Second

func Descriptor() platform.Descriptor {
	return platform.Descriptor{
		Key:         Key,
		DisplayName: "DingTalk Notable",
		Description: "Writes rewrite records into a DingTalk Notable base sheet.",
		RequiredFields: []string{
			"app_key", "app_secret", "base_id", "sheet_id", "operator_id",
		},
		OptionalFields: []string{"api_base"},
		FieldFormats: map[string]platform.FieldFormat{
			"app_key": {Prefix: "ding", Hint: "DingTalk app keys usually start with ding"},
		},
	}
}

// Register adds the DingTalk platform to the registry.
func Register(reg *platform.Registry, log *slog.Logger) {
	reg.MustRegister(Descriptor(), func(cfg platform.Config) (platform.Adapter, error) {
		return NewAdapter(log, cfg)
	})
}

type Config struct {
	AppKey     string
	AppSecret  string
	BaseID     string
	SheetID    string
	OperatorID string
	APIBase    string
}

func parseConfig(raw platform.Config) (Config, error) {
	cfg := Config{
		AppKey:     strings.TrimSpace(raw.Get("app_key")),
		AppSecret:  strings.TrimSpace(raw.Get("app_secret")),
		BaseID:     strings.TrimSpace(raw.Get("base_id")),
		SheetID:    strings.TrimSpace(raw.Get("sheet_id")),
		OperatorID: strings.TrimSpace(raw.Get("operator_id")),
		APIBase:    strings.TrimRight(strings.TrimSpace(raw.Get("api_base")), "/"),
	}
	if cfg.AppKey == "" || cfg.AppSecret == "" {
		return Config{}, fmt.Errorf("dingtalk app_key and app_secret are required")
	}
	if cfg.BaseID == "" || cfg.SheetID == "" {
		return Config{}, fmt.Errorf("dingtalk base_id and sheet_id are required")
	}
	if cfg.OperatorID == "" {
		return Config{}, fmt.Errorf("dingtalk operator_id is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return cfg, nil
}

// Adapter talks to the Notable REST API with an app access token that is
// cached in process and refreshed shortly before expiry.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewAdapter(log *slog.Logger, raw platform.Config) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: log.With(slog.String("adapter", Key)),
	}, nil
}

func (a *Adapter) Key() string {
	return Key
}

func (a *Adapter) Descriptor() platform.Descriptor {
	return Descriptor()
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpireIn    int64  `json:"expireIn"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"appKey":    a.cfg.AppKey,
		"appSecret": a.cfg.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIBase+"/v1.0/oauth2/accessToken", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dingtalk token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("dingtalk token exchange: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dingtalk token exchange failed: %s", vendorError(resp.StatusCode, body))
	}

	var token accessTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("dingtalk token exchange: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("dingtalk token exchange: empty access token")
	}

	a.token = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpireIn)*time.Second - tokenExpirySlack)
	return a.token, nil
}

func (a *Adapter) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.APIBase+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-acs-dingtalk-access-token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dingtalk request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dingtalk request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dingtalk request failed: %s", vendorError(resp.StatusCode, raw))
	}
	return raw, nil
}

func (a *Adapter) sheetPath() string {
	return fmt.Sprintf("/v2.0/notable/bases/%s/sheets/%s/records?operatorId=%s",
		url.PathEscape(a.cfg.BaseID), url.PathEscape(a.cfg.SheetID), url.QueryEscape(a.cfg.OperatorID))
}

// TestConnection fetches the base metadata, exercising both the token
// exchange and the base id.
func (a *Adapter) TestConnection(ctx context.Context) error {
	path := fmt.Sprintf("/v2.0/notable/bases/%s?operatorId=%s",
		url.PathEscape(a.cfg.BaseID), url.QueryEscape(a.cfg.OperatorID))
	if _, err := a.doJSON(ctx, http.MethodGet, path, nil); err != nil {
		return fmt.Errorf("dingtalk connection test: %w", err)
	}
	return nil
}

func rowFields(row platform.Row) map[string]any {
	return map[string]any{
		"Name":      row.Name,
		"Source":    row.SourceText,
		"Rewritten": row.RewrittenText,
		"UpdatedAt": row.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// WriteRecord appends one row. The Notable API has no filtered lookup, so
// rows are always appended rather than upserted.
func (a *Adapter) WriteRecord(ctx context.Context, row platform.Row) error {
	return a.WriteRecords(ctx, []platform.Row{row})
}

func (a *Adapter) WriteRecords(ctx context.Context, rows []platform.Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, map[string]any{"fields": rowFields(row)})
	}
	if _, err := a.doJSON(ctx, http.MethodPost, a.sheetPath(), map[string]any{"records": records}); err != nil {
		return err
	}
	a.logger.Debug("records written", slog.Int("count", len(rows)))
	return nil
}

func vendorError(status int, body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && (e.Code != "" || e.Message != "") {
		return fmt.Sprintf("%s (code: %s, status: %d)", e.Message, e.Code, status)
	}
	return fmt.Sprintf("status %d", status)
}
