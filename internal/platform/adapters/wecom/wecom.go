// Package wecom syncs rewrite records into a WeCom (WeChat Work) SmartSheet.
package wecom

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

// Key is the platform key for WeCom SmartSheet. The WeCom platform predates
// the WeCom rename, so the key keeps the historical "wework" spelling.
const Key = "wework"

const defaultAPIBase = "https://qyapi.weixin.qq.com"

const tokenExpirySlack = 60 * time.Second

func Descriptor() platform.Descriptor {
	return platform.Descriptor{
		Key:         Key,
		DisplayName: "WeCom SmartSheet",
		Description: "Writes rewrite records into a WeCom SmartSheet document.",
		RequiredFields: []string{
			"corp_id", "corp_secret", "doc_id", "sheet_id",
		},
		OptionalFields: []string{"api_base"},
		FieldFormats: map[string]platform.FieldFormat{
			"corp_id": {Prefix: "ww", Hint: "WeCom corp ids usually start with ww"},
		},
	}
}

// Register adds the WeCom platform to the registry.
func Register(reg *platform.Registry, log *slog.Logger) {
	reg.MustRegister(Descriptor(), func(cfg platform.Config) (platform.Adapter, error) {
		return NewAdapter(log, cfg)
	})
}

type Config struct {
	CorpID     string
	CorpSecret string
	DocID      string
	SheetID    string
	APIBase    string
}

func parseConfig(raw platform.Config) (Config, error) {
	cfg := Config{
		CorpID:     strings.TrimSpace(raw.Get("corp_id")),
		CorpSecret: strings.TrimSpace(raw.Get("corp_secret")),
		DocID:      strings.TrimSpace(raw.Get("doc_id")),
		SheetID:    strings.TrimSpace(raw.Get("sheet_id")),
		APIBase:    strings.TrimRight(strings.TrimSpace(raw.Get("api_base")), "/"),
	}
	if cfg.CorpID == "" || cfg.CorpSecret == "" {
		return Config{}, fmt.Errorf("wecom corp_id and corp_secret are required")
	}
	if cfg.DocID == "" || cfg.SheetID == "" {
		return Config{}, fmt.Errorf("wecom doc_id and sheet_id are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return cfg, nil
}

// Adapter talks to the WeCom REST API. Every response carries an errcode;
// anything non-zero is surfaced as an error with the vendor message.
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

type envelope struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type tokenResponse struct {
	envelope
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/gettoken?corpid=%s&corpsecret=%s",
		a.cfg.APIBase, url.QueryEscape(a.cfg.CorpID), url.QueryEscape(a.cfg.CorpSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wecom token exchange: %w", err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("wecom token exchange: %w", err)
	}
	if token.ErrCode != 0 {
		return "", fmt.Errorf("wecom token exchange failed: %s (errcode: %d)", token.ErrMsg, token.ErrCode)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("wecom token exchange: empty access token")
	}

	a.token = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack)
	return a.token, nil
}

func (a *Adapter) postJSON(ctx context.Context, path string, body any) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s%s?access_token=%s", a.cfg.APIBase, path, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("wecom request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wecom request: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("wecom request: decode response: %w", err)
	}
	if env.ErrCode != 0 {
		return fmt.Errorf("wecom request failed: %s (errcode: %d)", env.ErrMsg, env.ErrCode)
	}
	return nil
}

// TestConnection exchanges the corp credentials for a fresh token.
func (a *Adapter) TestConnection(ctx context.Context) error {
	a.tokenMu.Lock()
	a.token = ""
	a.tokenMu.Unlock()
	if _, err := a.accessToken(ctx); err != nil {
		return fmt.Errorf("wecom connection test: %w", err)
	}
	return nil
}

func textCell(value string) []map[string]string {
	return []map[string]string{{"type": "text", "text": value}}
}

func rowValues(row platform.Row) map[string]any {
	return map[string]any{
		"Name":      textCell(row.Name),
		"Source":    textCell(row.SourceText),
		"Rewritten": textCell(row.RewrittenText),
		"UpdatedAt": textCell(row.UpdatedAt.UTC().Format("2006-01-02 15:04:05")),
	}
}

// WriteRecord appends one row. SmartSheet has no filtered lookup through this
// endpoint, so rows are appended rather than upserted.
func (a *Adapter) WriteRecord(ctx context.Context, row platform.Row) error {
	return a.WriteRecords(ctx, []platform.Row{row})
}

func (a *Adapter) WriteRecords(ctx context.Context, rows []platform.Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, map[string]any{"values": rowValues(row)})
	}
	body := map[string]any{
		"docid":    a.cfg.DocID,
		"sheet_id": a.cfg.SheetID,
		"key_type": "CELL_VALUE_KEY_TYPE_FIELD_TITLE",
		"records":  records,
	}
	if err := a.postJSON(ctx, "/cgi-bin/wedoc/smartsheet/add_records", body); err != nil {
		return err
	}
	a.logger.Debug("records written", slog.Int("count", len(rows)))
	return nil
}
