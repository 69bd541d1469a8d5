package feishu

import (
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"

	"github.com/scribesync/scribesync/internal/platform"
)

const (
	regionFeishu = "feishu"
	regionLark   = "lark"

	defaultNameField      = "Name"
	defaultSourceField    = "Source"
	defaultRewrittenField = "Rewritten"
	defaultUpdatedField   = "UpdatedAt"
)

// Config holds the Bitable credentials and target extracted from a platform
// configuration.
type Config struct {
	AppID     string
	AppSecret string
	AppToken  string
	TableID   string
	Region    string

	NameField      string
	SourceField    string
	RewrittenField string
	UpdatedField   string
}

func parseConfig(raw platform.Config) (Config, error) {
	cfg := Config{
		AppID:          strings.TrimSpace(raw.Get("app_id")),
		AppSecret:      strings.TrimSpace(raw.Get("app_secret")),
		AppToken:       strings.TrimSpace(raw.Get("app_token")),
		TableID:        strings.TrimSpace(raw.Get("table_id")),
		Region:         strings.ToLower(strings.TrimSpace(raw.Get("region"))),
		NameField:      strings.TrimSpace(raw.Get("name_field")),
		SourceField:    strings.TrimSpace(raw.Get("source_field")),
		RewrittenField: strings.TrimSpace(raw.Get("rewritten_field")),
		UpdatedField:   strings.TrimSpace(raw.Get("updated_field")),
	}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return Config{}, fmt.Errorf("feishu app_id and app_secret are required")
	}
	if cfg.AppToken == "" || cfg.TableID == "" {
		return Config{}, fmt.Errorf("feishu app_token and table_id are required")
	}
	switch cfg.Region {
	case "":
		cfg.Region = regionFeishu
	case regionFeishu, regionLark:
	default:
		return Config{}, fmt.Errorf("feishu region must be %q or %q", regionFeishu, regionLark)
	}
	if cfg.NameField == "" {
		cfg.NameField = defaultNameField
	}
	if cfg.SourceField == "" {
		cfg.SourceField = defaultSourceField
	}
	if cfg.RewrittenField == "" {
		cfg.RewrittenField = defaultRewrittenField
	}
	if cfg.UpdatedField == "" {
		cfg.UpdatedField = defaultUpdatedField
	}
	return cfg, nil
}

func (c Config) openBaseURL() string {
	if c.Region == regionLark {
		return lark.LarkBaseUrl
	}
	return lark.FeishuBaseUrl
}
