package feishu

import (
	"testing"

	"github.com/scribesync/scribesync/internal/platform"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(platform.Config{
		"app_id":     "cli_abc",
		"app_secret": "secret",
		"app_token":  "bascnXYZ",
		"table_id":   "tblfoo",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AppID != "cli_abc" || cfg.AppSecret != "secret" {
		t.Fatalf("unexpected credentials: %+v", cfg)
	}
	if cfg.Region != regionFeishu {
		t.Fatalf("unexpected default region: %q", cfg.Region)
	}
	if cfg.NameField != defaultNameField || cfg.UpdatedField != defaultUpdatedField {
		t.Fatalf("unexpected default field names: %+v", cfg)
	}
}

func TestParseConfigRequiresCredentialsAndTarget(t *testing.T) {
	t.Parallel()

	cases := []platform.Config{
		{},
		{"app_id": "cli_abc", "app_secret": "s"},
		{"app_token": "bascn", "table_id": "tbl"},
	}
	for _, raw := range cases {
		if _, err := parseConfig(raw); err == nil {
			t.Fatalf("expected error for %v", raw)
		}
	}
}

func TestParseConfigRegionAndFieldOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(platform.Config{
		"app_id":          "cli_abc",
		"app_secret":      "s",
		"app_token":       "bascn",
		"table_id":        "tbl",
		"region":          "lark",
		"name_field":      "Title",
		"rewritten_field": "Output",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Region != regionLark {
		t.Fatalf("unexpected region: %q", cfg.Region)
	}
	if cfg.NameField != "Title" || cfg.RewrittenField != "Output" {
		t.Fatalf("unexpected field overrides: %+v", cfg)
	}
	if cfg.SourceField != defaultSourceField {
		t.Fatalf("unexpected source field: %q", cfg.SourceField)
	}
}

func TestParseConfigRejectsUnknownRegion(t *testing.T) {
	t.Parallel()

	_, err := parseConfig(platform.Config{
		"app_id":     "cli_abc",
		"app_secret": "s",
		"app_token":  "bascn",
		"table_id":   "tbl",
		"region":     "europe",
	})
	if err == nil {
		t.Fatal("expected error for unknown region")
	}
}

func TestEscapeFilterValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: `plain`, want: `plain`},
		{in: `a"b`, want: `a\"b`},
		{in: `a\b`, want: `a\\b`},
		{in: `a\"b`, want: `a\\\"b`},
	}
	for _, tc := range cases {
		if got := escapeFilterValue(tc.in); got != tc.want {
			t.Fatalf("escape %q: want %q got %q", tc.in, tc.want, got)
		}
	}
}

func TestNameFilterDistinguishesQuotedNames(t *testing.T) {
	t.Parallel()

	quoted := nameFilter("Name", `a"b`)
	plain := nameFilter("Name", `ab`)
	if quoted == plain {
		t.Fatalf("distinct names produced identical filters: %q", quoted)
	}
	if quoted != `CurrentValue.[Name] = "a\"b"` {
		t.Fatalf("unexpected filter: %q", quoted)
	}
}
