package wecom

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scribesync/scribesync/internal/platform"
)

func testConfig(apiBase string) platform.Config {
	return platform.Config{
		"corp_id":     "wwabc123",
		"corp_secret": "secret",
		"doc_id":      "doc1",
		"sheet_id":    "st1",
		"api_base":    apiBase,
	}
}

func TestParseConfigRequiredFields(t *testing.T) {
	t.Parallel()

	for _, missing := range []string{"corp_id", "corp_secret", "doc_id", "sheet_id"} {
		raw := testConfig("")
		delete(raw, missing)
		if _, err := parseConfig(raw); err == nil {
			t.Fatalf("expected error when %s is missing", missing)
		}
	}

	cfg, err := parseConfig(testConfig(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("unexpected default api base: %q", cfg.APIBase)
	}
}

func TestWriteRecordsSendsSmartSheetPayload(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/gettoken":
			tokenCalls.Add(1)
			if got := r.URL.Query().Get("corpid"); got != "wwabc123" {
				t.Errorf("unexpected corpid: %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok", "access_token": "tok", "expires_in": 7200})
		case "/cgi-bin/wedoc/smartsheet/add_records":
			if got := r.URL.Query().Get("access_token"); got != "tok" {
				t.Errorf("unexpected access token: %q", got)
			}
			raw, _ := io.ReadAll(r.Body)
			body := string(raw)
			if !strings.Contains(body, `"docid":"doc1"`) || !strings.Contains(body, `"sheet_id":"st1"`) {
				t.Errorf("unexpected payload: %s", body)
			}
			if !strings.Contains(body, `"text":"better"`) {
				t.Errorf("expected text cell in payload: %s", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok"})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter, err := NewAdapter(slog.Default(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	rows := []platform.Row{
		{Name: "draft", SourceText: "raw", RewrittenText: "better", UpdatedAt: time.Now()},
		{Name: "memo", SourceText: "in", RewrittenText: "out", UpdatedAt: time.Now()},
	}
	if err := adapter.WriteRecords(context.Background(), rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := adapter.WriteRecord(context.Background(), rows[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Fatalf("expected token cached after first exchange, got %d calls", got)
	}
}

func TestNonZeroErrcodeIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cgi-bin/gettoken" {
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok", "access_token": "tok", "expires_in": 7200})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 301058, "errmsg": "no doc permission"})
	}))
	defer srv.Close()

	adapter, err := NewAdapter(slog.Default(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	err = adapter.WriteRecord(context.Background(), platform.Row{Name: "draft"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no doc permission") || !strings.Contains(err.Error(), "301058") {
		t.Fatalf("expected vendor errcode and message, got %v", err)
	}
}

func TestTestConnection(t *testing.T) {
	t.Parallel()

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 40001, "errmsg": "invalid credential"})
		}))
		defer srv.Close()

		adapter, err := NewAdapter(slog.Default(), testConfig(srv.URL))
		if err != nil {
			t.Fatalf("new adapter: %v", err)
		}
		if err := adapter.TestConnection(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	})

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok", "access_token": "tok", "expires_in": 7200})
		}))
		defer srv.Close()

		adapter, err := NewAdapter(slog.Default(), testConfig(srv.URL))
		if err != nil {
			t.Fatalf("new adapter: %v", err)
		}
		if err := adapter.TestConnection(context.Background()); err != nil {
			t.Fatalf("test connection: %v", err)
		}
	})
}
