package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scribesync/scribesync/internal/rewrite"
)

const chatCompletionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "qwen-plus",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "polished text"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func newVendorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRewriteInlineConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := newVendorServer(t)

	body := fmt.Sprintf(`{"text":"raw text","config":{"name":"inline","model_type":"qwen","api_key":"sk-1","base_url":%q,"model":"qwen-plus"}}`, srv.URL)
	rec := f.do(t, http.MethodPost, "/api/rewrite", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeJSON[rewrite.Result](t, rec)
	if result.Text != "polished text" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.Usage.TotalTokens != 16 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestRewriteNamedConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := newVendorServer(t)

	body := fmt.Sprintf(`{"name":"primary","model_type":"deepseek","api_key":"sk-1","base_url":%q,"model":"deepseek-chat"}`, srv.URL)
	if rec := f.do(t, http.MethodPost, "/models", body); rec.Code != http.StatusOK {
		t.Fatalf("seed config status %d: %s", rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodPost, "/api/rewrite", `{"text":"raw text","config_name":"primary"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeJSON[rewrite.Result](t, rec)
	if result.Text != "polished text" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestRewriteUnknownConfigName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/rewrite", `{"text":"raw","config_name":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRewriteMissingConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/rewrite", `{"text":"raw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
