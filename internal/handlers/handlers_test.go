package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/config"
	"github.com/scribesync/scribesync/internal/kv"
	"github.com/scribesync/scribesync/internal/platform"
	"github.com/scribesync/scribesync/internal/rewrite"
	"github.com/scribesync/scribesync/internal/store"
)

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &testValidator{validate: validator.New()}
	return e
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter records written rows so tests can assert on sync calls.
type fakeAdapter struct {
	mu       sync.Mutex
	rows     []platform.Row
	writeErr error
	probeErr error
}

func (f *fakeAdapter) Key() string { return "fake" }

func (f *fakeAdapter) Descriptor() platform.Descriptor { return fakeDescriptor() }

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return f.probeErr }

func (f *fakeAdapter) WriteRecord(ctx context.Context, row platform.Row) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeAdapter) WriteRecords(ctx context.Context, rows []platform.Row) error {
	for _, row := range rows {
		if err := f.WriteRecord(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAdapter) written() []platform.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.Row, len(f.rows))
	copy(out, f.rows)
	return out
}

func fakeDescriptor() platform.Descriptor {
	return platform.Descriptor{
		Key:            "fake",
		DisplayName:    "Fake",
		RequiredFields: []string{"token"},
	}
}

func newFakeFactory(t *testing.T, adapter *fakeAdapter) (*platform.Registry, *platform.Factory) {
	t.Helper()
	reg := platform.NewRegistry()
	reg.MustRegister(fakeDescriptor(), func(cfg platform.Config) (platform.Adapter, error) {
		return adapter, nil
	})
	return reg, platform.NewFactory(testLogger(), reg)
}

type fixture struct {
	echo     *echo.Echo
	configs  *store.ModelConfigService
	records  *store.RecordService
	adapter  *fakeAdapter
	registry *platform.Registry
	factory  *platform.Factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testLogger()
	mem := kv.NewMemoryStore()
	adapter := &fakeAdapter{}
	reg, factory := newFakeFactory(t, adapter)
	f := &fixture{
		echo:     newTestEcho(),
		configs:  store.NewModelConfigService(log, mem),
		records:  store.NewRecordService(log, mem),
		adapter:  adapter,
		registry: reg,
		factory:  factory,
	}
	rewriter := rewrite.NewService(log, config.RewriteConfig{MaxRetries: 1, RetryBaseMs: 1})
	NewModelsHandler(log, f.configs).Register(f.echo)
	NewRecordsHandler(log, f.records, f.factory).Register(f.echo)
	NewRewriteHandler(log, rewriter, f.configs).Register(f.echo)
	NewMessageHandler(log, rewriter, f.configs, f.records, f.registry, f.factory).Register(f.echo)
	NewPlatformsHandler(log, f.registry, f.factory).Register(f.echo)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
