package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validation reports missing required fields as errors and everything softer
// (missing optional fields, format mismatches) as warnings.
type Validation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// TestResult is the outcome of a connection test. It is always returned by
// value; failures are carried in Errors rather than as a Go error.
type TestResult struct {
	Success    bool     `json:"success"`
	DurationMs int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Factory validates configurations and constructs adapters via the registry.
type Factory struct {
	registry *Registry
	logger   *slog.Logger
}

func NewFactory(log *slog.Logger, registry *Registry) *Factory {
	return &Factory{
		registry: registry,
		logger:   log.With(slog.String("service", "platform_factory")),
	}
}

// CreateAdapter builds an adapter for the platform key. The key is merged
// into the configuration under "platform" before construction.
func (f *Factory) CreateAdapter(key string, cfg Config) (Adapter, error) {
	build, ok := f.registry.builder(key)
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", key)
	}
	merged := cfg.Clone()
	merged["platform"] = normalizeKey(key)
	return build(merged)
}

// ValidateConfig checks the config against the platform descriptor. Missing
// required fields invalidate the config; missing optional fields and format
// mismatches only warn.
func (f *Factory) ValidateConfig(key string, cfg Config) Validation {
	desc, ok := f.registry.Descriptor(key)
	if !ok {
		return Validation{Errors: []string{fmt.Sprintf("unsupported platform: %s", key)}}
	}

	var v Validation
	for _, field := range desc.RequiredFields {
		if strings.TrimSpace(cfg.Get(field)) == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("missing required field: %s", field))
		}
	}
	for _, field := range desc.OptionalFields {
		if strings.TrimSpace(cfg.Get(field)) == "" {
			v.Warnings = append(v.Warnings, fmt.Sprintf("optional field not set: %s", field))
		}
	}
	for field, format := range desc.FieldFormats {
		value := strings.TrimSpace(cfg.Get(field))
		if value == "" || format.Prefix == "" {
			continue
		}
		if !strings.HasPrefix(value, format.Prefix) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: %s", field, format.Hint))
		}
	}
	v.IsValid = len(v.Errors) == 0
	return v
}

// TestConnection validates, constructs, and probes the platform. It never
// returns a Go error: every failure mode lands in the result.
func (f *Factory) TestConnection(ctx context.Context, key string, cfg Config) TestResult {
	start := time.Now()
	result := TestResult{}

	validation := f.ValidateConfig(key, cfg)
	result.Warnings = validation.Warnings
	if !validation.IsValid {
		result.Errors = validation.Errors
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	adapter, err := f.CreateAdapter(key, cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	if err := adapter.TestConnection(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Success = true
	}
	result.DurationMs = time.Since(start).Milliseconds()

	f.logger.Debug("connection test finished",
		slog.String("platform", normalizeKey(key)),
		slog.Bool("success", result.Success),
		slog.Int64("duration_ms", result.DurationMs))
	return result
}
