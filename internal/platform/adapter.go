// Package platform dispatches table-sync operations to per-vendor adapters.
// Each adapter wraps one vendor's token exchange and table-write REST API
// behind a common interface; the factory validates configurations and builds
// adapter instances from a platform key.
package platform

import (
	"context"
	"time"
)

// Config is the raw per-platform configuration as supplied by the caller.
// Field names are vendor-specific and described by the platform Descriptor.
type Config map[string]string

// Get returns the trimmed value for a field, or "".
func (c Config) Get(field string) string {
	return c[field]
}

// Clone returns a shallow copy so builders can merge fields without mutating
// the caller's map.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FieldFormat is a soft-format expectation for a config field. Violations
// produce validation warnings, never errors.
type FieldFormat struct {
	Prefix string
	Hint   string
}

// Descriptor holds read-only metadata for a registered platform.
type Descriptor struct {
	Key            string                 `json:"key"`
	DisplayName    string                 `json:"display_name"`
	Description    string                 `json:"description"`
	RequiredFields []string               `json:"required_fields"`
	OptionalFields []string               `json:"optional_fields,omitempty"`
	FieldFormats   map[string]FieldFormat `json:"-"`
}

// Row is one table row to sync. Name is the upsert key on platforms that
// support a filtered lookup; elsewhere rows are appended.
type Row struct {
	Name          string
	SourceText    string
	RewrittenText string
	UpdatedAt     time.Time
}

// Adapter is a configured client for one platform's table API.
type Adapter interface {
	Key() string
	Descriptor() Descriptor
	// TestConnection performs a lightweight authenticated call to verify the
	// credentials and target table reachability.
	TestConnection(ctx context.Context) error
	WriteRecord(ctx context.Context, row Row) error
	WriteRecords(ctx context.Context, rows []Row) error
}

// Builder constructs an adapter from a validated configuration.
type Builder func(cfg Config) (Adapter, error)
