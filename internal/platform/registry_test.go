package platform

import (
	"context"
	"testing"
)

type mockAdapter struct {
	key     string
	desc    Descriptor
	testErr error
	rows    []Row
}

func (a *mockAdapter) Key() string                              { return a.key }
func (a *mockAdapter) Descriptor() Descriptor                   { return a.desc }
func (a *mockAdapter) TestConnection(ctx context.Context) error { return a.testErr }
func (a *mockAdapter) WriteRecord(ctx context.Context, row Row) error {
	a.rows = append(a.rows, row)
	return nil
}
func (a *mockAdapter) WriteRecords(ctx context.Context, rows []Row) error {
	a.rows = append(a.rows, rows...)
	return nil
}

func mockDescriptor(key string) Descriptor {
	return Descriptor{
		Key:            key,
		DisplayName:    "Mock",
		RequiredFields: []string{"app_id", "app_secret"},
		OptionalFields: []string{"table_id"},
		FieldFormats: map[string]FieldFormat{
			"app_id": {Prefix: "cli_", Hint: "app_id usually starts with cli_"},
		},
	}
}

func newMockRegistry(t *testing.T, key string, build Builder) *Registry {
	t.Helper()
	reg := NewRegistry()
	if build == nil {
		build = func(cfg Config) (Adapter, error) {
			return &mockAdapter{key: key, desc: mockDescriptor(key)}, nil
		}
	}
	reg.MustRegister(mockDescriptor(key), build)
	return reg
}

func TestRegistryRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := newMockRegistry(t, "mock", nil)
	err := reg.Register(mockDescriptor("MOCK"), func(cfg Config) (Adapter, error) { return nil, nil })
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegistryRegisterRequiresKeyAndBuilder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Descriptor{}, func(cfg Config) (Adapter, error) { return nil, nil }); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := reg.Register(mockDescriptor("mock"), nil); err == nil {
		t.Fatal("expected error for nil builder")
	}
}

func TestRegistryIsSupported(t *testing.T) {
	t.Parallel()

	reg := newMockRegistry(t, "mock", nil)
	if !reg.IsSupported("mock") || !reg.IsSupported(" Mock ") {
		t.Fatal("expected mock to be supported regardless of case and spacing")
	}
	for _, key := range []string{"notion", "airtable", ""} {
		if reg.IsSupported(key) {
			t.Fatalf("expected %q to be unsupported", key)
		}
	}
}

func TestRegistryDescriptorsSorted(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, key := range []string{"wework", "dingtalk", "feishu"} {
		reg.MustRegister(mockDescriptor(key), func(cfg Config) (Adapter, error) { return nil, nil })
	}
	descs := reg.Descriptors()
	if len(descs) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descs))
	}
	if descs[0].Key != "dingtalk" || descs[1].Key != "feishu" || descs[2].Key != "wework" {
		t.Fatalf("expected sorted keys, got %v", reg.Keys())
	}
}
