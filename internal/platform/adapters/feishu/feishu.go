// Package feishu syncs rewrite records into a Feishu (Lark) Bitable table.
// The lark SDK owns the tenant_access_token exchange and caching.
package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"

	"github.com/scribesync/scribesync/internal/platform"
)

// Key is the platform key for Feishu Bitable.
const Key = "feishu"

// Descriptor describes the Feishu platform for the factory.
func Descriptor() platform.Descriptor {
	return platform.Descriptor{
		Key:         Key,
		DisplayName: "Feishu Bitable",
		Description: "Writes rewrite records into a Feishu/Lark Bitable table.",
		RequiredFields: []string{
			"app_id", "app_secret", "app_token", "table_id",
		},
		OptionalFields: []string{
			"region", "name_field", "source_field", "rewritten_field", "updated_field",
		},
		FieldFormats: map[string]platform.FieldFormat{
			"app_id":    {Prefix: "cli_", Hint: "Feishu app ids usually start with cli_"},
			"app_token": {Prefix: "bascn", Hint: "Bitable app tokens usually start with bascn"},
		},
	}
}

// Register adds the Feishu platform to the registry.
func Register(reg *platform.Registry, log *slog.Logger) {
	reg.MustRegister(Descriptor(), func(cfg platform.Config) (platform.Adapter, error) {
		return NewAdapter(log, cfg)
	})
}

// Adapter writes rows to one Bitable table through an app-scoped lark client.
type Adapter struct {
	cfg    Config
	client *lark.Client
	logger *slog.Logger
}

func NewAdapter(log *slog.Logger, raw platform.Config) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		return nil, err
	}
	client := lark.NewClient(cfg.AppID, cfg.AppSecret, lark.WithOpenBaseUrl(cfg.openBaseURL()))
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: log.With(slog.String("adapter", Key)),
	}, nil
}

func (a *Adapter) Key() string {
	return Key
}

func (a *Adapter) Descriptor() platform.Descriptor {
	return Descriptor()
}

// TestConnection fetches the Bitable app metadata, which exercises both the
// token exchange and the app_token.
func (a *Adapter) TestConnection(ctx context.Context) error {
	req := larkbitable.NewGetAppReqBuilder().
		AppToken(a.cfg.AppToken).
		Build()
	resp, err := a.client.Bitable.V1.App.Get(ctx, req)
	if err != nil {
		return fmt.Errorf("feishu connection test: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("feishu connection test failed: %s (code: %d)", resp.Msg, resp.Code)
	}
	return nil
}

func (a *Adapter) fields(row platform.Row) map[string]interface{} {
	return map[string]interface{}{
		a.cfg.NameField:      row.Name,
		a.cfg.SourceField:    row.SourceText,
		a.cfg.RewrittenField: row.RewrittenText,
		a.cfg.UpdatedField:   row.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// findRecordID looks up an existing record whose name field equals row.Name.
func (a *Adapter) findRecordID(ctx context.Context, name string) (string, error) {
	filter := nameFilter(a.cfg.NameField, name)
	req := larkbitable.NewListAppTableRecordReqBuilder().
		AppToken(a.cfg.AppToken).
		TableId(a.cfg.TableID).
		Filter(filter).
		PageSize(1).
		Build()
	resp, err := a.client.Bitable.V1.AppTableRecord.List(ctx, req)
	if err != nil {
		return "", fmt.Errorf("feishu list records: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("feishu list records failed: %s (code: %d)", resp.Msg, resp.Code)
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return "", nil
	}
	item := resp.Data.Items[0]
	if item.RecordId == nil {
		return "", nil
	}
	return *item.RecordId, nil
}

// WriteRecord upserts by name: an existing record with the same name field is
// updated in place, otherwise a new record is created.
func (a *Adapter) WriteRecord(ctx context.Context, row platform.Row) error {
	recordID, err := a.findRecordID(ctx, row.Name)
	if err != nil {
		return err
	}

	record := larkbitable.NewAppTableRecordBuilder().
		Fields(a.fields(row)).
		Build()

	if recordID != "" {
		req := larkbitable.NewUpdateAppTableRecordReqBuilder().
			AppToken(a.cfg.AppToken).
			TableId(a.cfg.TableID).
			RecordId(recordID).
			AppTableRecord(record).
			Build()
		resp, err := a.client.Bitable.V1.AppTableRecord.Update(ctx, req)
		if err != nil {
			return fmt.Errorf("feishu update record: %w", err)
		}
		if !resp.Success() {
			return fmt.Errorf("feishu update record failed: %s (code: %d)", resp.Msg, resp.Code)
		}
		a.logger.Debug("record updated", slog.String("name", row.Name), slog.String("record_id", recordID))
		return nil
	}

	req := larkbitable.NewCreateAppTableRecordReqBuilder().
		AppToken(a.cfg.AppToken).
		TableId(a.cfg.TableID).
		AppTableRecord(record).
		Build()
	resp, err := a.client.Bitable.V1.AppTableRecord.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("feishu create record: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("feishu create record failed: %s (code: %d)", resp.Msg, resp.Code)
	}
	a.logger.Debug("record created", slog.String("name", row.Name))
	return nil
}

// WriteRecords writes rows one at a time so each keeps upsert semantics.
func (a *Adapter) WriteRecords(ctx context.Context, rows []platform.Row) error {
	for _, row := range rows {
		if err := a.WriteRecord(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// nameFilter builds the formula matching records whose name field equals
// value. Backslashes and quotes are escaped so every valid name matches only
// its own row.
func nameFilter(field, value string) string {
	return fmt.Sprintf("CurrentValue.[%s] = \"%s\"", field, escapeFilterValue(value))
}

func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
