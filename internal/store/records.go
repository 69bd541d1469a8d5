package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribesync/scribesync/internal/kv"
)

// RecordService stores rewrite results keyed by name.
type RecordService struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRecordService(log *slog.Logger, store kv.Store) *RecordService {
	return &RecordService{
		store:  store,
		logger: log.With(slog.String("service", "rewrite_records")),
		now:    time.Now,
	}
}

func (s *RecordService) load(ctx context.Context) ([]RewriteRecord, error) {
	raw, ok, err := s.store.Get(ctx, keyRewriteRecords)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var records []RewriteRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (s *RecordService) persist(ctx context.Context, records []RewriteRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.store.Set(ctx, keyRewriteRecords, raw); err != nil {
		return fmt.Errorf("persist records: %w", err)
	}
	return nil
}

// Save upserts a record by name, refreshing UpdatedAt. A replaced entry keeps
// its original ID and position; a new entry gets a generated ID.
func (s *RecordService) Save(ctx context.Context, rec RewriteRecord) (RewriteRecord, error) {
	if err := rec.Validate(); err != nil {
		return RewriteRecord{}, fmt.Errorf("validation failed: %w", err)
	}
	records, err := s.load(ctx)
	if err != nil {
		return RewriteRecord{}, err
	}
	rec.UpdatedAt = s.now().UTC()
	replaced := false
	for i := range records {
		if records[i].Name == rec.Name {
			if rec.ID == "" {
				rec.ID = records[i].ID
			}
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		records = append(records, rec)
	}
	if err := s.persist(ctx, records); err != nil {
		return RewriteRecord{}, err
	}
	s.logger.Debug("record saved", slog.String("name", rec.Name), slog.Bool("replaced", replaced))
	return rec, nil
}

// List returns all stored records in insertion order.
func (s *RecordService) List(ctx context.Context) ([]RewriteRecord, error) {
	return s.load(ctx)
}

// Get returns the record with the given name, or ErrNotFound.
func (s *RecordService) Get(ctx context.Context, name string) (RewriteRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return RewriteRecord{}, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, nil
		}
	}
	return RewriteRecord{}, fmt.Errorf("record %q: %w", name, ErrNotFound)
}

// Delete removes a single record by name. Deleting an absent name is a no-op.
func (s *RecordService) Delete(ctx context.Context, name string) error {
	_, err := s.DeleteMany(ctx, []string{name})
	return err
}

// DeleteMany removes exactly the named records, leaving others untouched.
// The return value counts the records actually removed.
func (s *RecordService) DeleteMany(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	records, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	kept := records[:0]
	for _, rec := range records {
		if _, ok := drop[rec.Name]; !ok {
			kept = append(kept, rec)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Debug("records deleted", slog.Int("removed", removed))
	return removed, nil
}

// MarkSynced stamps the record with the platform it was last written to.
func (s *RecordService) MarkSynced(ctx context.Context, name, platform string) (RewriteRecord, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return RewriteRecord{}, err
	}
	rec.Platform = platform
	return s.Save(ctx, rec)
}
