package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/scribesync/scribesync/internal/kv"
)

// ModelConfigService provides CRUD-by-name operations over the stored model
// config collection.
type ModelConfigService struct {
	store  kv.Store
	logger *slog.Logger
}

func NewModelConfigService(log *slog.Logger, store kv.Store) *ModelConfigService {
	return &ModelConfigService{
		store:  store,
		logger: log.With(slog.String("service", "model_configs")),
	}
}

func (s *ModelConfigService) load(ctx context.Context) ([]ModelConfig, error) {
	raw, ok, err := s.store.Get(ctx, keyModelConfigs)
	if err != nil {
		return nil, fmt.Errorf("load model configs: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var configs []ModelConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode model configs: %w", err)
	}
	return configs, nil
}

func (s *ModelConfigService) persist(ctx context.Context, configs []ModelConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode model configs: %w", err)
	}
	if err := s.store.Set(ctx, keyModelConfigs, raw); err != nil {
		return fmt.Errorf("persist model configs: %w", err)
	}
	return nil
}

// Save upserts a config by name. An existing entry is replaced at its current
// position; a new one is appended.
func (s *ModelConfigService) Save(ctx context.Context, cfg ModelConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	configs, err := s.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range configs {
		if configs[i].Name == cfg.Name {
			configs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		configs = append(configs, cfg)
	}
	if err := s.persist(ctx, configs); err != nil {
		return err
	}
	s.logger.Debug("model config saved", slog.String("name", cfg.Name), slog.Bool("replaced", replaced))
	return nil
}

// List returns all stored configs in insertion order.
func (s *ModelConfigService) List(ctx context.Context) ([]ModelConfig, error) {
	return s.load(ctx)
}

// Get returns the config with the given name, or ErrNotFound.
func (s *ModelConfigService) Get(ctx context.Context, name string) (ModelConfig, error) {
	configs, err := s.load(ctx)
	if err != nil {
		return ModelConfig{}, err
	}
	for _, cfg := range configs {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return ModelConfig{}, fmt.Errorf("model config %q: %w", name, ErrNotFound)
}

// Delete removes exactly the named entries, leaving others untouched. Names
// without a stored entry are ignored; the return value counts the entries
// actually removed.
func (s *ModelConfigService) Delete(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	configs, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	kept := configs[:0]
	for _, cfg := range configs {
		if _, ok := drop[cfg.Name]; !ok {
			kept = append(kept, cfg)
		}
	}
	removed := len(configs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Debug("model configs deleted", slog.Int("removed", removed))
	return removed, nil
}
