package store

import (
	"errors"
	"time"
)

// Storage keys for the two named collections. Each collection is a single
// JSON document; every mutation is a full read-modify-write.
const (
	keyModelConfigs   = "model_configs"
	keyRewriteRecords = "rewrite_records"
)

var ErrNotFound = errors.New("not found")

// ModelType identifies a rewrite model vendor.
type ModelType string

const (
	ModelTypeQwen     ModelType = "qwen"
	ModelTypeDeepSeek ModelType = "deepseek"
)

// ModelConfig is a named LLM credential set. Name is the unique key within
// the collection; saving a config with an existing name replaces it in place.
type ModelConfig struct {
	Name      string    `json:"name" validate:"required"`
	ModelType ModelType `json:"model_type" validate:"required"`
	APIKey    string    `json:"api_key" validate:"required"`
	BaseURL   string    `json:"base_url,omitempty"`
	Model     string    `json:"model,omitempty"`
}

func (c ModelConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.ModelType != ModelTypeQwen && c.ModelType != ModelTypeDeepSeek {
		return errors.New("invalid model type")
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	return nil
}

// RewriteRecord is a stored rewrite result, keyed by Name with the same
// replace-in-place semantics as ModelConfig.
type RewriteRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name" validate:"required"`
	SourceText    string    `json:"source_text"`
	RewrittenText string    `json:"rewritten_text"`
	ModelType     ModelType `json:"model_type,omitempty"`
	Platform      string    `json:"platform,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r RewriteRecord) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
