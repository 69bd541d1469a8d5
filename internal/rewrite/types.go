package rewrite

import (
	"errors"

	"github.com/scribesync/scribesync/internal/store"
)

var ErrUnsupportedVendor = errors.New("unsupported model vendor")

// Request asks for a rewrite of Text using the credentials and vendor in
// Config. Instruction optionally steers tone or style.
type Request struct {
	Text        string            `json:"text" validate:"required"`
	Instruction string            `json:"instruction,omitempty"`
	Config      store.ModelConfig `json:"config"`
}

// Usage mirrors the vendor's token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a completed rewrite.
type Result struct {
	Text   string          `json:"text"`
	Model  string          `json:"model"`
	Vendor store.ModelType `json:"vendor"`
	Usage  Usage           `json:"usage"`
}
