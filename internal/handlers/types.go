package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"wca-openai-proxy/internal/prompt"
)

// Backend generates a completion for an encoded prompt envelope. The
// production implementation is *wca.Client; tests substitute a fake.
type Backend interface {
	Submit(ctx context.Context, payload string, attachments []string) (string, error)
}

// ChatRequest is the subset of the OpenAI chat request the proxy uses.
// Sampling parameters are accepted and ignored.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []prompt.Message `json:"messages"`
	Stream   bool             `json:"stream,omitempty"`
	// FileList names local files sent to the backend as attachments.
	FileList []string `json:"file_list,omitempty"`
}

// CompletionRequest is the legacy /v1/completions body.
type CompletionRequest struct {
	Model  string     `json:"model"`
	Prompt TextPrompt `json:"prompt"`
}

// TextPrompt accepts the legacy prompt as a string or an array of strings
// (joined by newlines).
type TextPrompt string

func (p *TextPrompt) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid prompt")
	}
	v := gjson.ParseBytes(data)
	switch {
	case v.Type == gjson.Null:
		*p = ""
	case v.Type == gjson.String:
		*p = TextPrompt(v.Str)
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if item.Type != gjson.String {
				return fmt.Errorf("prompt array must contain strings")
			}
			parts = append(parts, item.Str)
		}
		*p = TextPrompt(strings.Join(parts, "\n"))
	default:
		return fmt.Errorf("prompt must be a string or an array of strings")
	}
	return nil
}

var _ json.Unmarshaler = (*TextPrompt)(nil)

type ModelCard struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelCard `json:"data"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Model   string `json:"model,omitempty"`
	Message string `json:"message,omitempty"`
}
