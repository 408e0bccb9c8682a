// Package prompt flattens an OpenAI-style message list into the single text
// prompt the code-assistant backend expects and packs it into the backend's
// base64 JSON envelope.
package prompt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// GenerationCue ends every prompt; the backend continues from it.
const GenerationCue = "Assistant:"

// ErrNoUserMessage means the message list has nothing for the backend to
// answer.
var ErrNoUserMessage = errors.New("no user messages provided")

// Build renders messages as role-prefixed lines and appends GenerationCue.
// Messages with empty content are skipped.
func Build(messages []Message) string {
	lines := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		lines = append(lines, formatLine(m.Role, string(m.Content)))
	}
	lines = append(lines, GenerationCue)
	return strings.Join(lines, "\n")
}

func formatLine(role, content string) string {
	switch role {
	case RoleSystem:
		return "System: " + content
	case RoleUser:
		return "User: " + content
	case RoleAssistant:
		// Fenced so earlier turns can't be mistaken for the live completion.
		return "Assistant: ##\n" + content + "\n##"
	default:
		return capitalize(role) + ": " + content
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// HasUserMessage reports whether at least one user message carries content.
func HasUserMessage(messages []Message) bool {
	for _, m := range messages {
		if m.Role == RoleUser && m.Content != "" {
			return true
		}
	}
	return false
}

// Validate returns ErrNoUserMessage unless HasUserMessage holds.
func Validate(messages []Message) error {
	if !HasUserMessage(messages) {
		return ErrNoUserMessage
	}
	return nil
}

type envelope struct {
	MessagePayload messagePayload `json:"message_payload"`
}

type messagePayload struct {
	Messages []envelopeMessage `json:"messages"`
}

type envelopeMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// EncodePayload wraps content in the backend envelope as a single USER
// message and base64-encodes its JSON. Non-string content is JSON-encoded
// into the content string first.
func EncodePayload(content any) (string, error) {
	var text string
	switch v := content.(type) {
	case string:
		text = v
	case Content:
		text = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("prompt: serialize content: %w", err)
		}
		text = string(b)
	}

	env := envelope{
		MessagePayload: messagePayload{
			Messages: []envelopeMessage{{Content: text, Role: "USER"}},
		},
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("prompt: marshal envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodePayload returns the content string packed by EncodePayload.
func DecodePayload(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("prompt: decode base64: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("prompt: unmarshal envelope: %w", err)
	}
	if len(env.MessagePayload.Messages) != 1 {
		return "", fmt.Errorf("prompt: expected 1 envelope message, got %d", len(env.MessagePayload.Messages))
	}
	return env.MessagePayload.Messages[0].Content, nil
}
