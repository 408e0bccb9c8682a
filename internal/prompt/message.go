package prompt

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn as received from an OpenAI-style client.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content is the text of a message. On the wire it may be a string, null,
// or an array of content parts; only the text parts are kept, joined by
// newlines.
type Content string

func (c *Content) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid message content")
	}

	v := gjson.ParseBytes(data)
	switch {
	case v.Type == gjson.Null:
		*c = ""
	case v.Type == gjson.String:
		*c = Content(v.Str)
	case v.IsArray():
		var parts []string
		v.ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String {
				parts = append(parts, part.Str)
				return true
			}
			if part.Get("type").String() == "text" {
				parts = append(parts, part.Get("text").String())
			}
			return true
		})
		*c = Content(strings.Join(parts, "\n"))
	default:
		return fmt.Errorf("message content must be a string or an array of parts, got %s", v.Type)
	}
	return nil
}
