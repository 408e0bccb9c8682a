// Package adapter reshapes backend output into OpenAI response objects.
//
// The backend only returns complete generations, so streaming here is
// buffer-then-chunk: the full content must be in hand before Stream writes
// the first event. Clients get OpenAI-compatible SSE framing, not a faster
// first token.
package adapter

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultChunkSize  = 20
	DefaultChunkDelay = 10 * time.Millisecond
)

type Config struct {
	// Model is reported in every response regardless of what the client asked for.
	Model string
	// ChunkSize is the number of characters (runes) per streamed chunk.
	ChunkSize int
	// ChunkDelay is slept between chunks; zero disables it.
	ChunkDelay time.Duration
}

// Adapter is safe for concurrent use; it holds no mutable state.
type Adapter struct {
	cfg   Config
	now   func() time.Time
	newID func(prefix string) string
}

func New(cfg Config) *Adapter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	return &Adapter{
		cfg:   cfg,
		now:   time.Now,
		newID: randomID,
	}
}

func (a *Adapter) Model() string {
	return a.cfg.Model
}

// randomID is unique enough for log correlation within one process; it is
// not a global identifier.
func randomID(prefix string) string {
	return fmt.Sprintf("%s%08x", prefix, rand.Uint32())
}

// CountTokens approximates a token count as the number of
// whitespace-separated words.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

func usage(prompt, content string) Usage {
	p, c := CountTokens(prompt), CountTokens(content)
	return Usage{
		PromptTokens:     p,
		CompletionTokens: c,
		TotalTokens:      p + c,
	}
}

// ChatCompletion builds the single-shot chat response for content generated
// from prompt.
func (a *Adapter) ChatCompletion(prompt, content string) ChatCompletion {
	return ChatCompletion{
		ID:      a.newID("chatcmpl-"),
		Object:  ObjectChatCompletion,
		Created: a.now().Unix(),
		Model:   a.cfg.Model,
		Choices: []ChatChoice{{
			Message:      AssistantMessage{Role: "assistant", Content: content},
			Index:        0,
			FinishReason: FinishReasonStop,
		}},
		Usage: usage(prompt, content),
	}
}

// TextCompletion builds the legacy completion response, which carries the
// content as "text" instead of a message.
func (a *Adapter) TextCompletion(prompt, content string) TextCompletion {
	return TextCompletion{
		ID:      a.newID("cmpl-"),
		Object:  ObjectTextCompletion,
		Created: a.now().Unix(),
		Model:   a.cfg.Model,
		Choices: []TextChoice{{
			Text:         content,
			Index:        0,
			FinishReason: FinishReasonStop,
		}},
		Usage: usage(prompt, content),
	}
}

// Chunks yields content as ceil(runes/ChunkSize) chunks sharing id. Only the
// last chunk has a finish reason. Empty content yields nothing.
func (a *Adapter) Chunks(id, content string) iter.Seq[ChatCompletionChunk] {
	created := a.now().Unix()
	return func(yield func(ChatCompletionChunk) bool) {
		total := chunkCount(content, a.cfg.ChunkSize)
		i := 0
		for piece := range split(content, a.cfg.ChunkSize) {
			var finish *string
			if i == total-1 {
				stop := FinishReasonStop
				finish = &stop
			}
			chunk := ChatCompletionChunk{
				ID:      id,
				Object:  ObjectChatChunk,
				Created: created,
				Model:   a.cfg.Model,
				Choices: []ChunkChoice{{
					Delta:        Delta{Content: piece},
					Index:        0,
					FinishReason: finish,
				}},
			}
			if !yield(chunk) {
				return
			}
			i++
		}
	}
}

func chunkCount(s string, size int) int {
	n := utf8.RuneCountInString(s)
	return (n + size - 1) / size
}

// split yields consecutive substrings of s holding size runes each, the last
// one possibly shorter. Multi-byte characters are never cut.
func split(s string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(s) > 0 {
			end, runes := 0, 0
			for end < len(s) && runes < size {
				_, w := utf8.DecodeRuneInString(s[end:])
				end += w
				runes++
			}
			if !yield(s[:end]) {
				return
			}
			s = s[end:]
		}
	}
}
