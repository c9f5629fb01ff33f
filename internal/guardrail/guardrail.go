// Package guardrail turns untrusted client conversation history into a
// bounded, well-typed message sequence that is safe to forward to the
// completion provider. Sanitize and Assemble are pure functions.
package guardrail

import (
	"encoding/json"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrInvalidPayload  = errors.New("no valid messages provided")
	ErrPayloadTooLarge = errors.New("message content too long")
)

// Message is one conversation turn. Client input may only carry user and
// assistant roles; the system role exists only after Assemble.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config bounds client-supplied history. Zero values are replaced by
// production defaults so a partially filled config stays safe.
type Config struct {
	MaxMessages     int
	MaxMessageChars int
	MaxTotalChars   int
	SystemPrompt    string
}

func (c Config) withDefaults() Config {
	if c.MaxMessages <= 0 {
		c.MaxMessages = 20
	}
	if c.MaxMessageChars <= 0 {
		c.MaxMessageChars = 1200
	}
	if c.MaxTotalChars <= 0 {
		c.MaxTotalChars = 8000
	}
	return c
}

// Sanitize filters, clips and windows the raw messages value from a request
// body.
//
// Elements that are not objects, carry a role outside {user, assistant}, or
// have non-string content are silently dropped; a client-supplied system
// message can therefore never reach the provider. Surviving contents are
// clipped to MaxMessageChars runes, then only the most recent MaxMessages
// entries are kept in their original order. A non-array value, or an empty
// result after filtering, yields ErrInvalidPayload. If the rune count of the
// retained contents exceeds MaxTotalChars the whole request is rejected with
// ErrPayloadTooLarge rather than trimmed further.
func Sanitize(cfg Config, raw json.RawMessage) ([]Message, error) {
	cfg = cfg.withDefaults()

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, ErrInvalidPayload
	}

	kept := make([]Message, 0, len(elements))
	for _, element := range elements {
		var msg struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(element, &msg); err != nil {
			continue
		}
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			continue
		}
		if msg.Content == nil {
			continue
		}
		kept = append(kept, Message{
			Role:    msg.Role,
			Content: clip(*msg.Content, cfg.MaxMessageChars),
		})
	}

	if len(kept) == 0 {
		return nil, ErrInvalidPayload
	}

	if len(kept) > cfg.MaxMessages {
		kept = kept[len(kept)-cfg.MaxMessages:]
	}

	total := 0
	for _, msg := range kept {
		total += len([]rune(msg.Content))
	}
	if total > cfg.MaxTotalChars {
		return nil, ErrPayloadTooLarge
	}

	return kept, nil
}

// Assemble prepends the configured system prompt to a sanitized history. The
// prompt is sourced only from server configuration, so the first element of
// the result is always the operator's instruction block.
func Assemble(cfg Config, sanitized []Message) []Message {
	assembled := make([]Message, 0, len(sanitized)+1)
	assembled = append(assembled, Message{Role: RoleSystem, Content: cfg.SystemPrompt})
	assembled = append(assembled, sanitized...)
	return assembled
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
