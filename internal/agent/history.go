// Package agent manages the conversational agents behind simulation entities:
// their endpoints, their chat histories, and concurrent planning requests.
package agent

import (
	"sort"
	"strings"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is one entry of a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatHistory is an ordered message log. It only grows through Append;
// PopLastExchange, Exclude and Replace are the compensating edits.
type ChatHistory struct {
	messages []Message
}

// NewChatHistory returns a history holding msgs.
func NewChatHistory(msgs ...Message) *ChatHistory {
	return &ChatHistory{messages: append([]Message(nil), msgs...)}
}

// Append adds messages to the end of the history.
func (h *ChatHistory) Append(msgs ...Message) {
	h.messages = append(h.messages, msgs...)
}

// Len returns the number of messages.
func (h *ChatHistory) Len() int { return len(h.messages) }

// Messages returns a copy of the history.
func (h *ChatHistory) Messages() []Message {
	return append([]Message(nil), h.messages...)
}

// Last returns the final message.
func (h *ChatHistory) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// PopLastExchange removes the trailing ai message and the human message
// directly before it.
//
// Postcondition: Returns the removed messages in history order; nothing is
// removed unless the history ends with an ai message.
func (h *ChatHistory) PopLastExchange() []Message {
	n := len(h.messages)
	if n == 0 || h.messages[n-1].Role != RoleAI {
		return nil
	}
	cut := n - 1
	if cut > 0 && h.messages[cut-1].Role == RoleHuman {
		cut--
	}
	removed := append([]Message(nil), h.messages[cut:]...)
	h.messages = h.messages[:cut]
	return removed
}

// Exclude drops every message whose content contains any of tags.
//
// Postcondition: Returns the number of messages dropped.
func (h *ChatHistory) Exclude(tags []string) int {
	if len(tags) == 0 {
		return 0
	}
	kept := h.messages[:0:0]
	for _, m := range h.messages {
		if containsAny(m.Content, tags) {
			continue
		}
		kept = append(kept, m)
	}
	dropped := len(h.messages) - len(kept)
	h.messages = kept
	return dropped
}

// Replace substitutes each literal key of replacements with its value in every
// message. Keys are applied in sorted order.
//
// Postcondition: Returns the number of messages changed.
func (h *ChatHistory) Replace(replacements map[string]string) int {
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	changed := 0
	for i, m := range h.messages {
		content := m.Content
		for _, k := range keys {
			content = strings.ReplaceAll(content, k, replacements[k])
		}
		if content != m.Content {
			h.messages[i].Content = content
			changed++
		}
	}
	return changed
}

func containsAny(s string, tags []string) bool {
	for _, t := range tags {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
