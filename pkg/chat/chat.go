// Package chat keeps paid chat conversations: the messages exchanged with
// a completion endpoint and their persistence across sessions.
package chat

import (
	"strconv"
	"time"
	"unicode/utf8"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// Greeting is the assistant message every new chat starts with.
	Greeting = "Hello! I'm your AI assistant. How can I help you today?"

	defaultTitle   = "New Chat"
	maxTitleLength = 30
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is a saved conversation.  Timestamp is the unix time in
// milliseconds of the last save and orders chats by recency.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Timestamp int64     `json:"timestamp"`
}

// NewID returns the identifier of a chat started at now.
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// Title names a chat after its first user message, truncated to 30
// characters.
func Title(msgs []Message) string {
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}

		if utf8.RuneCountInString(m.Content) <= maxTitleLength {
			return m.Content
		}

		return string([]rune(m.Content)[:maxTitleLength]) + "..."
	}

	return defaultTitle
}
