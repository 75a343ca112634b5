package chat_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/selesy/x402-chat/pkg/chat"
)

func TestTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msgs []chat.Message
		exp  string
	}{
		{
			name: "no user message",
			msgs: []chat.Message{{Role: chat.RoleAssistant, Content: chat.Greeting}},
			exp:  "New Chat",
		},
		{
			name: "short first user message",
			msgs: []chat.Message{
				{Role: chat.RoleAssistant, Content: chat.Greeting},
				{Role: chat.RoleUser, Content: "Tell me a joke"},
				{Role: chat.RoleUser, Content: "Another one"},
			},
			exp: "Tell me a joke",
		},
		{
			name: "exactly thirty characters",
			msgs: []chat.Message{{Role: chat.RoleUser, Content: strings.Repeat("a", 30)}},
			exp:  strings.Repeat("a", 30),
		},
		{
			name: "long first user message",
			msgs: []chat.Message{{Role: chat.RoleUser, Content: "What is the airspeed velocity of an unladen swallow?"}},
			exp:  "What is the airspeed velocity ...",
		},
		{
			name: "multibyte characters",
			msgs: []chat.Message{{Role: chat.RoleUser, Content: strings.Repeat("é", 31)}},
			exp:  strings.Repeat("é", 30) + "...",
		},
	}

	for _, tt := range tests {
		t.Run("passes - "+tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.exp, chat.Title(tt.msgs))
		})
	}
}

func TestNewID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "981173106000", chat.NewID(time.Unix(981173106, 0)))
}
