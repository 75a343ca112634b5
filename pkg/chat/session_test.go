package chat_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selesy/x402-chat/pkg/chat"
)

type completionServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

func newCompletionServer(t *testing.T, status int, body string) *completionServer {
	t.Helper()

	srv := &completionServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			srv.mu.Lock()
			srv.requests = append(srv.requests, req)
			srv.mu.Unlock()
		}

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func (s *completionServer) lastRequest(t *testing.T) map[string]any {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.NotEmpty(t, s.requests)

	return s.requests[len(s.requests)-1]
}

const reply = "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n" +
	"data: [DONE]\n"

func fixedNow() time.Time {
	return time.UnixMilli(1_700_000_000_000)
}

func TestSession_Send(t *testing.T) {
	t.Parallel()

	t.Run("passes - reply streamed and saved", func(t *testing.T) {
		t.Parallel()

		srv := newCompletionServer(t, http.StatusOK, reply)
		db := openBolt(t)

		session := chat.NewSession(srv.Client(), db, srv.URL, "llama3.2", chat.WithSessionNowFunc(fixedNow))

		var streamed []string

		text, err := session.Send(t.Context(), "  Hi  ", func(token string) {
			streamed = append(streamed, token)
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello there", text)
		assert.Equal(t, []string{"Hello", " there"}, streamed)

		req := srv.lastRequest(t)
		assert.Equal(t, "llama3.2", req["model"])
		assert.Equal(t, true, req["stream"])
		assert.Len(t, req["messages"], 2)

		saved, err := db.Get(t.Context(), session.Current().ID)
		require.NoError(t, err)
		assert.Equal(t, "Hi", saved.Title)
		assert.Equal(t, fixedNow().UnixMilli(), saved.Timestamp)
		assert.Equal(t, []chat.Message{
			{Role: chat.RoleAssistant, Content: chat.Greeting},
			{Role: chat.RoleUser, Content: "Hi"},
			{Role: chat.RoleAssistant, Content: "Hello there"},
		}, saved.Messages)
	})

	t.Run("passes - conversation continues", func(t *testing.T) {
		t.Parallel()

		srv := newCompletionServer(t, http.StatusOK, reply)
		session := chat.NewSession(srv.Client(), openBolt(t), srv.URL, "llama3.2")

		_, err := session.Send(t.Context(), "first", nil)
		require.NoError(t, err)

		_, err = session.Send(t.Context(), "second", nil)
		require.NoError(t, err)

		assert.Len(t, srv.lastRequest(t)["messages"], 4)
		assert.Equal(t, "first", session.Current().Title)
	})

	t.Run("passes - empty reply not saved", func(t *testing.T) {
		t.Parallel()

		srv := newCompletionServer(t, http.StatusOK, "data: [DONE]\n")
		db := openBolt(t)
		session := chat.NewSession(srv.Client(), db, srv.URL, "llama3.2")

		text, err := session.Send(t.Context(), "Hi", nil)
		require.NoError(t, err)
		assert.Empty(t, text)

		chats, err := db.List(t.Context())
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("fails - unexpected status", func(t *testing.T) {
		t.Parallel()

		srv := newCompletionServer(t, http.StatusInternalServerError, "oops")
		db := openBolt(t)
		session := chat.NewSession(srv.Client(), db, srv.URL, "llama3.2")

		_, err := session.Send(t.Context(), "Hi", nil)
		require.ErrorIs(t, err, chat.ErrUnexpectedStatus)

		msgs := session.Current().Messages
		require.Len(t, msgs, 2)
		assert.Equal(t, chat.RoleUser, msgs[1].Role)

		chats, err := db.List(t.Context())
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("fails - empty message", func(t *testing.T) {
		t.Parallel()

		session := chat.NewSession(http.DefaultClient, openBolt(t), "http://localhost", "llama3.2")

		_, err := session.Send(t.Context(), "   ", nil)
		require.ErrorIs(t, err, chat.ErrEmptyMessage)
		assert.Len(t, session.Current().Messages, 1)
	})
}

func TestSession_Chats(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, http.StatusOK, reply)
	db := openBolt(t)

	session := chat.NewSession(srv.Client(), db, srv.URL, "llama3.2")
	assert.Equal(t, "New Chat", session.Current().Title)
	assert.Equal(t, []chat.Message{{Role: chat.RoleAssistant, Content: chat.Greeting}}, session.Current().Messages)

	_, err := session.Send(t.Context(), "Hi", nil)
	require.NoError(t, err)

	first := session.Current()

	history, err := session.History(t.Context())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)

	other := chat.NewSession(srv.Client(), db, srv.URL, "llama3.2")
	other.Load(history[0])
	assert.Equal(t, first, other.Current())

	require.NoError(t, other.Delete(t.Context(), first.ID))
	assert.Len(t, other.Current().Messages, 1)

	history, err = session.History(t.Context())
	require.NoError(t, err)
	assert.Empty(t, history)
}
