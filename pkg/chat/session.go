package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/selesy/x402-chat/internal/observability"
	"github.com/selesy/x402-chat/pkg/stream"
)

// ErrEmptyMessage is returned when a blank message is sent.
var ErrEmptyMessage = errors.New("message must not be empty")

// ErrUnexpectedStatus is returned when the completion endpoint answers
// with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// SessionOption alters the defaults of a Session.
type SessionOption func(*Session)

func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

func WithSessionNowFunc(nowFunc func() time.Time) SessionOption {
	return func(s *Session) {
		s.nowFunc = nowFunc
	}
}

// Session is one conversation with a streamed completion endpoint.  Every
// turn that produces an assistant reply is saved to the Store.
//
// A Session is not safe for concurrent use.
type Session struct {
	client   *http.Client
	store    Store
	endpoint string
	model    string
	log      *slog.Logger
	nowFunc  func() time.Time

	chat Chat
}

// NewSession starts a new chat.  The client is expected to be able to pay
// for completions (see buyer.ClientForSigner).
func NewSession(client *http.Client, store Store, endpoint, model string, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		store:    store,
		endpoint: endpoint,
		model:    model,
		log:      observability.NewNoopLogger(),
		nowFunc:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.New()

	return s
}

// Current returns a copy of the chat in progress.
func (s *Session) Current() Chat {
	c := s.chat
	c.Messages = append([]Message(nil), s.chat.Messages...)

	return c
}

// New abandons the current chat and starts a fresh one.
func (s *Session) New() {
	s.chat = Chat{
		ID:       NewID(s.nowFunc()),
		Title:    defaultTitle,
		Messages: []Message{{Role: RoleAssistant, Content: Greeting}},
	}
}

// Load resumes a saved chat.
func (s *Session) Load(c Chat) {
	c.Messages = append([]Message(nil), c.Messages...)
	s.chat = c
}

// History lists saved chats, most recent first.
func (s *Session) History(ctx context.Context) ([]Chat, error) {
	return s.store.List(ctx)
}

// Delete removes a saved chat.  Deleting the chat in progress starts a
// new one.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.chat.ID == id {
		s.New()
	}

	return nil
}

// Send adds a user message to the chat, requests a streamed completion
// for the whole conversation and returns the assistant's reply.  onToken,
// if not nil, is called with each token as it arrives.
//
// When the request fails, the user message stays in the chat but no
// reply is added and nothing is saved.
func (s *Session) Send(ctx context.Context, text string, onToken func(string)) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	s.chat.Messages = append(s.chat.Messages, Message{Role: RoleUser, Content: text})

	reply, err := s.complete(ctx, onToken)
	if err != nil {
		return "", err
	}

	if reply == "" {
		s.log.Warn("completion produced no content", slog.String("chat", s.chat.ID))

		return "", nil
	}

	s.chat.Messages = append(s.chat.Messages, Message{Role: RoleAssistant, Content: reply})
	s.chat.Timestamp = s.nowFunc().UnixMilli()
	s.chat.Title = Title(s.chat.Messages)

	if err := s.store.Put(ctx, s.Current()); err != nil {
		return reply, fmt.Errorf("failed to save chat: %w", err)
	}

	return reply, nil
}

func (s *Session) complete(ctx context.Context, onToken func(string)) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:    s.model,
		Messages: s.chat.Messages,
		Stream:   true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Debug("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	dec := stream.NewDecoder(resp.Body, stream.WithLogger(s.log))

	var sb strings.Builder

	for token, err := range dec.Tokens() {
		if err != nil {
			return "", err
		}

		sb.WriteString(token)

		if onToken != nil {
			onToken(token)
		}
	}

	if n := dec.Skipped(); n > 0 {
		s.log.Debug("skipped unparseable stream fragments", slog.Int("count", n))
	}

	return sb.String(), nil
}
