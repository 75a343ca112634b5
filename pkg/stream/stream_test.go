package stream_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/selesy/x402-chat/pkg/stream"
)

func TestDecoder_Tokens(t *testing.T) {
	t.Parallel()

	t.Run("passes - content then done", func(t *testing.T) {
		t.Parallel()

		body := "{\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n[DONE]\n"

		assert.Equal(t, []string{"Hi"}, tokens(t, stream.NewDecoder(strings.NewReader(body))))
	})

	t.Run("passes - malformed line skipped", func(t *testing.T) {
		t.Parallel()

		body := "not-json\n{\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n"
		dec := stream.NewDecoder(strings.NewReader(body))

		assert.Equal(t, []string{"Hi"}, tokens(t, dec))
		assert.Equal(t, 1, dec.Skipped())
	})

	t.Run("passes - empty and missing content skipped", func(t *testing.T) {
		t.Parallel()

		body := strings.Join([]string{
			`{"choices":[{"delta":{"content":""}}]}`,
			`{"choices":[{"delta":{}}]}`,
			`{"choices":[]}`,
			`{}`,
			`{"choices":[{"delta":{"content":"ok"}}]}`,
		}, "\n")
		dec := stream.NewDecoder(strings.NewReader(body))

		assert.Equal(t, []string{"ok"}, tokens(t, dec))
		assert.Equal(t, 0, dec.Skipped())
	})

	t.Run("passes - done ends only its own chunk", func(t *testing.T) {
		t.Parallel()

		r := &chunkReader{chunks: []string{
			"{\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n[DONE]\n{\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n",
			"{\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n",
		}}

		assert.Equal(t, []string{"a", "b"}, tokens(t, stream.NewDecoder(r)))
	})

	t.Run("passes - fragment split across chunks", func(t *testing.T) {
		t.Parallel()

		r := &chunkReader{chunks: []string{
			"{\"choices\":[{\"delta\":",
			"{\"content\":\"He\"}}]}\n{\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}",
			"\n",
		}}
		dec := stream.NewDecoder(r)

		assert.Equal(t, []string{"He", "llo"}, tokens(t, dec))
		assert.Equal(t, 0, dec.Skipped())
	})

	t.Run("passes - one byte reads", func(t *testing.T) {
		t.Parallel()

		body := "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\r\ndata: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}"
		dec := stream.NewDecoder(iotest.OneByteReader(strings.NewReader(body)), stream.WithChunkSize(1))

		assert.Equal(t, []string{"x", "y"}, tokens(t, dec))
	})

	t.Run("passes - consumer stops early", func(t *testing.T) {
		t.Parallel()

		body := "{\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n{\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"

		var got []string

		for token, err := range stream.NewDecoder(strings.NewReader(body)).Tokens() {
			require.NoError(t, err)

			got = append(got, token)

			break
		}

		assert.Equal(t, []string{"a"}, got)
	})

	t.Run("fails - read error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("connection reset")
		r := io.MultiReader(
			strings.NewReader("{\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"),
			iotest.ErrReader(errBoom),
		)

		text, err := stream.Collect(stream.NewDecoder(r))
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, "a", text)
	})
}

func TestCollect(t *testing.T) {
	t.Parallel()

	body := golden.Get(t, "completion.ndjson")

	text, err := stream.Collect(stream.NewDecoder(bytes.NewReader(body), stream.WithChunkSize(64)))
	require.NoError(t, err)

	golden.Assert(t, text, "completion.golden")
}

func tokens(t *testing.T, dec *stream.Decoder) []string {
	t.Helper()

	var out []string

	for token, err := range dec.Tokens() {
		require.NoError(t, err)

		out = append(out, token)
	}

	return out
}

// chunkReader returns one chunk per Read, as a network body does.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}

	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]

	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}

	return n, nil
}
