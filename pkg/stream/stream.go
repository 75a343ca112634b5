// Package stream decodes the incremental body of a streamed chat
// completion into text tokens.
//
// The body is a sequence of newline separated fragments.  Each fragment
// is either the sentinel [DONE] or a JSON document shaped like
//
//	{"choices":[{"delta":{"content":"..."}}]}
//
// optionally preceded by a server-sent events "data:" field name.
// Fragments that can't be parsed are logged and skipped.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/selesy/x402-chat/internal/observability"
)

// Done is the fragment a server sends after the last token.
const Done = "[DONE]"

const (
	dataPrefix = "data:"

	defaultChunkSize = 4096
)

type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Option alters the behavior of a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger that records skipped fragments.
func WithLogger(log *slog.Logger) Option {
	return func(d *Decoder) {
		d.log = log
	}
}

// WithChunkSize sets the size of the buffer each read from the body is
// made with.
func WithChunkSize(size int) Option {
	return func(d *Decoder) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// Decoder turns a completion stream into tokens.  A Decoder reads from
// its io.Reader as tokens are requested and can't be rewound.
type Decoder struct {
	r         io.Reader
	log       *slog.Logger
	chunkSize int
	skipped   int
}

func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		r:         r,
		log:       observability.NewNoopLogger(),
		chunkSize: defaultChunkSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Skipped returns the number of non-blank fragments that couldn't be
// parsed so far.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Tokens returns the sequence of content tokens in the stream.  A read
// error is yielded once, with an empty token, and ends the sequence.
//
// The sequence reads the body chunk by chunk.  A [DONE] fragment ends the
// processing of the chunk it arrived in; reading continues until the body
// is exhausted.  A fragment split across chunks is joined before parsing.
func (d *Decoder) Tokens() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buf := make([]byte, d.chunkSize)

		var pending []byte

		for {
			n, err := d.r.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)

				idx := bytes.LastIndexByte(pending, '\n')
				if idx >= 0 {
					lines := string(pending[:idx])
					pending = append(pending[:0], pending[idx+1:]...)

					if !d.emitLines(lines, yield) {
						return
					}
				}
			}

			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					d.emitLines(string(pending), yield)
				}

				return
			}

			if err != nil {
				yield("", err)

				return
			}
		}
	}
}

// emitLines yields the tokens of each complete line in a chunk.  It
// returns false when the consumer stopped iterating.
func (d *Decoder) emitLines(lines string, yield func(string, error) bool) bool {
	for _, line := range strings.Split(lines, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if line == Done {
			break
		}

		token, ok := d.parse(line)
		if !ok {
			continue
		}

		if !yield(token, nil) {
			return false
		}
	}

	return true
}

func (d *Decoder) parse(line string) (string, bool) {
	var c chunk
	if err := json.Unmarshal([]byte(line), &c); err != nil {
		d.skipped++
		d.log.Debug("Skipping unparseable chunk", slog.String("line", line), slog.Any("error", err))

		return "", false
	}

	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil || *c.Choices[0].Delta.Content == "" {
		return "", false
	}

	return *c.Choices[0].Delta.Content, true
}

// Collect reads the whole stream and returns the concatenated tokens.  The
// text decoded before a read error is returned along with the error.
func Collect(d *Decoder) (string, error) {
	var sb strings.Builder

	for token, err := range d.Tokens() {
		if err != nil {
			return sb.String(), err
		}

		sb.WriteString(token)
	}

	return sb.String(), nil
}
