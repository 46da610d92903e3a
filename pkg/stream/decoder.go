// Package stream reassembles server-sent chat completion events into text.
package stream

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Protocol-Lattice/docent/pkg/logging"
)

// Markers wrapped around reasoning spans in the reassembled text.
const (
	ThinkOpen  = "<think>\n"
	ThinkClose = "</think>\n"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	reasoningPath = "choices.0.delta.reasoning_content"
	contentPath   = "choices.0.delta.content"
)

// Delta is one decoded increment. Either field may be empty.
type Delta struct {
	Reasoning string
	Content   string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger reports lines that fail to parse at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// Decoder turns a byte stream of "data: {...}" lines into ordered text.
// It is not safe for concurrent use; one Decoder serves one response.
type Decoder struct {
	onDelta     func(string)
	logger      *slog.Logger
	pending     []byte
	text        strings.Builder
	inReasoning bool
}

// NewDecoder returns a decoder that reports every text increment to onDelta
// as soon as it is decoded. onDelta may be nil.
func NewDecoder(onDelta func(string), opts ...Option) *Decoder {
	d := &Decoder{
		onDelta: onDelta,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Write consumes one chunk of the response body. A line left unterminated at
// the end of the chunk is held until the next Write or Flush.
func (d *Decoder) Write(chunk []byte) (int, error) {
	d.pending = append(d.pending, chunk...)
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		d.line(d.pending[:i])
		d.pending = d.pending[i+1:]
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return len(chunk), nil
}

// Flush decodes a trailing line that never received its newline.
func (d *Decoder) Flush() {
	if len(d.pending) > 0 {
		d.line(d.pending)
		d.pending = nil
	}
}

// Text returns everything emitted so far.
func (d *Decoder) Text() string { return d.text.String() }

// Apply feeds an already decoded delta through the reasoning state machine.
func (d *Decoder) Apply(delta Delta) {
	if delta.Reasoning != "" {
		if !d.inReasoning {
			d.emit(ThinkOpen)
			d.inReasoning = true
		}
		d.emit(delta.Reasoning)
	}
	if delta.Content != "" {
		if d.inReasoning {
			d.emit(ThinkClose)
			d.inReasoning = false
		}
		d.emit(delta.Content)
	}
}

func (d *Decoder) line(raw []byte) {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return
	}
	if !strings.HasPrefix(line, dataPrefix) {
		// event:, id:, retry: and comment lines carry no text
		if strings.HasPrefix(line, "{") {
			d.Apply(d.parse(line))
		}
		return
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == "" || payload == doneSentinel {
		return
	}
	d.Apply(d.parse(payload))
}

// ParseLine extracts the delta carried by one JSON event payload. Malformed
// input yields the zero Delta.
func ParseLine(payload string) (Delta, bool) {
	if !gjson.Valid(payload) {
		return Delta{}, false
	}
	res := gjson.GetMany(payload, reasoningPath, contentPath)
	return Delta{Reasoning: res[0].String(), Content: res[1].String()}, true
}

func (d *Decoder) parse(payload string) Delta {
	delta, ok := ParseLine(payload)
	if !ok {
		d.logger.Debug("skipping malformed stream line", "line", truncate(payload, 120))
	}
	return delta
}

func (d *Decoder) emit(s string) {
	d.text.WriteString(s)
	if d.onDelta != nil {
		d.onDelta(s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
