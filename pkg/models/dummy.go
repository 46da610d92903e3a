package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/sjson"
)

// Dummy is an offline backend for tests and dry runs. It plays back scripted
// replies in order and, once they run out, echoes the last non-empty line of
// the latest message behind Prefix. Replies are delivered as event-stream
// lines so they pass through the same decoding path as a real server.
type Dummy struct {
	Prefix string

	mu       sync.Mutex
	replies  []string
	requests []Request
	models   []string
}

func NewDummy(prefix string, replies ...string) *Dummy {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &Dummy{Prefix: prefix, replies: replies, models: []string{"dummy"}}
}

// Requests returns every request received so far.
func (d *Dummy) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Request, len(d.requests))
	copy(out, d.requests)
	return out
}

func (d *Dummy) Stream(ctx context.Context, req Request, sink Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.requests = append(d.requests, Request{
		Config:   req.Config.Clone(),
		Messages: append([]Message(nil), req.Messages...),
	})
	var reply string
	if len(d.replies) > 0 {
		reply, d.replies = d.replies[0], d.replies[1:]
	} else {
		reply = fmt.Sprintf("%s %s", d.Prefix, lastLine(req.Messages))
	}
	d.mu.Unlock()

	line, err := sjson.Set(`{"choices":[{"delta":{}}]}`, "choices.0.delta.content", reply)
	if err != nil {
		return err
	}
	_, err = sink.Write([]byte("data: " + line + "\n\ndata: [DONE]\n\n"))
	return err
}

func lastLine(msgs []Message) string {
	if len(msgs) == 0 {
		return "<empty prompt>"
	}
	lines := strings.Split(msgs[len(msgs)-1].Content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			return candidate
		}
	}
	return "<empty prompt>"
}

func (d *Dummy) ListModels(context.Context) ([]string, error) {
	return append([]string(nil), d.models...), nil
}

var _ Backend = (*Dummy)(nil)
