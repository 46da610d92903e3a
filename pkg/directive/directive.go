// Package directive extracts tool invocations and completion markers from
// model-authored text.
package directive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Literals the model is instructed to emit.
const (
	InvokeHeading  = "[[[[INVOKE]]]]"
	DoneMarker     = "[[[[DONE]]]]"
	DocumentMarker = "[[[[DOCUMENT]]]]"
	OpenFence      = "```json"
	CloseFence     = "```"
)

var (
	// ErrParse matches every error returned by Parse.
	ErrParse = errors.New("invalid directive")

	ErrNoHeading     = parseError("no " + InvokeHeading + " heading")
	ErrNoOpenFence   = parseError("no " + OpenFence + " block after the heading")
	ErrNoCloseFence  = parseError("the " + OpenFence + " block is not closed")
	ErrNotObject     = parseError("the invocation is not a JSON object")
	ErrMultipleTools = parseError("the invocation must name exactly one tool")
)

type directiveError struct{ msg string }

func parseError(msg string) error { return &directiveError{msg: msg} }

func (e *directiveError) Error() string        { return e.msg }
func (e *directiveError) Is(target error) bool { return target == ErrParse }

// Invocation is one tool call requested by the model.
type Invocation struct {
	Tool      string
	Arguments json.RawMessage
}

// Parse extracts the invocation following the last heading in text. Earlier
// headings are ignored, so restated instructions or worked examples in the
// same turn do not shadow the real directive.
func Parse(text string) (Invocation, error) {
	at := strings.LastIndex(text, InvokeHeading)
	if at < 0 {
		return Invocation{}, ErrNoHeading
	}
	rest := text[at+len(InvokeHeading):]

	open := strings.Index(rest, OpenFence)
	if open < 0 {
		return Invocation{}, ErrNoOpenFence
	}
	body := rest[open+len(OpenFence):]

	end := strings.LastIndex(body, CloseFence)
	if end < 0 {
		return Invocation{}, ErrNoCloseFence
	}
	return decode([]byte(body[:end]))
}

func decode(block []byte) (Invocation, error) {
	block = bytes.TrimSpace(block)
	if len(block) == 0 || block[0] != '{' {
		return Invocation{}, ErrNotObject
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(block, &obj); err != nil {
		return Invocation{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if len(obj) != 1 {
		return Invocation{}, fmt.Errorf("%w (found %d)", ErrMultipleTools, len(obj))
	}

	var inv Invocation
	for name, args := range obj {
		inv.Tool = name
		inv.Arguments = bytes.TrimSpace(args)
	}
	if bytes.Equal(inv.Arguments, []byte("null")) {
		inv.Arguments = json.RawMessage("{}")
	}
	if len(inv.Arguments) == 0 || inv.Arguments[0] != '{' {
		return Invocation{}, fmt.Errorf("%w: arguments for %s", ErrNotObject, inv.Tool)
	}
	return inv, nil
}

// IsDone reports whether text ends with the completion marker.
func IsDone(text string) bool {
	return strings.HasSuffix(strings.TrimSpace(text), DoneMarker)
}

// IsDocument reports whether text carries a finished document section.
func IsDocument(text string) bool {
	return strings.Contains(text, DocumentMarker)
}

// Kind is what one model turn asks the loop to do next.
type Kind int

const (
	KindInvalid Kind = iota
	KindInvoke
	KindDone
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindInvoke:
		return "invoke"
	case KindDone:
		return "done"
	case KindDocument:
		return "document"
	default:
		return "invalid"
	}
}

// Classify decides how to answer a turn. A well-formed invocation wins over
// the completion marker, which wins over a document section. For
// KindInvalid the returned error explains what was wrong, so it can be
// handed back to the model.
func Classify(text string) (Kind, Invocation, error) {
	inv, err := Parse(text)
	if err == nil {
		return KindInvoke, inv, nil
	}
	switch {
	case IsDone(text):
		return KindDone, Invocation{}, nil
	case IsDocument(text):
		return KindDocument, Invocation{}, nil
	}
	return KindInvalid, Invocation{}, err
}
