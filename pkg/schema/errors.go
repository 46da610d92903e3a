package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSchema reports a tool declaration that breaks the schema rules.
	ErrInvalidSchema = errors.New("invalid tool schema")
	// ErrMissingArgument matches every *MissingArgumentError.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrArgumentDecode matches every *DecodeError.
	ErrArgumentDecode = errors.New("invalid tool arguments")
)

// MissingArgumentError names the required argument that was not supplied
// and has no default.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument: %s", e.Name)
}

func (e *MissingArgumentError) Is(target error) bool { return target == ErrMissingArgument }

// DecodeError reports arguments that do not fit the tool's typed record.
type DecodeError struct {
	Tool string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrArgumentDecode }
