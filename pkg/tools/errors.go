package tools

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrToolBusy      = errors.New("tool is busy")
	ErrOutsideRoot   = errors.New("path is outside the workspace root")
	ErrNotText       = errors.New("file is not valid UTF-8 text")
	ErrFileTooLarge  = errors.New("file is too large")
)

// UnknownToolError names a tool the registry does not hold.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

func (e *UnknownToolError) Is(target error) bool { return target == ErrUnknownTool }
