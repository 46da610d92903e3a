// Package logging builds the slog logger shared by the command and the
// library packages.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// New returns a tint-formatted logger writing to w. Errors are highlighted
// when color is enabled.
func New(w io.Writer, level slog.Level, color bool) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !color,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if err, ok := a.Value.Any().(error); ok && a.Value.Kind() == slog.KindAny {
				return tint.Attr(9, slog.String(a.Key, err.Error()))
			}
			return a
		},
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
