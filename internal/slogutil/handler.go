// Package slogutil provides the slog handlers and helpers used by bugminer.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// shaKeys are attribute keys whose 40-character values are shortened in
// text output. JSON output keeps them whole.
var shaKeys = map[string]bool{"sha1": true, "from": true, "to": true, "ref": true, "startRef": true}

const shortSHA = 12

// TextHandler formats records as a single line:
// TIMESTAMP [level] Message | key=value key=value
type TextHandler struct {
	w     io.Writer
	level slog.Leveler
	// preset holds attrs added by WithAttrs, already rendered.
	preset string
	// prefix is the dotted group path applied to record attrs.
	prefix string
	mu     *sync.Mutex
}

// NewTextHandler creates a new text handler writing to w.
func NewTextHandler(w io.Writer, opts *slog.HandlerOptions) *TextHandler {
	h := &TextHandler{w: w, level: slog.LevelInfo, mu: &sync.Mutex{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(levelString(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)

	attrs := h.preset
	if r.NumAttrs() > 0 {
		var rb strings.Builder
		r.Attrs(func(a slog.Attr) bool {
			writeAttr(&rb, h.prefix, a)
			return true
		})
		attrs += rb.String()
	}
	if attrs != "" {
		b.WriteString(" |")
		b.WriteString(attrs)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.preset)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	clone := *h
	clone.preset = b.String()
	return &clone
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// writeAttr renders " key=value", flattening group values into dotted keys.
func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			writeAttr(b, inner, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Key, v))
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue renders v on one line. Strings with spaces are quoted and
// string slices are joined as [a,b].
func formatValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if shaKeys[key] && len(s) == 40 {
			return s[:shortSHA]
		}
		return quoteIfNeeded(s)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return strconv.Quote(x.Error())
		case []string:
			return "[" + quoteIfNeeded(strings.Join(x, ",")) + "]"
		}
	}
	return fmt.Sprint(v.Any())
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
