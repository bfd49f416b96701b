package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
)

var (
	level      = new(slog.LevelVar)
	rootLogger *slog.Logger
)

func init() {
	if debug, _ := strconv.ParseBool(os.Getenv("TOMD_DEBUG")); debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	// Console output goes to stderr so stdout stays usable for piping artifacts.
	handlers := []slog.Handler{&lineHandler{mu: &sync.Mutex{}, w: os.Stderr, level: level, withColors: true}}
	if path := os.Getenv("TOMD_LOG_FILE"); path != "" {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			handlers = append(handlers, &lineHandler{mu: &sync.Mutex{}, w: file, level: slog.LevelDebug})
		} else {
			fmt.Fprintf(os.Stderr, "logger: cannot open %s: %v\n", path, err)
		}
	}
	rootLogger = slog.New(&fanoutHandler{handlers: handlers})
}

// GetLogger returns a logger tagged with the given module name.
func GetLogger(module string) *slog.Logger {
	return rootLogger.With("module", module)
}

// SetLevel changes the console level for every logger, including ones handed out earlier.
func SetLevel(l slog.Level) { level.Set(l) }

// ParseLevel accepts debug/info/warn/error, case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// lineHandler writes "[module] LEVEL: msg (k=v, ...) [15:04:05]".
type lineHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	level      slog.Leveler
	attrs      []slog.Attr
	group      string
	withColors bool
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func levelLabel(l slog.Level) (string, string) {
	switch {
	case l >= slog.LevelError:
		return colorRed, "ERROR"
	case l >= slog.LevelWarn:
		return colorYellow, "WARNING"
	case l >= slog.LevelInfo:
		return colorBlue, "INFO"
	default:
		return colorWhite, "DEBUG"
	}
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	color, label := levelLabel(record.Level)

	var module string
	var args []string
	collect := func(a slog.Attr) bool {
		if a.Key == "module" {
			module = a.Value.String()
			return true
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		args = append(args, key+"="+a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	var b strings.Builder
	if module != "" {
		if h.withColors {
			fmt.Fprintf(&b, "%s[%s]%s ", colorGray, module, colorReset)
		} else {
			fmt.Fprintf(&b, "[%s] ", module)
		}
	}
	if h.withColors {
		fmt.Fprintf(&b, "%s%s%s: %s", color, label, colorReset, record.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s", label, record.Message)
	}
	if len(args) > 0 {
		b.WriteString(" (" + strings.Join(args, ", ") + ")")
	}
	fmt.Fprintf(&b, " [%s]\n", record.Time.Format("15:04:05"))

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	clone := *h
	clone.attrs = merged
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	return &clone
}

type fanoutHandler struct{ handlers []slog.Handler }

func (f *fanoutHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
