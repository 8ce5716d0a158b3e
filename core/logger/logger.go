package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/dirbot/core/buildinfo"
	coreconfig "github.com/m3rciful/dirbot/core/config"
)

const (
	defaultSampleKeep   = 1
	defaultSampleWindow = 50
)

var (
	initOnce sync.Once
	stopOnce sync.Once
	stopErr  error

	out     *asyncWriter
	closers []io.Closer

	levelVar    slog.LevelVar
	debugSample = newSampler(defaultSampleKeep, defaultSampleWindow)
	trace       bool

	// L is the base logger; package helpers fall back to it.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
)

// Until InitLogger runs, the package loggers write through slog.Default.
func init() {
	setBase(slog.Default())
}

func setBase(l *slog.Logger) {
	L = l
	TG = l.With("component", "tg")
	TWire = l.With("component", "tg.wire")
}

// settings is the resolved form of the logging section.
type settings struct {
	format       logFormat
	order        []string
	level        slog.Level
	sampleKeep   int
	sampleWindow int
	file         string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:       formatJSON,
		order:        defaultKeyOrder,
		level:        slog.LevelInfo,
		sampleKeep:   defaultSampleKeep,
		sampleWindow: defaultSampleWindow,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	profile := strings.ToLower(strings.TrimSpace(lc.Profile))

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if profile == "debug" || profile == "dev" {
			s.format = formatKV
		}
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if keep, window, ok := parseSampleRatio(lc.DebugSample); ok {
		s.sampleKeep, s.sampleWindow = keep, window
	}

	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger installs the structured logger as slog's default. Only the
// first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSample.configure(s.sampleKeep, s.sampleWindow)
		trace = envFlag("TRACE") || envFlag("LOG_TRACE")

		writers := []io.Writer{os.Stdout}
		if s.file != "" {
			f, openErr := openLogFile(s.file)
			if openErr != nil {
				err = openErr
				return
			}
			writers = append(writers, f)
			closers = append(closers, f)
		}
		out = newAsyncWriter(writers, 64*1024)

		base := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   out,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(base)
		setBase(base)
		logStartup(cfg)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

func logStartup(cfg *coreconfig.Config) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
	}
	if cfg != nil {
		profile := strings.ToLower(strings.TrimSpace(cfg.Logging.Profile))
		if profile == "" {
			profile = "prod"
		}
		host := ""
		if u, err := url.Parse(cfg.Directory.BaseURL); err == nil {
			host = u.Host
		}
		attrs = append(attrs,
			slog.String("cfg_profile", profile),
			slog.String("mode", cfg.Telegram.RunMode),
			slog.String("host", host),
		)
	}
	Info(context.Background(), "app", "startup", attrs...)
}

// Shutdown flushes buffered output and closes log files. Later calls
// return the first call's result.
func Shutdown() error {
	stopOnce.Do(func() {
		var errs []error
		if out != nil {
			errs = append(errs, out.Flush(), out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		stopErr = errors.Join(errs...)
	})
	return stopErr
}

// LogEvent writes event through logg, or the context logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs under the given component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return trace || debugSample.allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
