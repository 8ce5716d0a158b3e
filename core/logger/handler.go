package logger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one flat line per event. Groups
// become dotted key prefixes.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	jsonOut := h.cfg.format == formatJSON

	fields := make(fieldSet, 16)
	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = normalizeLevel(r.Level.String())
	if jsonOut {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		addAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})
	contextFields(ctx, fields)

	if rid := fields.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if jsonOut {
				fields.setDefault("rid_full", rid)
			}
			fields["rid"] = short
		}
	}
	if fields.str("event") == "" {
		fields["event"] = cmp.Or(r.Message, "unknown")
	}
	if fields.str("component") == "" {
		fields["component"] = "app"
	}
	normalizeFields(fields)
	fields.prune()

	var line []byte
	if jsonOut {
		var err error
		if line, err = encodeJSON(fields, h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = encodeKV(fields, h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(line)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a = slog.Attr{Key: h.prefix + "." + a.Key, Value: a.Value}
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func addAttr(fields fieldSet, prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			addAttr(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := plainValue(key, v); ok {
		fields[k] = val
	}
}

// plainValue converts v to a JSON friendly value. Durations are logged as
// whole milliseconds under a key ending in _ms.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

// normalizeFields maps enumerated values to their canonical spelling and
// masks credentials in free-text fields.
func normalizeFields(fields fieldSet) {
	fields["level"] = normalizeLevel(fields.str("level"))
	if s := fields.str("status"); s != "" {
		fields["status"], _ = normalizeStatus(s)
	}
	for key, normalize := range enumFields {
		v := fields.str(key)
		if v == "" {
			continue
		}
		if canonical, ok := normalize(v); ok {
			fields[key] = canonical
		} else {
			delete(fields, key)
		}
	}
	for _, key := range redactedFields {
		if s, ok := fields[key].(string); ok {
			fields[key] = Redact(s)
		}
	}
}

// enumFields are dropped when their value is outside the allowed set.
var enumFields = map[string]func(string) (string, bool){
	"outcome":  normalizeOutcome,
	"decision": normalizeDecision,
}

// redactedFields may carry request URLs or upstream error texts.
var redactedFields = []string{"err", "cause", "url"}

func contextFields(ctx context.Context, fields fieldSet) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		fields.setDefault("rid", rid)
	}
	if id := UserIDFrom(ctx); id != 0 {
		fields.setDefault("user_id", id)
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		fields.setDefault("update_id", int64(id))
	}
	if id := ChatIDFrom(ctx); id != 0 {
		fields.setDefault("chat_id", id)
	}
	if name := HandlerFrom(ctx); name != "" {
		fields.setDefault("handler", name)
	}
}
