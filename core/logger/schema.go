package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"error":        "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"denied":       "denied",
}

var allowedOutcome = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"cancelled":    "cancelled",
	"rate_limited": "rate_limited",
}

// allowedDecision mirrors the audit outcomes.
var allowedDecision = map[string]string{
	"allowed": "allowed",
	"denied":  "denied",
	"ok":      "ok",
	"failed":  "failed",
	"skipped": "skipped",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	return lookupEnum(allowedStatus, status, true)
}

func normalizeOutcome(outcome string) (string, bool) {
	return lookupEnum(allowedOutcome, outcome, false)
}

func normalizeDecision(decision string) (string, bool) {
	return lookupEnum(allowedDecision, decision, false)
}

// lookupEnum maps v through allowed. With keep set an unknown value is
// returned as is (but reported invalid).
func lookupEnum(allowed map[string]string, v string, keep bool) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	if mapped, ok := allowed[v]; ok {
		return mapped, true
	}
	if keep {
		return v, false
	}
	return "", false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"username",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"decision",
	"from",
	"to",
	"account_id",
	"cb_key",
	"outcome",
	"method",
	"path",
	"http_code",
	"duration_ms",
	"count",
	"total",
	"page",
	"pages",
	"messages",
	"kb",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
	"collapsed",
	"repeats",
	"pending_count",
}
