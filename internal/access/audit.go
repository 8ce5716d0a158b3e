package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/dirbot/core/logger"
	"github.com/m3rciful/dirbot/internal/domain"
)

// Audit outcomes.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Entry is one audit record.
type Entry struct {
	At          time.Time `db:"at"`
	Action      string    `db:"action"`
	ActorID     int64     `db:"actor_id"`
	ActorHandle string    `db:"actor_handle"`
	Target      string    `db:"target"`
	Outcome     string    `db:"outcome"`
	Detail      string    `db:"detail"`
}

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Report records e and logs sink failures instead of returning them. It
// blocks for as long as sink does; wrap slow sinks in an AsyncSink.
func Report(ctx context.Context, sink Sink, e Entry) {
	if sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := sink.Record(ctx, e); err != nil {
		logger.Error(ctx, "audit", "audit.sink_failed",
			slog.String("action", e.Action),
			slog.String("err", err.Error()),
		)
	}
}

// LogSink writes audit entries to the structured log.
type LogSink struct{}

// Record logs the entry under the audit component.
func (LogSink) Record(ctx context.Context, e Entry) error {
	level := slog.LevelInfo
	if e.Outcome == OutcomeDenied || e.Outcome == OutcomeFailed {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("op", e.Action),
		slog.String("decision", e.Outcome),
		slog.Int64("user_id", e.ActorID),
		slog.Time("at", e.At),
	}
	if e.ActorHandle != "" {
		actor := domain.Actor{ID: e.ActorID, Handle: e.ActorHandle}
		attrs = append(attrs, slog.String("actor", logger.SanitizeLimit(actor.String(), 96)))
	}
	if e.Target != "" {
		attrs = append(attrs, slog.String("account_id", logger.SanitizeLimit(e.Target, 256)))
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", logger.SanitizeLimit(e.Detail, 256)))
	}
	logger.Event(ctx, "audit", level, "audit.record", attrs...)
	return nil
}

const insertAuditQuery = `INSERT INTO audit_log (at, action, actor_id, actor_handle, target, outcome, detail)
VALUES (:at, :action, :actor_id, :actor_handle, :target, :outcome, :detail)`

// PostgresSink persists audit entries into the audit_log table.
type PostgresSink struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresSink returns a sink backed by db. Each insert is bounded by
// the default record timeout.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db, timeout: defaultRecordTimeout}
}

// Record inserts the entry.
func (s *PostgresSink) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return errors.New("audit: postgres sink not initialized")
	}
	e.At = e.At.UTC()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.db.NamedExecContext(ctx, insertAuditQuery, e); err != nil {
		return err
	}
	return nil
}

// MultiSink fans an entry out to every sink and joins their errors.
type MultiSink []Sink

// Record forwards e to all sinks.
func (m MultiSink) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
