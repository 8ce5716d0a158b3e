// Package access implements the allow-list authorization gate and the
// audit sinks every decision is reported to.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/m3rciful/dirbot/internal/domain"
)

// AllowList is the static set of identities permitted to drive the bot.
type AllowList struct {
	ids     map[int64]struct{}
	handles map[string]struct{}
}

// NewAllowList builds an allow-list. Handles are compared lower-cased and
// without a leading '@'; zero ids and blank handles are ignored.
func NewAllowList(ids []int64, handles []string) AllowList {
	l := AllowList{
		ids:     make(map[int64]struct{}, len(ids)),
		handles: make(map[string]struct{}, len(handles)),
	}
	for _, id := range ids {
		if id != 0 {
			l.ids[id] = struct{}{}
		}
	}
	for _, h := range handles {
		if key := normalizeHandle(h); key != "" {
			l.handles[key] = struct{}{}
		}
	}
	return l
}

// Empty reports whether neither ids nor handles are configured.
func (l AllowList) Empty() bool {
	return len(l.ids) == 0 && len(l.handles) == 0
}

// Size returns the number of configured ids and handles.
func (l AllowList) Size() (ids, handles int) {
	return len(l.ids), len(l.handles)
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// IsAuthorized decides whether actor may proceed. An empty allow-list
// authorizes nobody.
func IsAuthorized(actor domain.Actor, list AllowList) bool {
	if list.Empty() {
		return false
	}
	if _, ok := list.ids[actor.ID]; ok {
		return true
	}
	if h := normalizeHandle(actor.Handle); h != "" {
		if _, ok := list.handles[h]; ok {
			return true
		}
	}
	return false
}

// Gate applies IsAuthorized and reports each decision to an audit sink.
// The decision is made synchronously; the report is written in the
// background so a slow sink never delays the reply.
type Gate struct {
	list AllowList
	sink *AsyncSink
	now  func() time.Time
}

// NewGate wires an allow-list to an audit sink. A nil sink falls back to
// LogSink. Call Close to flush pending entries.
func NewGate(list AllowList, sink Sink) *Gate {
	if sink == nil {
		sink = LogSink{}
	}
	async, ok := sink.(*AsyncSink)
	if !ok {
		async = NewAsyncSink(sink, 0, 0)
	}
	return &Gate{list: list, sink: async, now: time.Now}
}

// Authorize decides for actor and records the attempt under action.
func (g *Gate) Authorize(ctx context.Context, actor domain.Actor, action string) bool {
	allowed := IsAuthorized(actor, g.list)
	outcome := OutcomeAllowed
	if !allowed {
		outcome = OutcomeDenied
	}
	Report(ctx, g.sink, Entry{
		At:          g.now(),
		Action:      action,
		ActorID:     actor.ID,
		ActorHandle: actor.Handle,
		Outcome:     outcome,
	})
	return allowed
}

// Sink returns the non-blocking sink decisions are reported to.
func (g *Gate) Sink() Sink {
	return g.sink
}

// Close flushes pending audit entries.
func (g *Gate) Close() error {
	return g.sink.Close()
}
