package middleware

import (
	"context"
	"sync"

	tghelpers "github.com/m3rciful/dirbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// Counters tracks how many messages a handler sent or edited and
// whether any of them carried a keyboard.
type Counters struct {
	mu       sync.Mutex
	messages int
	keyboard bool
}

// Add records one outgoing message.
func (c *Counters) Add(hasKeyboard bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messages++
	c.keyboard = c.keyboard || hasKeyboard
	c.mu.Unlock()
}

// Snapshot returns the current values.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages, c.keyboard
}

type countersCtxKey struct{}

// WithCounters attaches counters to ctx.
func WithCounters(ctx context.Context, c *Counters) context.Context {
	return context.WithValue(ctx, countersCtxKey{}, c)
}

// Count records an outgoing message against the counters in ctx, if any.
// Senders that bypass tele.Context call it directly.
func Count(ctx context.Context, hasKeyboard bool) {
	if ctx == nil {
		return
	}
	if c, ok := ctx.Value(countersCtxKey{}).(*Counters); ok {
		c.Add(hasKeyboard)
	}
}

// metricsContext counts replies sent through tele.Context.
type metricsContext struct {
	tele.Context
	counters *Counters
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) count(err error, opts []interface{}) error {
	if err == nil {
		m.counters.Add(hasKeyboard(opts))
	}
	return err
}

func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware installs reply counters for the update, both
// on tele.Context and on the stored request context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &Counters{}
		c.Set(countersKey, counters)
		tghelpers.StoreContext(c, WithCounters(tghelpers.BuildContext(c), counters))
		return next(metricsContext{Context: c, counters: counters})
	}
}

// GetCounters reads the reply counters of the current update.
func GetCounters(c tele.Context) (int, bool) {
	counters, _ := c.Get(countersKey).(*Counters)
	return counters.Snapshot()
}
