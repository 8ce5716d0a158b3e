package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// sampler lets keep out of every window events through. A zero window
// disables sampling.
type sampler struct {
	keep   atomic.Uint64
	window atomic.Uint64
	seen   atomic.Uint64
}

func newSampler(keep, window int) *sampler {
	s := &sampler{}
	s.configure(keep, window)
	return s
}

func (s *sampler) configure(keep, window int) {
	if keep <= 0 || window <= 0 {
		keep, window = 0, 0
	}
	if keep > window {
		keep = window
	}
	s.keep.Store(uint64(keep))
	s.window.Store(uint64(window))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	window := s.window.Load()
	if window == 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%window < s.keep.Load()
}

// parseSampleRatio reads "k/n" or "n" (meaning 1/n). The boolean is false
// for malformed input.
func parseSampleRatio(raw string) (keep, window int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, false
	}
	k, n, found := strings.Cut(raw, "/")
	if !found {
		k, n = "1", raw
	}
	keep, err := strconv.Atoi(strings.TrimSpace(k))
	if err != nil {
		return 0, 0, false
	}
	window, err = strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return 0, 0, false
	}
	return keep, window, true
}

// Status maps an error to the status field value.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// Took is the elapsed time since start at millisecond precision.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were
// left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	limit = max(limit, 0)
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
