package nowplaying

import (
	"reflect"
	"time"

	"lavabot/internal/session"
)

// Decision is the throttle gate's verdict for one refresh request.
type Decision int

const (
	// DecisionSkip drops the request: content identical, nothing to send.
	DecisionSkip Decision = iota
	// DecisionRenderNow allows an immediate transport edit.
	DecisionRenderNow
	// DecisionDefer coalesces the request into a trailing timer.
	DecisionDefer
)

// Gate decides whether a candidate render actually produces an outbound edit,
// based on elapsed time since the last one and structural content equality.
type Gate struct {
	Interval     time.Duration
	FastInterval time.Duration
}

func NewGate(interval, fastInterval time.Duration) *Gate {
	return &Gate{Interval: interval, FastInterval: fastInterval}
}

// Evaluate runs the candidate payload through the gate. Fast requests are
// never suppressed by content equality and wait only the short interval:
// a burst of button presses coalesces into one trailing edit instead of
// hammering the transport.
func (g *Gate) Evaluate(s *session.Session, candidate *Payload, fast bool) Decision {
	last, at := s.RenderCache()

	if !fast {
		if prev, ok := last.(*Payload); ok && payloadEqual(prev, candidate) {
			return DecisionSkip
		}
	}

	if time.Since(at) < g.window(fast) {
		return DecisionDefer
	}
	return DecisionRenderNow
}

// RemainingWait reports how long the trailing timer should sleep before the
// deferred refresh re-runs.
func (g *Gate) RemainingWait(s *session.Session, fast bool) time.Duration {
	_, at := s.RenderCache()
	rest := g.window(fast) - time.Since(at)
	if rest < 0 {
		rest = 0
	}
	return rest
}

func (g *Gate) window(fast bool) time.Duration {
	if fast {
		return g.FastInterval
	}
	return g.Interval
}

// payloadEqual is deep, order-sensitive structural equality.
func payloadEqual(a, b *Payload) bool {
	return reflect.DeepEqual(a, b)
}
