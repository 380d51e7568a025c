package nowplaying

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lavabot/internal/session"
)

func gateUnderTest() *Gate {
	return NewGate(3*time.Second, 250*time.Millisecond)
}

func TestGateFirstRenderPasses(t *testing.T) {
	s := session.New("g1", 70)
	p := RenderPayload(playingSnapshot())

	assert.Equal(t, DecisionRenderNow, gateUnderTest().Evaluate(s, p, false))
}

func TestGateSkipsIdenticalPayload(t *testing.T) {
	s := session.New("g1", 70)
	g := gateUnderTest()
	p := RenderPayload(playingSnapshot())

	s.SetRenderCache(p)
	assert.Equal(t, DecisionSkip, g.Evaluate(s, RenderPayload(playingSnapshot()), false))
}

func TestGateDefersInsideInterval(t *testing.T) {
	s := session.New("g1", 70)
	g := gateUnderTest()

	s.SetRenderCache(RenderPayload(playingSnapshot()))

	changed := playingSnapshot()
	changed.Position = 90 * time.Second

	assert.Equal(t, DecisionDefer, g.Evaluate(s, RenderPayload(changed), false))
}

func TestGateFastBypassesDiffAndLongInterval(t *testing.T) {
	s := session.New("g1", 70)
	g := NewGate(3*time.Second, time.Millisecond)

	s.SetRenderCache(RenderPayload(playingSnapshot()))
	time.Sleep(5 * time.Millisecond)

	// Identical payload, long interval not yet elapsed: a user action
	// still renders once the short window is over.
	assert.Equal(t, DecisionRenderNow, g.Evaluate(s, RenderPayload(playingSnapshot()), true))
}

func TestGateFastCoalescesInsideShortWindow(t *testing.T) {
	s := session.New("g1", 70)
	g := gateUnderTest()

	s.SetRenderCache(RenderPayload(playingSnapshot()))

	changed := playingSnapshot()
	changed.Position = 90 * time.Second

	assert.Equal(t, DecisionDefer, g.Evaluate(s, RenderPayload(changed), true))
}

func TestGateRendersAfterIntervalElapsed(t *testing.T) {
	s := session.New("g1", 70)
	g := NewGate(10*time.Millisecond, time.Millisecond)

	s.SetRenderCache(RenderPayload(playingSnapshot()))
	time.Sleep(20 * time.Millisecond)

	changed := playingSnapshot()
	changed.Position = 90 * time.Second

	assert.Equal(t, DecisionRenderNow, g.Evaluate(s, RenderPayload(changed), false))
}

func TestGateRemainingWaitBounded(t *testing.T) {
	s := session.New("g1", 70)
	g := gateUnderTest()

	s.SetRenderCache(RenderPayload(playingSnapshot()))
	wait := g.RemainingWait(s, false)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, g.Interval)

	fastWait := g.RemainingWait(s, true)
	assert.Greater(t, fastWait, time.Duration(0))
	assert.LessOrEqual(t, fastWait, g.FastInterval)

	stale := session.New("g2", 70)
	assert.Equal(t, time.Duration(0), g.RemainingWait(stale, false))
}
