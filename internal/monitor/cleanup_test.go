package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lavabot/internal/session"
)

func newTestCleanup() (*Cleanup, *fakeEngine, *session.Registry, *fakeTransport, *fakeScanner) {
	cfg := monitorTestConfig()
	eng := newFakeEngine()
	sessions := session.NewRegistry()
	transport := newFakeTransport()
	scanner := newFakeScanner()
	return NewCleanup(cfg, eng, sessions, transport, scanner), eng, sessions, transport, scanner
}

func TestSweepStaleUIDropsMissingMessage(t *testing.T) {
	c, _, sessions, transport, _ := newTestCleanup()

	s := sessions.GetOrCreate("g1", 70)
	ref, err := transport.Send("c1", nil)
	require.NoError(t, err)
	s.SetMessage(ref)

	c.SweepStaleUI()
	assert.NotNil(t, s.Message(), "live message survives the sweep")

	transport.forget(ref.MessageID)
	c.SweepStaleUI()
	assert.Nil(t, s.Message())
}

func TestSweepStaleUIDropsAgedMessage(t *testing.T) {
	c, _, sessions, transport, _ := newTestCleanup()
	c.cfg.StaleUIMaxAge = time.Millisecond

	s := sessions.GetOrCreate("g1", 70)
	ref, err := transport.Send("c1", nil)
	require.NoError(t, err)
	s.SetMessage(ref)

	time.Sleep(5 * time.Millisecond)
	c.SweepStaleUI()
	assert.Nil(t, s.Message(), "message past max age is dropped even while present")
}

func TestSweepStaleUISkipsSessionsWithoutMessage(t *testing.T) {
	c, _, sessions, _, _ := newTestCleanup()
	sessions.GetOrCreate("g1", 70)

	c.SweepStaleUI()

	_, ok := sessions.Get("g1")
	assert.True(t, ok)
}

func TestSweepOrphansRemovesVanishedGuild(t *testing.T) {
	c, eng, sessions, _, scanner := newTestCleanup()

	sessions.GetOrCreate("gone", 70)
	s := sessions.GetOrCreate("alive", 70)
	s.SetVoiceChannel("vc1", true)
	scanner.guilds["alive"] = true
	scanner.inChannel["alive/vc1"] = true

	c.SweepOrphans()

	_, ok := sessions.Get("gone")
	assert.False(t, ok)
	_, ok = sessions.Get("alive")
	assert.True(t, ok)
	assert.Equal(t, []string{"gone"}, eng.destroyedGuilds())
}

func TestSweepOrphansRemovesEvictedVoiceSession(t *testing.T) {
	c, eng, sessions, _, scanner := newTestCleanup()

	s := sessions.GetOrCreate("g1", 70)
	s.SetVoiceChannel("vc1", true)
	scanner.guilds["g1"] = true

	c.SweepOrphans()

	_, ok := sessions.Get("g1")
	assert.False(t, ok, "session whose voice channel the bot left is an orphan")
	assert.Equal(t, []string{"g1"}, eng.destroyedGuilds())
}

func TestSweepOrphansKeepsDisconnectedSessionInLiveGuild(t *testing.T) {
	c, eng, sessions, _, scanner := newTestCleanup()

	sessions.GetOrCreate("g1", 70)
	scanner.guilds["g1"] = true

	c.SweepOrphans()

	_, ok := sessions.Get("g1")
	assert.True(t, ok, "not voice-connected means the channel check does not apply")
	assert.Empty(t, eng.destroyedGuilds())
}

func TestCleanupStartStopIdempotent(t *testing.T) {
	c, _, _, _, _ := newTestCleanup()
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
	c.Start()
	c.Stop()
}
