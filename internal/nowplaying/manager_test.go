package nowplaying

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lavabot/internal/engine"
	"lavabot/internal/session"
)

func startPlayback(s *session.Session, titles ...string) {
	cur := sampleTrack(titles[0], "artist")
	s.SetPlayer(&fakePlayer{})
	s.SetNowPlaying(&cur)
	for _, title := range titles[1:] {
		s.Enqueue(500, sampleTrack(title, "artist"))
	}
}

func TestEnsureMessageCreatesOnceAndBindsCollector(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	ref, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.True(t, s.HasCollector())

	again, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	assert.Equal(t, ref.MessageID, again.MessageID)
	assert.Equal(t, 1, transport.sends)
}

func TestEnsureMessageRecreatesWhenAgedAndGone(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	ref, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	firstCollector := transport.collected[0]

	m.cfg.MessageStaleAge = 0
	transport.forget(ref.MessageID)

	again, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	assert.NotEqual(t, ref.MessageID, again.MessageID)
	assert.Equal(t, 2, transport.sends)
	assert.True(t, firstCollector.isStopped())
	assert.True(t, s.HasCollector())
}

func TestEnsureMessageKeepsAgedHandleWhileItExists(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	ref, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.cfg.MessageStaleAge = 0

	again, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	assert.Equal(t, ref.MessageID, again.MessageID)
	assert.Equal(t, 1, transport.sends)
	assert.Equal(t, 1, transport.existsCalls())
}

func TestEnsureMessageTrustsFreshHandleWithoutProbe(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	ref, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	// Deleted out from under us, but the handle is young: no per-refresh
	// existence probe fires. The next failing edit drops it instead.
	transport.forget(ref.MessageID)

	again, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)
	assert.Equal(t, ref.MessageID, again.MessageID)
	assert.Equal(t, 1, transport.sends)
	assert.Equal(t, 0, transport.existsCalls())
}

func TestRefreshSkipsIdenticalContent(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	require.NoError(t, m.Refresh(s, "chan", false))
	edits := transport.editCount()

	// Same snapshot, non-fast: nothing leaves the process.
	require.NoError(t, m.Refresh(s, "chan", false))
	assert.Equal(t, edits, transport.editCount())
}

func TestRefreshDropsHandleWhenEditReportsGone(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	transport.editErr = ErrNotFound
	require.NoError(t, m.Refresh(s, "chan", true))

	assert.Nil(t, s.Message())
	assert.False(t, s.HasCollector())
}

func TestStopRequestShowsConfirmRow(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.HandleAction(s, ActionStop)

	assert.True(t, s.ConfirmPending())
	last := transport.lastEditPayload()
	require.NotNil(t, last)
	row, ok := last.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	btn, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, ActionConfirmStop, btn.CustomID)

	// Playback itself is untouched until confirmed.
	assert.True(t, s.IsPlaying())
}

func TestConfirmStopTearsDownPlayback(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song", "next")
	player := s.Player().(*fakePlayer)

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.HandleAction(s, ActionStop)
	m.HandleAction(s, ActionConfirmStop)

	assert.False(t, s.ConfirmPending())
	assert.False(t, s.IsPlaying())
	assert.Nil(t, s.Current())
	assert.Equal(t, 0, s.QueueLen())
	assert.Nil(t, s.Message())
	assert.False(t, s.HasCollector())
	assert.Equal(t, 1, player.stopCount())

	last := transport.lastEditPayload()
	require.NotNil(t, last)
	assert.Contains(t, last.Embed.Title, "Stopped")
	assert.Empty(t, last.Components)
}

func TestCancelStopRestoresControls(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.HandleAction(s, ActionStop)
	require.True(t, s.ConfirmPending())

	m.HandleAction(s, ActionCancelStop)

	assert.False(t, s.ConfirmPending())
	assert.True(t, s.IsPlaying())

	last := transport.lastEditPayload()
	require.NotNil(t, last)
	row := last.Components[0].(discordgo.ActionsRow)
	btn := row.Components[0].(discordgo.Button)
	assert.Equal(t, ActionPrevious, btn.CustomID)
}

func TestConfirmTimeoutRestoresControls(t *testing.T) {
	m, transport, sessions := newTestManager()
	m.cfg.StopConfirmTimeout = 20 * time.Millisecond
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.HandleAction(s, ActionStop)
	require.True(t, s.ConfirmPending())

	assert.Eventually(t, func() bool { return !s.ConfirmPending() }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsPlaying())

	assert.Eventually(t, func() bool {
		last := transport.lastEditPayload()
		if last == nil || len(last.Components) == 0 {
			return false
		}
		row, ok := last.Components[0].(discordgo.ActionsRow)
		if !ok {
			return false
		}
		btn, ok := row.Components[0].(discordgo.Button)
		return ok && btn.CustomID == ActionPrevious
	}, time.Second, 5*time.Millisecond)
}

func TestConfirmPendingRefreshKeepsConfirmRow(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	m.HandleAction(s, ActionStop)

	// A position update arrives while confirmation is pending: the embed
	// refreshes but the confirm/cancel row stays.
	s.SetPosition(30 * time.Second)
	require.NoError(t, m.Refresh(s, "chan", true))

	last := transport.lastEditPayload()
	row := last.Components[0].(discordgo.ActionsRow)
	btn := row.Components[0].(discordgo.Button)
	assert.Equal(t, ActionConfirmStop, btn.CustomID)
}

func TestPerformStopIsIdempotent(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")
	player := s.Player().(*fakePlayer)

	require.NoError(t, m.PerformStop(context.Background(), s))
	require.NoError(t, m.PerformStop(context.Background(), s))

	assert.Equal(t, 2, player.stopCount())
	assert.Nil(t, s.Current())
	assert.Equal(t, 70, s.Volume())
}

func TestShuffleActionKeepsCurrentTrack(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song", "a", "b", "c")

	m.HandleAction(s, ActionShuffle)

	assert.Equal(t, "song", s.Current().Title)
	assert.Equal(t, 3, s.QueueLen())
}

func TestRefreshCoalescesRapidUserActions(t *testing.T) {
	cfg := testConfig()
	cfg.FastRefreshInterval = 30 * time.Millisecond
	transport := newFakeTransport()
	sessions := session.NewRegistry()
	m := NewManager(cfg, transport, sessions)

	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	// A burst of user actions inside the short window produces no
	// immediate edits, only one trailing edit once the window elapses.
	s.SetPosition(5 * time.Second)
	require.NoError(t, m.Refresh(s, "chan", true))
	s.SetPosition(10 * time.Second)
	require.NoError(t, m.Refresh(s, "chan", true))
	assert.Equal(t, 0, transport.editCount())

	assert.Eventually(t, func() bool { return transport.editCount() == 1 }, time.Second, 5*time.Millisecond)
	s.CancelAllTasks()
}

func TestCollectorEndStripsControls(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	_, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	transport.collected[0].onEnd()

	last := transport.lastEditPayload()
	require.NotNil(t, last)
	assert.Empty(t, last.Components)
	require.NotNil(t, last.Embed)
	assert.Contains(t, last.Embed.Title, "song")
}

func TestRepostDeletesAndResends(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")

	ref, err := m.EnsureMessage(s, "chan")
	require.NoError(t, err)

	require.NoError(t, m.Repost(s, "chan"))

	assert.Equal(t, 1, transport.deletes)
	assert.Equal(t, 2, transport.sends)
	assert.NotEqual(t, ref.MessageID, s.Message().MessageID)
}

func TestHandleTrackEndIgnoresReplacedReason(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song", "next")
	player := s.Player().(*fakePlayer)

	cur := s.Current()
	m.HandleTrackEnd("g1", cur, "replaced")

	// No advancement: the skip path already started the replacement.
	assert.Empty(t, player.playedTitles())
	assert.Equal(t, 1, s.QueueLen())
}

func TestHandleTrackEndAdvancesQueue(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song", "next")
	player := s.Player().(*fakePlayer)

	cur := s.Current()
	m.HandleTrackEnd("g1", cur, "finished")

	assert.Equal(t, []string{"next"}, player.playedTitles())
	assert.Equal(t, "next", s.Current().Title)
	assert.Equal(t, 1, s.HistoryLen())
}

func TestHandleTrackEndEmptyQueueStops(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	startPlayback(s, "song")
	player := s.Player().(*fakePlayer)

	cur := s.Current()
	m.HandleTrackEnd("g1", cur, "finished")

	assert.False(t, s.IsPlaying())
	assert.Nil(t, s.Current())
	assert.Equal(t, 1, player.stopCount())
}

func TestHandleTrackExceptionNotifiesChannel(t *testing.T) {
	m, transport, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	s.SetTextChannel("chan")
	startPlayback(s, "song")

	m.HandleTrackException("g1", s.Current(), "decode failure")

	require.Len(t, transport.texts, 1)
	assert.Contains(t, transport.texts[0], "song")
}

func TestHandleTrackStartInstallsTrackAndAutoRefresh(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	s.SetTextChannel("chan")
	s.SetPlayer(&fakePlayer{})

	track := sampleTrack("fresh", "artist")
	m.HandleTrackStart("g1", &track)

	assert.Equal(t, "fresh", s.Current().Title)
	assert.True(t, s.IsPlaying())
	assert.True(t, s.AutoRefreshRunning())
	s.CancelAllTasks()
}

func TestHandleTrackStartKeepsRequestTimeFields(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	s.SetTextChannel("chan")
	s.SetPlayer(&fakePlayer{})

	installed := engine.Track{
		Encoded:        "enc1",
		Identifier:     "id1",
		Title:          "Song",
		Author:         "Artist",
		RequestedAsURL: true,
	}
	s.SetNowPlaying(&installed)

	// The engine echoes the track back without request-time fields.
	wire := installed
	wire.RequestedAsURL = false
	m.HandleTrackStart("g1", &wire)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.True(t, cur.RequestedAsURL)
	assert.Equal(t, "Song", FormatTrackTitle(*cur, cur.RequestedAsURL))
	s.CancelAllTasks()
}

func TestHandleTrackStartInstallsUnrelatedTrack(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	s.SetPlayer(&fakePlayer{})

	old := engine.Track{Encoded: "enc1", Title: "Old", RequestedAsURL: true}
	s.SetNowPlaying(&old)

	next := engine.Track{Encoded: "enc2", Title: "New", Author: "Artist"}
	m.HandleTrackStart("g1", &next)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "New", cur.Title)
	assert.False(t, cur.RequestedAsURL)
	s.CancelAllTasks()
}

func TestHandleTrackEndPushesInstalledCopyToHistory(t *testing.T) {
	m, _, sessions := newTestManager()
	s := sessions.GetOrCreate("g1", 70)
	s.SetPlayer(&fakePlayer{})

	installed := engine.Track{
		Encoded:        "enc1",
		Identifier:     "id1",
		Title:          "Song",
		Author:         "Artist",
		RequestedAsURL: true,
	}
	s.SetNowPlaying(&installed)
	s.Enqueue(500, sampleTrack("next", "artist"))

	wire := installed
	wire.RequestedAsURL = false
	m.HandleTrackEnd("g1", &wire, "finished")

	h := s.History()
	require.Len(t, h, 1)
	assert.True(t, h[0].RequestedAsURL)
	assert.Equal(t, "next", s.Current().Title)
}

var _ engine.Player = (*fakePlayer)(nil)
var _ Transport = (*fakeTransport)(nil)
var _ TextNotifier = (*fakeTransport)(nil)
