package nowplaying

import (
	"context"
	"log"

	"lavabot/internal/engine"
	"lavabot/internal/session"
)

// Engine event reactions. The bot's event loop routes guild-scoped engine
// events here; node-scoped events go to the reconnect monitor.

func (m *Manager) HandleTrackStart(guildID string, track *engine.Track) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return
	}
	s.SetNowPlaying(reconcileTrack(s, track))
	if err := m.Refresh(s, "", true); err != nil {
		log.Printf("[WARN] [UI] Track-start refresh failed for guild %s: %v", guildID, err)
	}
	m.StartAutoRefresh(s)
}

// HandleTrackEnd advances the queue when a track finished on its own. Tracks
// replaced by skip/previous and explicit stops are already handled where
// they were triggered.
func (m *Manager) HandleTrackEnd(guildID string, track *engine.Track, reason string) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return
	}
	switch reason {
	case "replaced", "stopped", "cleanup":
		return
	}

	if track != nil {
		s.PushHistory(*reconcileTrack(s, track), m.cfg.MaxHistorySize)
	}

	if s.QueueLen() == 0 {
		m.HandleQueueEnd(guildID)
		return
	}
	if err := m.PlayNext(context.Background(), s); err != nil {
		log.Printf("[ERR] [Player] Failed to advance queue for guild %s: %v", guildID, err)
		m.HandleQueueEnd(guildID)
	}
}

// HandleQueueEnd resets the session to the stopped state once nothing is
// left to play.
func (m *Manager) HandleQueueEnd(guildID string) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return
	}
	log.Printf("[INFO] [Player] Queue ended for guild %s", guildID)
	if err := m.PerformStop(context.Background(), s); err != nil {
		log.Printf("[ERR] [Player] Queue-end stop failed for guild %s: %v", guildID, err)
	}
}

// HandleTrackException reports the failure as a plain chat message, distinct
// from the persistent status message, and lets the subsequent track-end
// event drive the queue forward.
func (m *Manager) HandleTrackException(guildID string, track *engine.Track, reason string) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return
	}
	title := "track"
	if track != nil {
		title = track.Title
	}
	log.Printf("[WARN] [Player] Track exception for guild %s (%s): %s", guildID, title, reason)

	if notifier, ok := m.transport.(TextNotifier); ok && s.TextChannel() != "" {
		if err := notifier.SendText(s.TextChannel(), "⚠️ Failed to play **"+title+"**, skipping."); err != nil {
			log.Printf("[DEBUG] [UI] Failed to send exception notice for guild %s: %v", guildID, err)
		}
	}
}

// reconcileTrack prefers the session's installed copy when an engine event
// refers to the track already current. Wire-decoded tracks lack request-time
// fields such as RequestedAsURL, so overwriting blindly would change how
// the title renders mid-playback.
func reconcileTrack(s *session.Session, track *engine.Track) *engine.Track {
	if track == nil {
		return nil
	}
	cur := s.Current()
	if cur != nil && sameTrack(cur, track) {
		copied := *cur
		return &copied
	}
	copied := *track
	return &copied
}

func sameTrack(a, b *engine.Track) bool {
	if a.Encoded != "" && b.Encoded != "" {
		return a.Encoded == b.Encoded
	}
	return a.Identifier != "" && a.Identifier == b.Identifier
}

// TextNotifier is the optional transport capability for plain one-off chat
// notices.
type TextNotifier interface {
	SendText(channelID, content string) error
}
