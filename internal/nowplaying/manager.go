package nowplaying

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/config"
	"lavabot/internal/session"
)

// Manager owns the lifecycle of the single status message per session:
// creation, recreation after loss, button dispatch and the confirm-stop
// sub-flow.
type Manager struct {
	cfg       *config.Config
	transport Transport
	safe      *SafeTransport
	gate      *Gate
	sessions  *session.Registry
}

func NewManager(cfg *config.Config, transport Transport, sessions *session.Registry) *Manager {
	return &Manager{
		cfg:       cfg,
		transport: transport,
		safe:      NewSafeTransport(transport),
		gate:      NewGate(cfg.UIRefreshInterval, cfg.FastRefreshInterval),
		sessions:  sessions,
	}
}

// Sessions exposes the live registry to command handlers.
func (m *Manager) Sessions() *session.Registry {
	return m.sessions
}

// EnsureMessage returns the live status message handle, recreating it when
// the cached one aged past the stale window and is verified gone. Handles
// inside the window are trusted without a REST probe; a deletion there
// surfaces as not-found on the next edit, which drops the handle. A fresh
// message always gets a fresh collector; the previous one is discarded
// first.
func (m *Manager) EnsureMessage(s *session.Session, channelID string) (*session.MessageRef, error) {
	if s == nil {
		return nil, nil
	}
	if channelID != "" {
		s.SetTextChannel(channelID)
	}

	if ref := s.Message(); ref != nil {
		if s.MessageAge() < m.cfg.MessageStaleAge || m.transport.Exists(ref) {
			return ref, nil
		}
		log.Printf("[INFO] [UI] Stale status message for guild %s, recreating", s.GuildID)
		s.StopCollector()
		s.DropMessage()
	}

	payload := RenderPayload(s.Snapshot())
	ref, err := m.transport.Send(s.TextChannel(), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to send status message: %w", err)
	}
	s.SetMessage(ref)
	s.SetRenderCache(payload)

	collector, err := m.transport.Collect(ref,
		func(action string) { m.HandleAction(s, action) },
		func() { m.onCollectorEnd(s) },
	)
	if err != nil {
		log.Printf("[WARN] [UI] Failed to bind collector for guild %s: %v", s.GuildID, err)
	} else {
		s.SetCollector(collector)
	}
	return ref, nil
}

// Refresh reconciles the status message with the current session state. Fast
// refreshes (direct user actions) skip the diff and wait only the short
// throttle window.
func (m *Manager) Refresh(s *session.Session, channelID string, fast bool) error {
	if s == nil {
		return nil
	}
	candidate := RenderPayload(s.Snapshot())

	switch m.gate.Evaluate(s, candidate, fast) {
	case DecisionSkip:
		return nil
	case DecisionDefer:
		s.SchedulePendingRefresh(m.gate.RemainingWait(s, fast), func() {
			if err := m.Refresh(s, channelID, fast); err != nil {
				log.Printf("[WARN] [UI] Deferred refresh failed for guild %s: %v", s.GuildID, err)
			}
		})
		return nil
	}

	ref, err := m.EnsureMessage(s, channelID)
	if err != nil || ref == nil {
		return err
	}

	// While a stop confirmation is pending only the embed may change; the
	// confirm/cancel row stays intact.
	sent := candidate
	if s.ConfirmPending() {
		sent = &Payload{Embed: candidate.Embed, Components: RenderConfirmStop()}
	}

	gone, err := m.safe.Edit(ref, sent)
	if gone {
		s.StopCollector()
		s.DropMessage()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to edit status message: %w", err)
	}
	s.SetRenderCache(sent)
	return nil
}

// HandleAction dispatches one button press. Every case catches and logs its
// own failure; one failing press never breaks subsequent ones.
func (m *Manager) HandleAction(s *session.Session, action string) {
	if s == nil {
		return
	}
	ctx := context.Background()

	var err error
	switch action {
	case ActionStop:
		err = m.handleStopRequest(s)
	case ActionConfirmStop:
		err = m.handleConfirmStop(ctx, s)
	case ActionCancelStop:
		err = m.handleCancelStop(s)
	case ActionPrevious:
		err = m.handlePrevious(ctx, s)
	case ActionPlayPause:
		err = m.handlePlayPause(ctx, s)
	case ActionSkip:
		err = m.handleSkip(ctx, s)
	case ActionShuffle:
		err = m.handleShuffle(s)
	default:
		log.Printf("[WARN] [UI] Unknown control action %q for guild %s", action, s.GuildID)
		return
	}
	if err != nil {
		log.Printf("[ERR] [UI] Action %s failed for guild %s: %v", action, s.GuildID, err)
	}
}

// handleStopRequest swaps the controls for a confirm/cancel row and arms the
// timer that restores the normal controls if neither is pressed.
func (m *Manager) handleStopRequest(s *session.Session) error {
	ref := s.Message()
	if ref == nil {
		return nil
	}
	snap := s.Snapshot()
	embed := RenderNowPlaying(snap)
	if embed == nil {
		embed = RenderStopped().Embed
	}
	gone, err := m.safe.Edit(ref, &Payload{Embed: embed, Components: RenderConfirmStop()})
	if gone {
		s.StopCollector()
		s.DropMessage()
		return nil
	}
	if err != nil {
		return err
	}

	s.ArmConfirmStop(m.cfg.StopConfirmTimeout, func() {
		if err := m.Refresh(s, "", true); err != nil {
			log.Printf("[WARN] [UI] Failed to restore controls after confirm timeout for guild %s: %v", s.GuildID, err)
		}
	})
	return nil
}

func (m *Manager) handleConfirmStop(ctx context.Context, s *session.Session) error {
	s.CancelConfirmStop()
	if err := m.PerformStop(ctx, s); err != nil {
		return err
	}
	s.StopCollector()
	return nil
}

func (m *Manager) handleCancelStop(s *session.Session) error {
	s.CancelConfirmStop()
	return m.Refresh(s, "", true)
}

func (m *Manager) handlePrevious(ctx context.Context, s *session.Session) error {
	if err := m.PlayPrevious(ctx, s); err != nil {
		return err
	}
	return m.Refresh(s, "", true)
}

func (m *Manager) handlePlayPause(ctx context.Context, s *session.Session) error {
	if err := m.TogglePlayPause(ctx, s); err != nil {
		return err
	}
	return m.Refresh(s, "", true)
}

// handleSkip delays the refresh briefly so the next track-start event lands
// before the message is rebuilt.
func (m *Manager) handleSkip(ctx context.Context, s *session.Session) error {
	if err := m.PerformSkip(ctx, s); err != nil {
		return err
	}
	time.AfterFunc(m.cfg.SkipRefreshDelay, func() {
		if err := m.Refresh(s, "", true); err != nil {
			log.Printf("[WARN] [UI] Post-skip refresh failed for guild %s: %v", s.GuildID, err)
		}
	})
	return nil
}

func (m *Manager) handleShuffle(s *session.Session) error {
	s.Shuffle()
	return m.Refresh(s, "", true)
}

// Repost deletes the current status message and posts a fresh one at the
// bottom of the channel.
func (m *Manager) Repost(s *session.Session, channelID string) error {
	if ref := s.Message(); ref != nil {
		if err := m.safe.Delete(ref); err != nil {
			log.Printf("[DEBUG] [UI] Failed to delete old status message for guild %s: %v", s.GuildID, err)
		}
	}
	s.StopCollector()
	s.DropMessage()
	return m.Refresh(s, channelID, true)
}

// onCollectorEnd strips the controls off the message when the collector
// expires naturally, leaving the embed in place. Best effort.
func (m *Manager) onCollectorEnd(s *session.Session) {
	ref := s.Message()
	if ref == nil {
		return
	}
	last, _ := s.RenderCache()
	prev, ok := last.(*Payload)
	if !ok || prev == nil {
		return
	}
	if _, err := m.safe.Edit(ref, &Payload{Embed: prev.Embed, Components: []discordgo.MessageComponent{}}); err != nil {
		log.Printf("[DEBUG] [UI] Failed to clear controls for guild %s: %v", s.GuildID, err)
	}
}

// StartAutoRefresh attaches the periodic re-render driver. It self-cancels
// once playback is neither playing nor paused, and never duplicates.
func (m *Manager) StartAutoRefresh(s *session.Session) {
	started := s.StartAutoRefresh(m.cfg.UIRefreshInterval, func() bool {
		snap := s.Snapshot()
		if !snap.Playing && !snap.Paused {
			return false
		}
		if p := s.Player(); p != nil && !snap.Paused {
			s.SetPosition(p.Position())
		}
		if err := m.Refresh(s, "", false); err != nil {
			log.Printf("[WARN] [UI] Periodic refresh failed for guild %s: %v", s.GuildID, err)
		}
		return true
	})
	if started {
		log.Printf("[DEBUG] [UI] Auto refresh started for guild %s", s.GuildID)
	}
}
