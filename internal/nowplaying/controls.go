package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lavabot/internal/session"
)

var (
	ErrNoTrackPlaying  = errors.New("no track is currently playing")
	ErrNoTracksInQueue = errors.New("no tracks in queue")
	ErrNoPlayer        = errors.New("no engine player attached to session")
)

// TogglePlayPause pauses a playing session or resumes a paused one. Pausing
// snapshots the position and arms the long-pause auto-stop timer; resuming
// clears both.
func (m *Manager) TogglePlayPause(ctx context.Context, s *session.Session) error {
	p := s.Player()
	if p == nil {
		return ErrNoPlayer
	}

	if s.IsPaused() {
		s.CancelPauseAutoStop()
		if err := p.Resume(ctx); err != nil {
			return fmt.Errorf("failed to resume: %w", err)
		}
		s.MarkResumed()
		return nil
	}

	if !s.IsPlaying() {
		return ErrNoTrackPlaying
	}
	if err := p.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	s.MarkPaused()
	s.ArmPauseAutoStop(m.cfg.PauseAutoStop, func() {
		if !s.IsPaused() {
			return
		}
		log.Printf("[INFO] [Player] Guild %s paused too long, stopping", s.GuildID)
		if err := m.PerformStop(context.Background(), s); err != nil {
			log.Printf("[ERR] [Player] Auto-stop after long pause failed for guild %s: %v", s.GuildID, err)
		}
	})
	return nil
}

// PerformSkip advances to the next queued track. A no-op when the queue is
// empty. The finished track moves into history; the engine's track-replaced
// signal is ignored by the event loop so this is the single advancement path.
func (m *Manager) PerformSkip(ctx context.Context, s *session.Session) error {
	if s.QueueLen() == 0 {
		return nil
	}
	if cur := s.Current(); cur != nil {
		s.PushHistory(*cur, m.cfg.MaxHistorySize)
	}
	return m.PlayNext(ctx, s)
}

// PlayNext pops the queue head and starts it on the engine player.
func (m *Manager) PlayNext(ctx context.Context, s *session.Session) error {
	next, ok := s.NextTrack()
	if !ok {
		return ErrNoTracksInQueue
	}
	p := s.Player()
	if p == nil {
		return ErrNoPlayer
	}
	if err := p.Play(ctx, *next); err != nil {
		return fmt.Errorf("failed to play %q: %w", next.Title, err)
	}
	s.SetNowPlaying(next)
	return nil
}

// PlayPrevious pops one track from history onto the player. The displaced
// current track goes back to the queue front.
func (m *Manager) PlayPrevious(ctx context.Context, s *session.Session) error {
	prev := s.PopPrevious()
	if prev == nil {
		return nil
	}
	p := s.Player()
	if p == nil {
		return ErrNoPlayer
	}
	if err := p.Play(ctx, *prev); err != nil {
		return fmt.Errorf("failed to replay %q: %w", prev.Title, err)
	}
	return nil
}

// PerformStop halts engine playback, clears the whole session queue state,
// discards collector and timers, resets volume, renders the stopped payload
// onto the existing message and finally drops the handle so a future play
// recreates fresh. Safe to call twice.
func (m *Manager) PerformStop(ctx context.Context, s *session.Session) error {
	if p := s.Player(); p != nil {
		if err := p.StopPlaying(ctx); err != nil {
			log.Printf("[WARN] [Player] Engine stop failed for guild %s: %v", s.GuildID, err)
		}
	}

	s.CancelConfirmStop()
	s.CancelPauseAutoStop()
	s.ClearPendingRefresh()
	s.StopAutoRefresh()
	s.StopCollector()
	s.ClearPlayback()
	s.SetVolume(m.cfg.DefaultVolume)

	if ref := s.Message(); ref != nil {
		if _, err := m.safe.Edit(ref, RenderStopped()); err != nil {
			log.Printf("[WARN] [UI] Failed to render stopped payload for guild %s: %v", s.GuildID, err)
		}
	}
	s.DropMessage()
	return nil
}
