// Package monitor watches the audio node's health and keeps the live session
// map free of entries that reference dead resources.
package monitor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
)

// VoiceGateway is the fallback voice-disconnect path, independent of the
// audio engine's own disconnect call.
type VoiceGateway interface {
	DisconnectVoice(guildID string) error
}

// Monitor drives the node state machine: Connected ⇄ Disconnected →
// Reconnecting → Connected. On any down signal it runs the per-session
// cleanup matrix exactly once, then schedules backoff reconnects.
type Monitor struct {
	cfg      *config.Config
	eng      engine.Engine
	sessions *session.Registry
	ui       *nowplaying.Manager
	voice    VoiceGateway

	cleanupGuard atomic.Bool

	mu               sync.Mutex
	down             bool
	attempts         int
	reconnectPending bool

	stopOnce sync.Once
	stopCh   chan struct{}
	started  atomic.Bool
}

func New(cfg *config.Config, eng engine.Engine, sessions *session.Registry, ui *nowplaying.Manager, voice VoiceGateway) *Monitor {
	return &Monitor{
		cfg:      cfg,
		eng:      eng,
		sessions: sessions,
		ui:       ui,
		voice:    voice,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the two probe cadences: a fast liveness check that only
// inspects the connection flag, and a slower deep check that round-trips the
// node's stats endpoint with a timeout.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.probeLoop()
	log.Println("[INFO] [Monitor] Health monitoring started")
}

// Stop cancels both probe cadences. Safe to call twice, or without a prior
// Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) probeLoop() {
	fast := time.NewTicker(m.cfg.HealthFastInterval)
	deep := time.NewTicker(m.cfg.HealthDeepInterval)
	defer fast.Stop()
	defer deep.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-fast.C:
			if m.isDown() {
				continue
			}
			if !m.eng.Node().Connected() {
				m.HandleNodeDown("liveness check failed")
			}
		case <-deep.C:
			if m.isDown() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HealthProbeTimeout)
			_, err := m.eng.Node().Stats(ctx)
			cancel()
			if err != nil {
				m.HandleNodeDown("stats probe failed: " + err.Error())
			}
		}
	}
}

func (m *Monitor) isDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.down
}

// HandleNodeDown converges every down signal (error event, disconnect event,
// destroy event, failed probe) onto one idempotent cleanup pass. Overlapping
// signals are absorbed by the guard flag.
func (m *Monitor) HandleNodeDown(reason string) {
	if !m.cleanupGuard.CompareAndSwap(false, true) {
		return
	}
	defer m.cleanupGuard.Store(false)

	m.mu.Lock()
	first := !m.down
	m.down = true
	m.mu.Unlock()

	if first {
		log.Printf("[WARN] [Monitor] Node %s down: %s", m.eng.Node().Name(), reason)
		m.cleanupAllSessions()
	}
	m.scheduleReconnect()
}

// HandleNodeUp clears the down state and the attempt counter.
func (m *Monitor) HandleNodeUp() {
	m.mu.Lock()
	m.down = false
	m.attempts = 0
	m.reconnectPending = false
	m.mu.Unlock()
	log.Printf("[INFO] [Monitor] Node %s connected", m.eng.Node().Name())
}

// cleanupAllSessions walks every live session independently; one failing
// session never aborts the others, and every session leaves the map.
func (m *Monitor) cleanupAllSessions() {
	for _, s := range m.sessions.All() {
		m.cleanupSession(s)
	}
}

// cleanupSession applies the down-classification matrix to one session:
//  1. no voice attachment: cancel timers and release the player, no
//     voice traffic
//  2. attached and playing: UI to stopped, full state clear, voice
//     disconnect over every available path, player release
//  3. attached but idle: voice disconnect and release, no UI rewrite
//  4. anything goes wrong: forced teardown
//
// The session is removed from the live map in every case.
func (m *Monitor) cleanupSession(s *session.Session) {
	defer m.sessions.Remove(s.GuildID)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERR] [Monitor] Cleanup panic for guild %s: %v, forcing teardown", s.GuildID, r)
			m.forceTeardown(s)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HealthProbeTimeout)
	defer cancel()

	_, connected := s.VoiceChannel()
	active := s.IsPlaying() || s.Current() != nil

	switch {
	case !connected:
		s.CancelAllTasks()
		m.releasePlayer(ctx, s.GuildID)

	case active:
		if err := m.ui.PerformStop(ctx, s); err != nil {
			log.Printf("[WARN] [Monitor] Stop during cleanup failed for guild %s: %v", s.GuildID, err)
		}
		m.disconnectAllPaths(ctx, s.GuildID)
		m.releasePlayer(ctx, s.GuildID)

	default:
		s.CancelAllTasks()
		m.disconnectAllPaths(ctx, s.GuildID)
		m.releasePlayer(ctx, s.GuildID)
	}

	log.Printf("[INFO] [Monitor] Session cleaned up for guild %s", s.GuildID)
}

// forceTeardown is the case-4 path: reset state and best-effort every
// release, never failing.
func (m *Monitor) forceTeardown(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HealthProbeTimeout)
	defer cancel()

	func() {
		defer func() { _ = recover() }()
		if err := m.ui.PerformStop(ctx, s); err != nil {
			log.Printf("[WARN] [Monitor] Forced stop failed for guild %s: %v", s.GuildID, err)
		}
	}()
	s.CancelAllTasks()
	s.ClearPlayback()
	s.DropMessage()
	m.disconnectAllPaths(ctx, s.GuildID)
	m.releasePlayer(ctx, s.GuildID)
}

// disconnectAllPaths tries the engine disconnect first and the raw gateway
// fallback second, logging partial failures instead of propagating them.
func (m *Monitor) disconnectAllPaths(ctx context.Context, guildID string) {
	if err := m.eng.Disconnect(ctx, guildID); err != nil {
		log.Printf("[WARN] [Monitor] Engine voice disconnect failed for guild %s: %v", guildID, err)
	}
	if m.voice != nil {
		if err := m.voice.DisconnectVoice(guildID); err != nil {
			log.Printf("[WARN] [Monitor] Gateway voice disconnect failed for guild %s: %v", guildID, err)
		}
	}
}

func (m *Monitor) releasePlayer(ctx context.Context, guildID string) {
	if err := m.eng.DestroyPlayer(ctx, guildID); err != nil {
		log.Printf("[WARN] [Monitor] Player release failed for guild %s: %v", guildID, err)
	}
}

// scheduleReconnect arms a single backoff timer: base delay doubled per
// attempt, abandoned past the attempt cap.
func (m *Monitor) scheduleReconnect() {
	m.mu.Lock()
	if m.reconnectPending {
		m.mu.Unlock()
		return
	}
	m.attempts++
	attempt := m.attempts
	if attempt > m.cfg.ReconnectMaxAttempts {
		m.mu.Unlock()
		log.Printf("[ERR] [Monitor] Node %s reconnect abandoned after %d attempts", m.eng.Node().Name(), m.cfg.ReconnectMaxAttempts)
		return
	}
	m.reconnectPending = true
	m.mu.Unlock()

	delay := m.cfg.ReconnectBaseDelay << (attempt - 1)
	log.Printf("[INFO] [Monitor] Reconnect attempt %d/%d in %v", attempt, m.cfg.ReconnectMaxAttempts, delay)

	time.AfterFunc(delay, func() {
		select {
		case <-m.stopCh:
			m.mu.Lock()
			m.reconnectPending = false
			m.mu.Unlock()
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HealthProbeTimeout)
		err := m.eng.Node().Connect(ctx)
		cancel()

		m.mu.Lock()
		m.reconnectPending = false
		m.mu.Unlock()

		if err != nil {
			log.Printf("[WARN] [Monitor] Reconnect attempt %d failed: %v", attempt, err)
			m.scheduleReconnect()
			return
		}
		m.HandleNodeUp()
	})
}
