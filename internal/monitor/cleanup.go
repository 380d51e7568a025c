package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
)

// GuildScanner answers the two liveness questions the orphan sweep asks of
// the chat transport.
type GuildScanner interface {
	GuildExists(guildID string) bool
	BotInVoiceChannel(guildID, channelID string) bool
}

// Cleanup runs the two periodic sweeps that catch whatever the event-driven
// paths missed: stale status-message state and orphaned players.
type Cleanup struct {
	cfg       *config.Config
	eng       engine.Engine
	sessions  *session.Registry
	transport nowplaying.Transport
	scanner   GuildScanner

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

func NewCleanup(cfg *config.Config, eng engine.Engine, sessions *session.Registry, transport nowplaying.Transport, scanner GuildScanner) *Cleanup {
	return &Cleanup{
		cfg:       cfg,
		eng:       eng,
		sessions:  sessions,
		transport: transport,
		scanner:   scanner,
	}
}

// Start launches both sweeps. Calling Start twice is a no-op.
func (c *Cleanup) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.stopCh = make(chan struct{})
	go c.run(c.stopCh)
	log.Println("[INFO] [Cleanup] Periodic sweeps started")
}

// Stop clears every interval Start created. Safe without a prior Start and
// safe to call twice.
func (c *Cleanup) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.started = false
	close(c.stopCh)
}

func (c *Cleanup) run(stop <-chan struct{}) {
	stale := time.NewTicker(c.cfg.StaleUISweepInterval)
	orphan := time.NewTicker(c.cfg.OrphanSweepInterval)
	defer stale.Stop()
	defer orphan.Stop()

	for {
		select {
		case <-stop:
			return
		case <-stale.C:
			c.SweepStaleUI()
		case <-orphan.C:
			c.SweepOrphans()
		}
	}
}

// SweepStaleUI drops message handles whose underlying message is gone or
// older than the max age, so the next refresh recreates instead of editing a
// corpse.
func (c *Cleanup) SweepStaleUI() {
	for _, s := range c.sessions.All() {
		ref := s.Message()
		if ref == nil {
			continue
		}
		if s.MessageAge() > c.cfg.StaleUIMaxAge || !c.transport.Exists(ref) {
			log.Printf("[INFO] [Cleanup] Dropping stale status message for guild %s", s.GuildID)
			s.StopCollector()
			s.DropMessage()
		}
	}
}

// SweepOrphans destroys players whose guild vanished or whose voice channel
// the bot is no longer in. Each session is handled independently.
func (c *Cleanup) SweepOrphans() {
	for _, s := range c.sessions.All() {
		guildID := s.GuildID
		channelID, connected := s.VoiceChannel()

		orphaned := !c.scanner.GuildExists(guildID)
		if !orphaned && connected && !c.scanner.BotInVoiceChannel(guildID, channelID) {
			orphaned = true
		}
		if !orphaned {
			continue
		}

		log.Printf("[INFO] [Cleanup] Removing orphaned session for guild %s", guildID)
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HealthProbeTimeout)
		if err := c.eng.DestroyPlayer(ctx, guildID); err != nil {
			log.Printf("[WARN] [Cleanup] Player destroy failed for guild %s: %v", guildID, err)
		}
		cancel()
		s.CancelAllTasks()
		c.sessions.Remove(guildID)
	}
}
