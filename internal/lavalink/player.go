package lavalink

import (
	"context"
	"sync"
	"time"

	"lavabot/internal/engine"
)

// Player is the per-guild engine handle. All mutations go through the node's
// REST player endpoint; position flows back on playerUpdate frames.
type Player struct {
	client  *Client
	guildID string

	mu       sync.RWMutex
	position time.Duration
}

func (p *Player) Play(ctx context.Context, track engine.Track) error {
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{
		"track":  map[string]any{"encoded": track.Encoded},
		"paused": false,
	})
}

func (p *Player) StopPlaying(ctx context.Context) error {
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{
		"track": map[string]any{"encoded": nil},
	})
}

func (p *Player) Pause(ctx context.Context) error {
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{"paused": true})
}

func (p *Player) Resume(ctx context.Context) error {
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{"paused": false})
}

func (p *Player) Seek(ctx context.Context, position time.Duration) error {
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{
		"position": position.Milliseconds(),
	})
}

func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return p.client.updatePlayer(ctx, p.guildID, map[string]any{"volume": volume})
}

func (p *Player) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Player) setPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}
