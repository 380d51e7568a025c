// Package engine defines the boundary to the remote audio engine. The bot core
// talks only to these interfaces; the concrete Lavalink client lives in
// internal/lavalink.
package engine

import (
	"context"
	"time"
)

// Track describes a single playable track as the engine reports it.
type Track struct {
	Encoded    string
	Identifier string
	Title      string
	Author     string
	Length     time.Duration
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool

	// RequestedAsURL is set when the user pasted a direct link rather than
	// searching by text. The renderer skips author prefixing for these.
	RequestedAsURL bool
}

// LoadType classifies a search/load response.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// LoadResult is the outcome of a search or URL load.
type LoadResult struct {
	LoadType     LoadType
	Tracks       []Track
	PlaylistName string
	ErrorMessage string
}

// Stats is a node stats round-trip, used by the deep health probe.
type Stats struct {
	Players        int
	PlayingPlayers int
	Uptime         time.Duration
}

// Player is the engine-side playback handle for one guild.
type Player interface {
	Play(ctx context.Context, track Track) error
	StopPlaying(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, volume int) error
	Position() time.Duration
}

// Engine is the audio engine client: search, per-guild players, voice moves.
type Engine interface {
	Search(ctx context.Context, query, source string) (*LoadResult, error)
	CreatePlayer(guildID string) Player
	Player(guildID string) (Player, bool)
	DestroyPlayer(ctx context.Context, guildID string) error
	Connect(ctx context.Context, guildID, channelID string) error
	Disconnect(ctx context.Context, guildID string) error
	Node() Node
	Events() <-chan Event
}

// Node is one engine transport endpoint, monitored independently of sessions.
type Node interface {
	Name() string
	Connected() bool
	Connect(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
}
