package lavalink

import (
	"encoding/json"
	"time"

	"lavabot/internal/engine"
)

// Wire shapes for the Lavalink v4 REST and websocket APIs.

type trackInfoJSON struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

type trackJSON struct {
	Encoded string        `json:"encoded"`
	Info    trackInfoJSON `json:"info"`
}

func (t trackJSON) toEngine() engine.Track {
	return engine.Track{
		Encoded:    t.Encoded,
		Identifier: t.Info.Identifier,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Length:     time.Duration(t.Info.Length) * time.Millisecond,
		URI:        t.Info.URI,
		ArtworkURL: t.Info.ArtworkURL,
		SourceName: t.Info.SourceName,
		IsStream:   t.Info.IsStream,
	}
}

type loadResultJSON struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistJSON struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []trackJSON `json:"tracks"`
}

type exceptionJSON struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

type readyJSON struct {
	Op        string `json:"op"`
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`
}

type playerUpdateJSON struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
	State   struct {
		Time      int64 `json:"time"`
		Position  int64 `json:"position"`
		Connected bool  `json:"connected"`
		Ping      int64 `json:"ping"`
	} `json:"state"`
}

type eventJSON struct {
	Op        string         `json:"op"`
	Type      string         `json:"type"`
	GuildID   string         `json:"guildId"`
	Track     *trackJSON     `json:"track"`
	Reason    string         `json:"reason"`
	Exception *exceptionJSON `json:"exception"`
	Code      int            `json:"code"`
	ByRemote  bool           `json:"byRemote"`
}

type statsJSON struct {
	Players        int   `json:"players"`
	PlayingPlayers int   `json:"playingPlayers"`
	Uptime         int64 `json:"uptime"`
}

type voiceStateJSON struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}
