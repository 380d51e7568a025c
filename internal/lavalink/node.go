package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lavabot/internal/engine"
)

// Node is the single Lavalink transport endpoint. It owns the websocket and
// reports state changes to the client's event bus; reconnect policy lives in
// the monitor, not here.
type Node struct {
	client *Client

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	sessionID string
}

func (n *Node) Name() string {
	return fmt.Sprintf("%s:%d", n.client.cfg.LavalinkHost, n.client.cfg.LavalinkPort)
}

func (n *Node) Connected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected
}

// SessionID is the Lavalink session this node negotiated on its last ready.
func (n *Node) SessionID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sessionID
}

// Connect dials the node websocket and starts the read loop. Calling it
// while connected is a no-op.
func (n *Node) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.connected {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	scheme := "ws"
	if n.client.cfg.LavalinkSecure {
		scheme = "wss"
	}
	url := fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, n.client.cfg.LavalinkHost, n.client.cfg.LavalinkPort)

	headers := http.Header{}
	headers.Set("Authorization", n.client.cfg.LavalinkPassword)
	headers.Set("User-Id", n.client.UserID())
	headers.Set("Client-Name", "lavabot/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to node %s: %w", n.Name(), err)
	}

	n.mu.Lock()
	n.conn = conn
	n.connected = true
	n.mu.Unlock()

	log.Printf("[INFO] [Lavalink] Connected to node %s", n.Name())
	go n.readLoop(conn)
	return nil
}

// Stats round-trips the node's stats endpoint. Used by the deep health probe.
func (n *Node) Stats(ctx context.Context) (*engine.Stats, error) {
	var stats statsJSON
	if err := n.client.restGet(ctx, "/v4/stats", &stats); err != nil {
		return nil, err
	}
	return &engine.Stats{
		Players:        stats.Players,
		PlayingPlayers: stats.PlayingPlayers,
		Uptime:         time.Duration(stats.Uptime) * time.Millisecond,
	}, nil
}

func (n *Node) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			n.handleDisconnect(err)
			return
		}
		n.handleMessage(message)
	}
}

func (n *Node) handleDisconnect(err error) {
	n.mu.Lock()
	wasConnected := n.connected
	n.connected = false
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.mu.Unlock()

	if !wasConnected {
		return
	}
	log.Printf("[WARN] [Lavalink] Node %s disconnected: %v", n.Name(), err)
	n.client.bus.Publish(engine.Event{
		Type:     engine.EventNodeDisconnect,
		NodeName: n.Name(),
		Reason:   err.Error(),
		Err:      err,
	})
}

func (n *Node) handleMessage(message []byte) {
	var head struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		return
	}

	switch head.Op {
	case "ready":
		var ready readyJSON
		if err := json.Unmarshal(message, &ready); err != nil {
			return
		}
		n.mu.Lock()
		n.sessionID = ready.SessionID
		n.mu.Unlock()
		log.Printf("[INFO] [Lavalink] Node %s ready, session %s", n.Name(), ready.SessionID)
		n.client.bus.Publish(engine.Event{Type: engine.EventNodeConnect, NodeName: n.Name()})

	case "playerUpdate":
		var update playerUpdateJSON
		if err := json.Unmarshal(message, &update); err != nil {
			return
		}
		n.client.applyPlayerUpdate(update)

	case "event":
		var evt eventJSON
		if err := json.Unmarshal(message, &evt); err != nil {
			return
		}
		n.handleEvent(evt)

	case "stats":
		// pushed periodically; the deep probe polls REST instead
	}
}

func (n *Node) handleEvent(evt eventJSON) {
	var track *engine.Track
	if evt.Track != nil {
		t := evt.Track.toEngine()
		track = &t
	}

	switch evt.Type {
	case "TrackStartEvent":
		n.client.bus.Publish(engine.Event{Type: engine.EventTrackStart, GuildID: evt.GuildID, Track: track})
	case "TrackEndEvent":
		n.client.bus.Publish(engine.Event{Type: engine.EventTrackEnd, GuildID: evt.GuildID, Track: track, Reason: evt.Reason})
	case "TrackExceptionEvent":
		reason := "unknown"
		if evt.Exception != nil {
			reason = evt.Exception.Message
		}
		n.client.bus.Publish(engine.Event{Type: engine.EventTrackException, GuildID: evt.GuildID, Track: track, Reason: reason})
	case "TrackStuckEvent":
		n.client.bus.Publish(engine.Event{Type: engine.EventTrackException, GuildID: evt.GuildID, Track: track, Reason: "track stuck"})
	case "WebSocketClosedEvent":
		log.Printf("[WARN] [Lavalink] Voice websocket closed for guild %s (code %d)", evt.GuildID, evt.Code)
	}
}
