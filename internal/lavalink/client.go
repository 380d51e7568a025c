// Package lavalink implements the engine interfaces against a Lavalink v4
// node: websocket for events, REST for player mutations.
package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lavabot/internal/config"
	"lavabot/internal/engine"
)

// GatewayConnector is the Discord-gateway side of voice moves; the discord
// package implements it.
type GatewayConnector interface {
	JoinVoice(guildID, channelID string) error
	LeaveVoice(guildID string) error
}

// Client talks to one Lavalink node and implements engine.Engine.
type Client struct {
	cfg     *config.Config
	gateway GatewayConnector
	node    *Node
	bus     *engine.Bus

	http    *http.Client
	limiter *rate.Limiter

	mu      sync.RWMutex
	userID  string
	players map[string]*Player
	voice   map[string]*voiceStateJSON
}

func NewClient(cfg *config.Config, gateway GatewayConnector) *Client {
	c := &Client{
		cfg:     cfg,
		gateway: gateway,
		bus:     engine.NewBus(64),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(10, 5),
		players: make(map[string]*Player),
		voice:   make(map[string]*voiceStateJSON),
	}
	c.node = &Node{client: c}
	return c
}

// SetUserID stores the bot user id required by the node handshake. Must run
// before Start.
func (c *Client) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Start opens the node connection.
func (c *Client) Start(ctx context.Context) error {
	return c.node.Connect(ctx)
}

func (c *Client) Node() engine.Node {
	return c.node
}

func (c *Client) Events() <-chan engine.Event {
	return c.bus.Events()
}

// Search resolves a query or URL into tracks. Plain text queries get the
// source's search prefix; direct URLs are loaded as-is and their tracks
// flagged RequestedAsURL.
func (c *Client) Search(ctx context.Context, query, source string) (*engine.LoadResult, error) {
	isURL := strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://")
	identifier := query
	if !isURL {
		prefix := "ytsearch"
		if source == "soundcloud" {
			prefix = "scsearch"
		}
		identifier = prefix + ":" + query
	}

	var raw loadResultJSON
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := c.restGet(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("track load failed: %w", err)
	}

	result := &engine.LoadResult{LoadType: engine.LoadType(raw.LoadType)}
	switch raw.LoadType {
	case "track":
		var t trackJSON
		if err := json.Unmarshal(raw.Data, &t); err != nil {
			return nil, fmt.Errorf("bad track payload: %w", err)
		}
		result.Tracks = []engine.Track{t.toEngine()}
	case "playlist":
		var pl playlistJSON
		if err := json.Unmarshal(raw.Data, &pl); err != nil {
			return nil, fmt.Errorf("bad playlist payload: %w", err)
		}
		result.PlaylistName = pl.Info.Name
		for _, t := range pl.Tracks {
			result.Tracks = append(result.Tracks, t.toEngine())
		}
	case "search":
		var tracks []trackJSON
		if err := json.Unmarshal(raw.Data, &tracks); err != nil {
			return nil, fmt.Errorf("bad search payload: %w", err)
		}
		for _, t := range tracks {
			result.Tracks = append(result.Tracks, t.toEngine())
		}
	case "error":
		var exc exceptionJSON
		if err := json.Unmarshal(raw.Data, &exc); err == nil {
			result.ErrorMessage = exc.Message
		}
	}

	if isURL {
		for i := range result.Tracks {
			result.Tracks[i].RequestedAsURL = true
		}
	}
	return result, nil
}

// CreatePlayer returns the guild's player handle, creating it lazily.
func (c *Client) CreatePlayer(guildID string) engine.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.players[guildID]; ok {
		return p
	}
	p := &Player{client: c, guildID: guildID}
	c.players[guildID] = p
	return p
}

func (c *Client) Player(guildID string) (engine.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[guildID]
	return p, ok
}

// DestroyPlayer releases the engine-side player. Missing players are a
// no-op; a dead node only costs the REST call.
func (c *Client) DestroyPlayer(ctx context.Context, guildID string) error {
	c.mu.Lock()
	_, existed := c.players[guildID]
	delete(c.players, guildID)
	delete(c.voice, guildID)
	c.mu.Unlock()

	if !existed {
		return nil
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", c.node.SessionID(), guildID)
	if err := c.restDo(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("player destroy failed: %w", err)
	}
	return nil
}

// Connect moves the bot into the voice channel via the Discord gateway; the
// resulting voice server update is forwarded to the node.
func (c *Client) Connect(ctx context.Context, guildID, channelID string) error {
	if err := c.gateway.JoinVoice(guildID, channelID); err != nil {
		return fmt.Errorf("voice join failed: %w", err)
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context, guildID string) error {
	if err := c.gateway.LeaveVoice(guildID); err != nil {
		return fmt.Errorf("voice leave failed: %w", err)
	}
	return nil
}

// HandleVoiceServerUpdate forwards Discord's voice server credentials to the
// node so it can take over the voice connection.
func (c *Client) HandleVoiceServerUpdate(guildID, token, endpoint string) {
	c.mu.Lock()
	vs, ok := c.voice[guildID]
	if !ok {
		vs = &voiceStateJSON{}
		c.voice[guildID] = vs
	}
	vs.Token = token
	vs.Endpoint = endpoint
	ready := vs.SessionID != ""
	payload := *vs
	c.mu.Unlock()

	if ready {
		c.pushVoiceState(guildID, payload)
	}
}

// HandleVoiceStateUpdate records the bot's own voice session id.
func (c *Client) HandleVoiceStateUpdate(guildID, sessionID string) {
	c.mu.Lock()
	vs, ok := c.voice[guildID]
	if !ok {
		vs = &voiceStateJSON{}
		c.voice[guildID] = vs
	}
	vs.SessionID = sessionID
	ready := vs.Token != "" && vs.Endpoint != ""
	payload := *vs
	c.mu.Unlock()

	if ready {
		c.pushVoiceState(guildID, payload)
	}
}

func (c *Client) pushVoiceState(guildID string, vs voiceStateJSON) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.updatePlayer(ctx, guildID, map[string]any{"voice": vs}); err != nil {
		log.Printf("[ERR] [Lavalink] Voice state push failed for guild %s: %v", guildID, err)
	}
}

func (c *Client) applyPlayerUpdate(update playerUpdateJSON) {
	c.mu.RLock()
	p, ok := c.players[update.GuildID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	p.setPosition(time.Duration(update.State.Position) * time.Millisecond)
}

// --- REST plumbing ---

func (c *Client) restURL(path string) string {
	scheme := "http"
	if c.cfg.LavalinkSecure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, c.cfg.LavalinkHost, c.cfg.LavalinkPort, path)
}

func (c *Client) restGet(ctx context.Context, path string, out any) error {
	return c.restDo(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) restDo(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.LavalinkPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("node returned %s for %s %s", resp.Status, method, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// updatePlayer sends a partial player update for the guild.
func (c *Client) updatePlayer(ctx context.Context, guildID string, body map[string]any) error {
	sid := c.node.SessionID()
	if sid == "" {
		return fmt.Errorf("node session not ready")
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s?noReplace=false", sid, guildID)
	return c.restDo(ctx, http.MethodPatch, path, body, nil)
}
