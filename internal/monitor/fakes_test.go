package monitor

import (
	"context"
	"sync"
	"time"

	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
)

type fakeNode struct {
	mu         sync.Mutex
	name       string
	connected  bool
	connectErr error
	connects   int
}

func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *fakeNode) Connect(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connects++
	if n.connectErr != nil {
		return n.connectErr
	}
	n.connected = true
	return nil
}

func (n *fakeNode) Stats(ctx context.Context) (*engine.Stats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.connected {
		return nil, context.DeadlineExceeded
	}
	return &engine.Stats{}, nil
}

func (n *fakeNode) connectCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connects
}

type fakeEngine struct {
	mu          sync.Mutex
	node        *fakeNode
	disconnects []string
	destroyed   []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{node: &fakeNode{name: "test-node", connected: true}}
}

func (e *fakeEngine) Search(ctx context.Context, query, source string) (*engine.LoadResult, error) {
	return &engine.LoadResult{LoadType: engine.LoadTypeEmpty}, nil
}

func (e *fakeEngine) CreatePlayer(guildID string) engine.Player { return nil }

func (e *fakeEngine) Player(guildID string) (engine.Player, bool) { return nil, false }

func (e *fakeEngine) DestroyPlayer(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = append(e.destroyed, guildID)
	return nil
}

func (e *fakeEngine) Connect(ctx context.Context, guildID, channelID string) error { return nil }

func (e *fakeEngine) Disconnect(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnects = append(e.disconnects, guildID)
	return nil
}

func (e *fakeEngine) Node() engine.Node { return e.node }

func (e *fakeEngine) Events() <-chan engine.Event { return nil }

func (e *fakeEngine) disconnectedGuilds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.disconnects))
	copy(out, e.disconnects)
	return out
}

func (e *fakeEngine) destroyedGuilds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.destroyed))
	copy(out, e.destroyed)
	return out
}

type fakeVoice struct {
	mu    sync.Mutex
	drops []string
}

func (v *fakeVoice) DisconnectVoice(guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drops = append(v.drops, guildID)
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	sends     int
	edits     int
	editPanic bool
	messages  map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{messages: make(map[string]bool)}
}

func (f *fakeTransport) Send(channelID string, p *nowplaying.Payload) (*session.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	id := "m" + channelID
	f.messages[id] = true
	return &session.MessageRef{ChannelID: channelID, MessageID: id}, nil
}

func (f *fakeTransport) Edit(ref *session.MessageRef, p *nowplaying.Payload) error {
	f.mu.Lock()
	panicking := f.editPanic
	f.edits++
	f.mu.Unlock()
	if panicking {
		panic("transport edit blew up")
	}
	return nil
}

func (f *fakeTransport) Delete(ref *session.MessageRef) error { return nil }

func (f *fakeTransport) Exists(ref *session.MessageRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ref != nil && f.messages[ref.MessageID]
}

func (f *fakeTransport) Collect(ref *session.MessageRef, onAction func(string), onEnd func()) (session.Stopper, error) {
	return nopStopper{}, nil
}

func (f *fakeTransport) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, id)
}

type nopStopper struct{}

func (nopStopper) Stop() {}

type fakeScanner struct {
	mu        sync.Mutex
	guilds    map[string]bool
	inChannel map[string]bool
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{guilds: make(map[string]bool), inChannel: make(map[string]bool)}
}

func (s *fakeScanner) GuildExists(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guilds[guildID]
}

func (s *fakeScanner) BotInVoiceChannel(guildID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inChannel[guildID+"/"+channelID]
}

func monitorTestConfig() *config.Config {
	return &config.Config{
		DefaultVolume:        70,
		MaxQueueSize:         500,
		MaxHistorySize:       100,
		UIRefreshInterval:    3 * time.Second,
		FastRefreshInterval:  250 * time.Millisecond,
		MessageStaleAge:      time.Hour,
		CollectorTTL:         6 * time.Hour,
		HealthFastInterval:   10 * time.Second,
		HealthDeepInterval:   30 * time.Second,
		HealthProbeTimeout:   time.Second,
		ReconnectBaseDelay:   time.Millisecond,
		ReconnectMaxAttempts: 3,
		StaleUISweepInterval: time.Hour,
		StaleUIMaxAge:        time.Hour,
		OrphanSweepInterval:  time.Hour,
	}
}

func newTestMonitor() (*Monitor, *fakeEngine, *fakeVoice, *session.Registry, *fakeTransport) {
	cfg := monitorTestConfig()
	eng := newFakeEngine()
	sessions := session.NewRegistry()
	transport := newFakeTransport()
	ui := nowplaying.NewManager(cfg, transport, sessions)
	voice := &fakeVoice{}
	return New(cfg, eng, sessions, ui, voice), eng, voice, sessions, transport
}
