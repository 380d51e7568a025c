package nowplaying

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/session"
)

// fakeTransport records every call and lets tests inject per-call failures.
type fakeTransport struct {
	mu sync.Mutex

	sends   int
	edits   int
	deletes int
	exists  int
	texts   []string

	messages map[string]bool
	lastEdit *Payload

	editErr   error
	editErrs  []error
	sendErr   error
	deleteErr error
	collected []*fakeCollector
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{messages: make(map[string]bool)}
}

func (f *fakeTransport) Send(channelID string, p *Payload) (*session.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sends++
	id := fmt.Sprintf("m%d", f.sends)
	f.messages[id] = true
	return &session.MessageRef{ChannelID: channelID, MessageID: id}, nil
}

func (f *fakeTransport) Edit(ref *session.MessageRef, p *Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.editErrs) > 0 {
		err := f.editErrs[0]
		f.editErrs = f.editErrs[1:]
		if err != nil {
			return err
		}
	} else if f.editErr != nil {
		return f.editErr
	}
	f.edits++
	f.lastEdit = p
	return nil
}

func (f *fakeTransport) Delete(ref *session.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	delete(f.messages, ref.MessageID)
	return nil
}

func (f *fakeTransport) Exists(ref *session.MessageRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists++
	return ref != nil && f.messages[ref.MessageID]
}

func (f *fakeTransport) SendText(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
	return nil
}

func (f *fakeTransport) Collect(ref *session.MessageRef, onAction func(string), onEnd func()) (session.Stopper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeCollector{onAction: onAction, onEnd: onEnd}
	f.collected = append(f.collected, c)
	return c, nil
}

func (f *fakeTransport) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits
}

func (f *fakeTransport) existsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists
}

func (f *fakeTransport) lastEditPayload() *Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastEdit
}

// forget marks a message as gone on the transport side.
func (f *fakeTransport) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, id)
}

type fakeCollector struct {
	mu       sync.Mutex
	stopped  bool
	onAction func(string)
	onEnd    func()
}

func (c *fakeCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *fakeCollector) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// fakePlayer implements engine.Player in memory.
type fakePlayer struct {
	mu sync.Mutex

	played   []engine.Track
	stops    int
	pauses   int
	resumes  int
	seeks    []time.Duration
	volumes  []int
	position time.Duration

	playErr error
}

func (p *fakePlayer) Play(ctx context.Context, t engine.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.played = append(p.played, t)
	return nil
}

func (p *fakePlayer) StopPlaying(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	return nil
}

func (p *fakePlayer) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
	return nil
}

func (p *fakePlayer) Seek(ctx context.Context, pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, pos)
	return nil
}

func (p *fakePlayer) SetVolume(ctx context.Context, v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumes = append(p.volumes, v)
	return nil
}

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) playedTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	for i, t := range p.played {
		out[i] = t.Title
	}
	return out
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultVolume:       70,
		MaxQueueSize:        500,
		MaxHistorySize:      100,
		UIRefreshInterval:   3 * time.Second,
		// Zero keeps user-action refreshes synchronous in tests; the
		// coalescing window has its own coverage.
		FastRefreshInterval: 0,
		MessageStaleAge:     time.Hour,
		CollectorTTL:        6 * time.Hour,
		StopConfirmTimeout:  10 * time.Second,
		PauseAutoStop:       20 * time.Minute,
		SkipRefreshDelay:    time.Millisecond,
	}
}

func newTestManager() (*Manager, *fakeTransport, *session.Registry) {
	transport := newFakeTransport()
	sessions := session.NewRegistry()
	m := NewManager(testConfig(), transport, sessions)
	return m, transport, sessions
}
