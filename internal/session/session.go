// Package session holds the per-guild playback and UI state record. All state
// is process-memory only; a restart loses every session by design.
package session

import (
	"math/rand"
	"sync"
	"time"

	"lavabot/internal/engine"
)

// MessageRef is a handle to the single outstanding status message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Stopper is anything owning resources that must be positively released
// (interaction collectors, tickers).
type Stopper interface {
	Stop()
}

// Session is the per-guild playback/UI record. Methods are safe for
// concurrent use; compound mutations happen under one lock acquisition.
type Session struct {
	mu sync.Mutex

	GuildID string

	textChannelID  string
	voiceChannelID string
	connected      bool

	current *engine.Track
	queue   []engine.Track
	history []engine.Track

	playing   bool
	paused    bool
	position  time.Duration
	pausedPos time.Duration
	volume    int

	player engine.Player

	// status message state
	message          *MessageRef
	messageCreatedAt time.Time
	lastPayload      any
	lastUpdate       time.Time
	collector        Stopper

	// scheduled tasks; cleared before replaced, never just overwritten
	pendingRefresh *time.Timer
	confirmStop    *time.Timer
	confirmExpiry  time.Time
	pauseAutoStop  *time.Timer
	autoRefresh    *time.Ticker
	autoRefreshEnd chan struct{}

	manualRefresh bool
}

func New(guildID string, defaultVolume int) *Session {
	return &Session{
		GuildID: guildID,
		volume:  defaultVolume,
	}
}

// --- channels / voice attachment ---

func (s *Session) SetTextChannel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textChannelID = id
}

func (s *Session) TextChannel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textChannelID
}

func (s *Session) SetVoiceChannel(id string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceChannelID = id
	s.connected = connected
}

func (s *Session) VoiceChannel() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceChannelID, s.connected
}

func (s *Session) SetPlayer(p engine.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = p
}

func (s *Session) Player() engine.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// --- playback state ---

// SetNowPlaying installs the current track and marks playback running.
func (s *Session) SetNowPlaying(t *engine.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t
	s.playing = t != nil
	s.paused = false
	s.pausedPos = 0
	s.position = 0
}

func (s *Session) Current() *engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Session) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// MarkPaused snapshots the position and flips to paused.
func (s *Session) MarkPaused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.playing = false
	s.pausedPos = s.position
}

// MarkResumed clears the paused snapshot and resumes.
func (s *Session) MarkResumed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.playing = s.current != nil
	s.pausedPos = 0
}

func (s *Session) SetPosition(p time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
}

func (s *Session) PositionState() (pos, pausedPos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.pausedPos
}

func (s *Session) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// --- queue / history ---

// Enqueue appends tracks respecting the queue bound. Returns how many fit.
func (s *Session) Enqueue(max int, tracks ...engine.Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, t := range tracks {
		if max > 0 && len(s.queue) >= max {
			break
		}
		s.queue = append(s.queue, t)
		added++
	}
	return added
}

// NextTrack pops the queue head.
func (s *Session) NextTrack() (*engine.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	t := s.queue[0]
	s.queue = s.queue[1:]
	return &t, true
}

// PushHistory appends a finished track, dropping the oldest past max.
func (s *Session) PushHistory(t engine.Track, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, t)
	if max > 0 && len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

// PopPrevious pops the most recent history entry and, if a track is currently
// installed, pushes it back onto the queue front. The popped entry becomes the
// new current track. Returns nil when history is empty.
func (s *Session) PopPrevious() *engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	prev := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	if s.current != nil {
		s.queue = append([]engine.Track{*s.current}, s.queue...)
	}
	s.current = &prev
	s.playing = true
	s.paused = false
	s.pausedPos = 0
	s.position = 0
	return &prev
}

// Shuffle randomizes the upcoming queue in place. Current and history are
// untouched.
func (s *Session) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rand.Shuffle(len(s.queue), func(i, j int) {
		s.queue[i], s.queue[j] = s.queue[j], s.queue[i]
	})
}

// TrackAt resolves the merged-queue index convention: negative indexes walk
// history backward from the current track (-1 is the most recent), zero is the
// current track, positive indexes walk the upcoming queue.
func (s *Session) TrackAt(index int) (*engine.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case index == 0:
		if s.current == nil {
			return nil, false
		}
		t := *s.current
		return &t, true
	case index < 0:
		i := len(s.history) + index
		if i < 0 || i >= len(s.history) {
			return nil, false
		}
		t := s.history[i]
		return &t, true
	default:
		i := index - 1
		if i >= len(s.queue) {
			return nil, false
		}
		t := s.queue[i]
		return &t, true
	}
}

// Jump moves playback to the track at the given merged-queue offset and
// returns it. Positive offsets consume queue entries into history, negative
// offsets move history entries back onto the queue front. Zero returns the
// current track unchanged. Returns nil when the offset is out of range.
func (s *Session) Jump(offset int) *engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case offset == 0:
		if s.current == nil {
			return nil
		}
		t := *s.current
		return &t
	case offset > 0:
		if offset > len(s.queue) {
			return nil
		}
		if s.current != nil {
			s.history = append(s.history, *s.current)
		}
		s.history = append(s.history, s.queue[:offset-1]...)
		t := s.queue[offset-1]
		s.queue = s.queue[offset:]
		s.current = &t
	default:
		n := -offset
		if n > len(s.history) {
			return nil
		}
		moved := make([]engine.Track, n)
		copy(moved, s.history[len(s.history)-n:])
		s.history = s.history[:len(s.history)-n]
		target := moved[0]
		front := moved[1:]
		if s.current != nil {
			front = append(front, *s.current)
		}
		s.queue = append(append([]engine.Track{}, front...), s.queue...)
		s.current = &target
	}
	s.playing = true
	s.paused = false
	s.pausedPos = 0
	s.position = 0
	t := *s.current
	return &t
}

func (s *Session) Queue() []engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *Session) History() []engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Track, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// ClearPlayback empties current/queue/history and drops the playback flags.
// This is the "stopped" state: current is nil and both lists are empty.
func (s *Session) ClearPlayback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.queue = nil
	s.history = nil
	s.playing = false
	s.paused = false
	s.position = 0
	s.pausedPos = 0
}

// --- render snapshot ---

// Snapshot is an immutable view for the renderer.
type Snapshot struct {
	Current    *engine.Track
	Queue      []engine.Track
	HistoryLen int
	Playing    bool
	Paused     bool
	Position   time.Duration
	Volume     int
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		HistoryLen: len(s.history),
		Playing:    s.playing,
		Paused:     s.paused,
		Position:   s.position,
		Volume:     s.volume,
	}
	if s.paused {
		snap.Position = s.pausedPos
	}
	if s.current != nil {
		t := *s.current
		snap.Current = &t
	}
	snap.Queue = make([]engine.Track, len(s.queue))
	copy(snap.Queue, s.queue)
	return snap
}
