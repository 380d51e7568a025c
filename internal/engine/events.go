package engine

type EventType string

const (
	EventTrackStart     EventType = "track_start"
	EventTrackEnd       EventType = "track_end"
	EventTrackException EventType = "track_exception"
	EventQueueEnd       EventType = "queue_end"
	EventNodeConnect    EventType = "node_connect"
	EventNodeDisconnect EventType = "node_disconnect"
	EventNodeError      EventType = "node_error"
	EventNodeDestroy    EventType = "node_destroy"
)

// Event is one engine-side occurrence delivered to the bot's event loop.
// Guild-scoped events carry GuildID; node-scoped events carry NodeName.
type Event struct {
	Type     EventType
	GuildID  string
	NodeName string
	Track    *Track
	Reason   string
	Err      error
}

// Bus is a buffered event channel with non-blocking publish. Slow consumers
// drop events instead of stalling the node read loop.
type Bus struct {
	ch chan Event
}

func NewBus(size int) *Bus {
	return &Bus{ch: make(chan Event, size)}
}

func (b *Bus) Publish(evt Event) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

func (b *Bus) Events() <-chan Event {
	return b.ch
}
