package discord

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
)

// Transport adapts a discordgo session to the message surface the player UI
// drives. It also owns the component collectors: button presses arriving on
// the gateway are routed here by message ID.
type Transport struct {
	dg  *discordgo.Session
	ttl time.Duration

	mu         sync.Mutex
	collectors map[string]*collector
}

func NewTransport(dg *discordgo.Session, collectorTTL time.Duration) *Transport {
	return &Transport{
		dg:         dg,
		ttl:        collectorTTL,
		collectors: make(map[string]*collector),
	}
}

func (t *Transport) Send(channelID string, p *nowplaying.Payload) (*session.MessageRef, error) {
	msg, err := t.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{p.Embed},
		Components: p.Components,
	})
	if err != nil {
		return nil, mapTransportError(err)
	}
	return &session.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (t *Transport) Edit(ref *session.MessageRef, p *nowplaying.Payload) error {
	embeds := []*discordgo.MessageEmbed{p.Embed}
	components := p.Components
	_, err := t.dg.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Embeds:     &embeds,
		Components: &components,
	})
	return mapTransportError(err)
}

func (t *Transport) Delete(ref *session.MessageRef) error {
	return mapTransportError(t.dg.ChannelMessageDelete(ref.ChannelID, ref.MessageID))
}

func (t *Transport) Exists(ref *session.MessageRef) bool {
	if ref == nil {
		return false
	}
	_, err := t.dg.ChannelMessage(ref.ChannelID, ref.MessageID)
	return err == nil
}

// SendText posts a plain one-off chat message outside the player UI.
func (t *Transport) SendText(channelID, content string) error {
	_, err := t.dg.ChannelMessageSend(channelID, content)
	return mapTransportError(err)
}

// Collect binds a collector for the message's buttons. It expires after the
// configured TTL, firing onEnd exactly once; Stop unbinds silently.
func (t *Transport) Collect(ref *session.MessageRef, onAction func(action string), onEnd func()) (session.Stopper, error) {
	if ref == nil {
		return nil, errors.New("nil message ref")
	}

	c := &collector{
		transport: t,
		messageID: ref.MessageID,
		onAction:  onAction,
		onEnd:     onEnd,
	}
	c.timer = time.AfterFunc(t.ttl, c.expire)

	t.mu.Lock()
	if old, ok := t.collectors[ref.MessageID]; ok {
		old.stopSilent()
	}
	t.collectors[ref.MessageID] = c
	t.mu.Unlock()

	return c, nil
}

// Dispatch routes one component press to the collector bound to the message.
// Reports false when no collector is listening (stale or foreign message).
func (t *Transport) Dispatch(messageID, action string) bool {
	t.mu.Lock()
	c, ok := t.collectors[messageID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	c.onAction(action)
	return true
}

func (t *Transport) unbind(c *collector) {
	t.mu.Lock()
	if cur, ok := t.collectors[c.messageID]; ok && cur == c {
		delete(t.collectors, c.messageID)
	}
	t.mu.Unlock()
}

type collector struct {
	transport *Transport
	messageID string
	onAction  func(string)
	onEnd     func()
	timer     *time.Timer
	once      sync.Once
}

// Stop unbinds the collector without firing onEnd.
func (c *collector) Stop() {
	c.stopSilent()
}

func (c *collector) stopSilent() {
	c.once.Do(func() {
		c.timer.Stop()
		c.transport.unbind(c)
	})
}

func (c *collector) expire() {
	c.once.Do(func() {
		c.transport.unbind(c)
		if c.onEnd != nil {
			c.onEnd()
		}
	})
}

// mapTransportError translates discordgo failures into the sentinel errors
// the safe wrapper understands.
func mapTransportError(err error) error {
	if err == nil {
		return nil
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return nowplaying.ErrNotFound
		}
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return &nowplaying.RateLimitedError{RetryAfter: rl.RetryAfter}
	}

	return err
}
