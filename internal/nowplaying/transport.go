package nowplaying

import (
	"errors"
	"fmt"
	"log"
	"time"

	"lavabot/internal/session"
)

// ErrNotFound marks a message that no longer exists on the chat transport.
var ErrNotFound = errors.New("message not found")

// RateLimitedError carries the server-specified retry delay.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
}

// Transport is the chat client surface the UI manager needs. The discordgo
// adapter implements it in production; tests use a fake.
type Transport interface {
	Send(channelID string, p *Payload) (*session.MessageRef, error)
	Edit(ref *session.MessageRef, p *Payload) error
	Delete(ref *session.MessageRef) error

	// Exists verifies the underlying message is still present.
	Exists(ref *session.MessageRef) bool

	// Collect binds a component-interaction collector to the message.
	// onAction receives the pressed control's action identifier; onEnd fires
	// once on natural expiry. The returned Stopper unbinds without firing
	// onEnd.
	Collect(ref *session.MessageRef, onAction func(action string), onEnd func()) (session.Stopper, error)
}

// SafeTransport wraps edit/delete with the tolerant semantics every caller
// relies on: a missing message is success, a rate limit is retried once with
// the server delay, anything else propagates.
type SafeTransport struct {
	transport Transport
}

func NewSafeTransport(t Transport) *SafeTransport {
	return &SafeTransport{transport: t}
}

// Edit edits the message. A nil ref resolves immediately. Reports gone=true
// when the message no longer exists; callers drop their handle on that.
func (st *SafeTransport) Edit(ref *session.MessageRef, p *Payload) (gone bool, err error) {
	if ref == nil {
		return false, nil
	}
	err = st.retryOnce(func() error { return st.transport.Edit(ref, p) })
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	return false, err
}

// Delete deletes the message. A nil ref or an already-gone message both
// resolve silently.
func (st *SafeTransport) Delete(ref *session.MessageRef) error {
	if ref == nil {
		return nil
	}
	err := st.retryOnce(func() error { return st.transport.Delete(ref) })
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// retryOnce runs fn, sleeping and repeating exactly once on a rate limit.
func (st *SafeTransport) retryOnce(fn func() error) error {
	err := fn()
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		log.Printf("[WARN] [Transport] Rate limited, retrying in %v", rl.RetryAfter)
		time.Sleep(rl.RetryAfter)
		err = fn()
	}
	return err
}
