// Package player defines the facade over the native media engine. The
// session core only ever talks to a Handle; the engine itself (mpv, an
// embedded decoder, a test fake) lives behind it.
package player

import (
	"context"
	"errors"
)

// ErrHandleReleased is returned by every read or control method once the
// underlying native resource has been torn down. Native handles may become
// invalid asynchronously, so call sites must treat this as a non-fatal
// "handle gone" signal and clean up their own timers and listeners rather
// than propagate it.
var ErrHandleReleased = errors.New("player handle released")

// Status is the coarse readiness state reported by the engine.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReadyToPlay
	StatusError
)

// String returns a human-readable label for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusReadyToPlay:
		return "ReadyToPlay"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// EventKind discriminates the small event set a handle emits.
type EventKind int

const (
	EventTimeUpdate EventKind = iota
	EventPlayingChange
	EventStatusChange
	EventSourceChange
)

// Event is one observation delivered to bound listeners.
type Event struct {
	Kind      EventKind
	Position  float64 // seconds; EventTimeUpdate
	IsPlaying bool    // EventPlayingChange
	Status    Status  // EventStatusChange
	Err       error   // EventStatusChange with StatusError
}

// Listener receives handle events. Called from the handle's event
// dispatch; implementations must not block.
type Listener func(Event)

// Subscription is one bound listener. Every Bind has exactly one
// corresponding Close; subscriptions are collected and torn down as a
// unit on phase exit.
type Subscription interface {
	Close()
}

// Source is a playable media source for the engine.
type Source struct {
	URI   string
	Title string
}

// Handle is the single mutable playback resource. Reads are guarded: once
// the handle is released every method returns ErrHandleReleased instead
// of panicking. At most one writer (initial bind or episode switch) may
// call Replace at a time; that exclusivity is owned by the session core,
// not enforced here.
type Handle interface {
	CurrentTime() (float64, error)
	Duration() (float64, error)
	Playing() (bool, error)

	Play() error
	Pause() error
	SeekBy(seconds float64) error
	SeekTo(seconds float64) error

	// Replace swaps the media source in place. The handle instance
	// survives the swap, so other subscribers keep their bindings and
	// the view does not flicker.
	Replace(ctx context.Context, src Source) error

	// Bind registers a listener for the handle's event stream.
	Bind(l Listener) Subscription

	// Release tears down the native resource. Idempotent.
	Release()
}

// SubscriptionSet collects subscriptions so they can be closed as one
// owned resource.
type SubscriptionSet struct {
	subs []Subscription
}

// Add appends a subscription to the set.
func (s *SubscriptionSet) Add(sub Subscription) {
	s.subs = append(s.subs, sub)
}

// Close closes every held subscription exactly once and empties the set.
func (s *SubscriptionSet) Close() {
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
}
