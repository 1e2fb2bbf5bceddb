// Package events implements the six named progress/observer events
// emitted by the comparer and executor, delivered over a channel per
// subscriber rather than via callback registration.
package events

import (
	"sync"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/plan"
)

// Kind identifies which of the six named events an Event carries.
type Kind int

const (
	BeforeComparing Kind = iota
	OnComparing
	AfterComparing
	BeforeSynching
	OnSynching
	AfterSynching
)

func (k Kind) String() string {
	switch k {
	case BeforeComparing:
		return "before_comparing"
	case OnComparing:
		return "on_comparing"
	case AfterComparing:
		return "after_comparing"
	case BeforeSynching:
		return "before_synching"
	case OnSynching:
		return "on_synching"
	case AfterSynching:
		return "after_synching"
	default:
		return "unknown"
	}
}

// Event is a tagged struct carrying whichever payload its Kind
// defines; fields irrelevant to a given Kind are left zero.
type Event struct {
	Kind Kind

	// Path, Processed, Total are set on OnComparing.
	Path      string
	Processed int
	Total     int

	// Plan is set on AfterComparing.
	Plan *plan.Tree

	// Active is set on OnSynching: the queued-plus-in-flight actions at
	// the moment of the tick.
	Active []action.Action
}

// subscriberBuffer bounds how many undelivered events a slow observer
// can accumulate before further events are dropped for it.
const subscriberBuffer = 16

// Broadcaster fans Event values out to every current subscriber.
// Delivery is FIFO per subscriber channel; a subscriber whose buffer is
// full loses whatever is published until it drains, before_*/after_*
// events included, rather than blocking the producer.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer, returning its event channel and
// a function to unregister it and close the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish delivers e to every current subscriber, dropping it for any
// subscriber whose buffer is currently full.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
