package phoenixcore

import (
	"sync"

	"github.com/breez/phoenixcore/lnwire"
)

// EventKind enumerates the domain events the orchestrator's event bus
// carries to the mobile app layer, including user-facing payment outcomes.
type EventKind uint8

const (
	EventPaymentReceived EventKind = iota
	EventPaymentProgress
	EventPaymentSent
	EventPaymentNotSent
	EventChannelClosing
	EventLegacyMigrationInfo
)

// Event is one item broadcast on the event bus.
type Event struct {
	Kind        EventKind
	PaymentHash [32]byte
	ChanID      lnwire.ChannelID
	Detail      string
}

// eventSubBuffer is how many events a slow subscriber may lag behind
// before Publish blocks the orchestrator's command loop. Spec §4.2 asks
// for "backpressure-aware suspension" rather than dropping events, so
// Publish intentionally blocks rather than discarding once a subscriber's
// buffer fills; callers wanting never to stall the command loop should
// drain their channel promptly.
const eventSubBuffer = 32

// EventBus broadcasts Events to every current subscriber and replays a
// small backlog to subscribers that join mid-stream, so a UI attaching
// after startup still sees the events it missed during the replay
// window.
type EventBus struct {
	mu        sync.Mutex
	subs      map[int]chan Event
	nextID    int
	replay    []Event
	replayCap int
}

// NewEventBus returns a bus that replays up to replayCap recent events to
// each new subscriber.
func NewEventBus(replayCap int) *EventBus {
	return &EventBus{
		subs:      make(map[int]chan Event),
		replayCap: replayCap,
	}
}

// Subscribe registers a new listener, returning its id (for Unsubscribe),
// the channel new events arrive on, and the current replay backlog.
func (b *EventBus) Subscribe() (int, <-chan Event, []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, eventSubBuffer)
	b.subs[id] = ch

	backlog := make([]Event, len(b.replay))
	copy(backlog, b.replay)
	return id, ch, backlog
}

// Unsubscribe releases a subscription and closes its channel.
func (b *EventBus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish appends ev to the replay backlog and blocks until every current
// subscriber's buffer has room for it. It is called from the orchestrator's
// single command-processing goroutine, so a wedged subscriber stalls new
// commands from being processed — this is the same kind of suspension
// boundary as a storage write or a tip/feerate update.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	b.replay = append(b.replay, ev)
	if len(b.replay) > b.replayCap {
		b.replay = b.replay[len(b.replay)-b.replayCap:]
	}
	chans := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chans = append(chans, ch)
	}
	b.mu.Unlock()

	for _, ch := range chans {
		ch <- ev
	}
}
