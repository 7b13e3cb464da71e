package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names. The task store publishes the task.* events after each
// mutation; the alarm sweep publishes alarm.fired after disarming a fired
// task. The controller subscribes to re-render the displayed day.
const (
	TaskAdded   = "task.added"
	TaskDeleted = "task.deleted"
	TaskToggled = "task.toggled"
	AlarmFired  = "alarm.fired"
)

// Event is an in-memory signal between the store, the sweep and the
// controller. Publishers run on hot paths (every sweep tick, every UI
// mutation), so Publish never blocks: a subscriber that falls behind its
// buffer loses events. For this reason Data carries display hints only —
// a Day, a task snapshot — never anything the store is the source of
// truth for.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines; delivery
// happens on the publisher's stack.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers first; the send attempts happen lock-free.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking: a full buffer drops the event. An unsubscribe
		// racing with the snapshot may have closed the channel already,
		// so the send panic is recovered.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Publish recovers from the send-on-closed race.
			close(ch)
		})
	}
	return ch, unsub
}
