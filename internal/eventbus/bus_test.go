package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: TaskAdded, Data: "payload"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != TaskAdded || e.Data != "payload" {
				t.Fatalf("sub %d: event mismatch %+v", i, e)
			}
			if e.Time.IsZero() {
				t.Fatalf("sub %d: timestamp not filled", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub %d: no event", i)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TaskAdded})
	b.Publish(Event{Type: TaskDeleted}) // buffer full: dropped, not blocked

	if e := <-ch; e.Type != TaskAdded {
		t.Fatalf("event = %q", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %q", e.Type)
	default:
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)

	unsub()
	unsub() // second call is a no-op

	// Channel is closed.
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	// Publishing into a bus whose subscriber just left must not panic.
	b.Publish(Event{Type: AlarmFired})
}
