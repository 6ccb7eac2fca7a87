package events

import (
	"sync"
	"testing"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSlotAdded)

	bus.Publish(EventSlotAdded, Payload{"machine_id": int64(3)})

	select {
	case payload := <-sub:
		if payload["machine_id"] != int64(3) {
			t.Fatalf("unexpected payload: %v", payload)
		}
		if payload["event_id"] == "" || payload["event_id"] == nil {
			t.Fatal("expected event_id stamp")
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventHealth)

	// Overflow the subscriber buffer; Publish must drop, not block.
	for i := 0; i < 32; i++ {
		bus.Publish(EventHealth, Payload{"n": i})
	}

	drained := 0
	for {
		select {
		case <-sub:
			drained++
			continue
		default:
		}
		break
	}
	if drained == 0 || drained > cap(sub) {
		t.Fatalf("drained %d events, want between 1 and %d", drained, cap(sub))
	}
}

func TestBusPublishLeavesCallerPayloadUntouched(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSlotAdded)

	payload := Payload{"machine_id": int64(1)}
	bus.Publish(EventSlotAdded, payload)

	if _, stamped := payload["event_id"]; stamped {
		t.Fatal("Publish mutated the caller's payload map")
	}

	select {
	case delivered := <-sub:
		if delivered["event_id"] == nil {
			t.Fatal("delivered payload missing event_id stamp")
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBusConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					bus.Publish(EventSlotAdded, Payload{"n": 1})
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		sub := bus.Subscribe(EventSlotAdded)
		bus.Unsubscribe(EventSlotAdded, sub)
	}
	close(stop)
	wg.Wait()
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSlotRemoved)
	bus.Unsubscribe(EventSlotRemoved, sub)

	if _, open := <-sub; open {
		t.Fatal("expected subscriber channel to be closed")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventSlotRemoved, Payload{})
}
