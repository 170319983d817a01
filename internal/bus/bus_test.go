package bus

import (
	"testing"
	"time"
)

type wild struct{ sw byte }
type multiWild struct{ mw byte }

func TestBasicPubSub(t *testing.T) {
	b := New(4, wild{}, multiWild{})
	conn := b.NewConnection()

	sub := conn.Subscribe(T(uint16(1), uint16(2)))
	conn.Publish(conn.NewMessage(T(uint16(1), uint16(2)), "hello", false))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hello" {
			t.Errorf("expected payload 'hello', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestMultiWildcardMatchesEverything(t *testing.T) {
	b := New(4, wild{}, multiWild{})
	conn := b.NewConnection()

	sub := conn.Subscribe(T(multiWild{}))
	conn.Publish(conn.NewMessage(T(uint16(7), uint16(9)), "edge", false))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "edge" {
			t.Errorf("expected payload 'edge', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for wildcard message")
	}
}

func TestUnmatchedTopicIsNotDelivered(t *testing.T) {
	b := New(4, wild{}, multiWild{})
	conn := b.NewConnection()

	sub := conn.Subscribe(T(uint16(1), uint16(2)))
	conn.Publish(conn.NewMessage(T(uint16(1), uint16(3)), "other", false))

	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected delivery: %v", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	b := New(4, wild{}, multiWild{})
	conn := b.NewConnection()
	sub := conn.Subscribe(T(uint16(1)))
	conn.Disconnect()

	_, ok := <-sub.Channel()
	if ok {
		t.Fatal("expected channel closed after Disconnect")
	}
}

func TestBoundedQueueDropsOldest(t *testing.T) {
	b := New(1, wild{}, multiWild{})
	conn := b.NewConnection()
	sub := conn.Subscribe(T(uint16(1)))

	conn.Publish(conn.NewMessage(T(uint16(1)), "first", false))
	conn.Publish(conn.NewMessage(T(uint16(1)), "second", false))

	got := <-sub.Channel()
	if got.Payload.(string) != "second" {
		t.Errorf("expected drop-oldest to leave 'second', got %v", got.Payload)
	}
}
