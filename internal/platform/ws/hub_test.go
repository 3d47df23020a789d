package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(id string, topics ...string) *Client {
	return &Client{
		ID:     id,
		Topics: topics,
		Send:   make(chan []byte, 256),
	}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("client-1", TopicLabOrders)

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(TopicLabOrders) != 1 {
		t.Fatalf("expected 1 client on %s, got %d", TopicLabOrders, hub.TopicCount(TopicLabOrders))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("client-2", TopicLabResults)

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(TopicLabResults) != 0 {
		t.Fatalf("expected 0 clients on %s, got %d", TopicLabResults, hub.TopicCount(TopicLabResults))
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub()
	client := newTestClient("client-3", TopicLabOrders)

	hub.Register(client)
	hub.Unregister(client)
	// Second unregister must not panic on the closed Send channel.
	hub.Unregister(client)
}

func TestHub_BroadcastToTopic(t *testing.T) {
	hub := NewHub()

	subscriber := newTestClient("sub-1", TopicLabOrders)
	nonSubscriber := newTestClient("non-sub-1", TopicAppointments)

	hub.Register(subscriber)
	hub.Register(nonSubscriber)

	event := Event{
		Type:       "order.created",
		Topic:      TopicLabOrders,
		Resource:   "lab_order",
		ResourceID: "ord-1",
		Timestamp:  time.Now(),
	}

	hub.Broadcast(TopicLabOrders, event)

	select {
	case msg := <-subscriber.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != "order.created" {
			t.Fatalf("expected event type order.created, got %s", received.Type)
		}
		if received.ResourceID != "ord-1" {
			t.Fatalf("expected resource id ord-1, got %s", received.ResourceID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-nonSubscriber.Send:
		t.Fatal("non-subscriber should not have received event")
	default:
		// expected
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient("all-1", TopicLabOrders)
	c2 := newTestClient("all-2", TopicAppointments)

	hub.Register(c1)
	hub.Register(c2)

	hub.BroadcastAll(Event{Type: "system.notice", Timestamp: time.Now()})

	for _, c := range []*Client{c1, c2} {
		select {
		case <-c.Send:
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := newTestClient("dyn-1")
	hub.Register(client)

	hub.Subscribe(client, []string{TopicLabResults})
	if hub.TopicCount(TopicLabResults) != 1 {
		t.Fatalf("expected subscription to %s", TopicLabResults)
	}

	hub.Unsubscribe(client, []string{TopicLabResults})
	if hub.TopicCount(TopicLabResults) != 0 {
		t.Fatalf("expected unsubscription from %s", TopicLabResults)
	}
	if len(client.Topics) != 0 {
		t.Fatalf("expected no remaining topics, got %v", client.Topics)
	}
}

func TestHub_ProcessMessage(t *testing.T) {
	hub := NewHub()
	client := newTestClient("msg-1")
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{TopicLabOrders}})
	if hub.TopicCount(TopicLabOrders) != 1 {
		t.Fatal("expected subscribe action to register topic")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{TopicLabOrders}})
	if hub.TopicCount(TopicLabOrders) != 0 {
		t.Fatal("expected unsubscribe action to remove topic")
	}

	// Unknown actions are ignored.
	hub.ProcessMessage(client, ClientMessage{Action: "bogus", Topics: []string{TopicLabOrders}})
	if hub.TopicCount(TopicLabOrders) != 0 {
		t.Fatal("expected unknown action to be ignored")
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	client := newTestClient("pub-1", TopicLabResults)
	hub.Register(client)

	err := hub.Publish(context.Background(), Event{
		Type:      "result.entered",
		Topic:     TopicLabResults,
		Resource:  "lab_result",
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-client.Send:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive published event")
	}
}

func TestHub_FullSendBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "slow-1",
		Topics: []string{TopicLabOrders},
		Send:   make(chan []byte), // unbuffered, never drained
	}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(TopicLabOrders, Event{Type: "order.created", Topic: TopicLabOrders})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on slow client")
	}
}
