package telemetry

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	payload []byte
}

// fakeClient records publishes; other methods are not used.
type fakeClient struct {
	mqtt.Client

	mu       sync.Mutex
	messages []message
	closed   bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic: topic, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeClient{}
	p := NewMQTTPublisher(client, "fetchbot/events", quiet())
	hub := NewHub(nil, p)

	hub.emit(Event{Kind: KindStep, Session: "abc", Step: 3, To: "EDGE_DROP_OFF", Commands: []string{"reverse(1600ms)"}})
	hub.emit(Event{Kind: KindEnded, Session: "abc", Outcome: "delivered"})
	p.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(client.messages))
	}
	if got := client.messages[0].topic; got != "fetchbot/events/step" {
		t.Errorf("topic = %q", got)
	}
	if got := client.messages[1].topic; got != "fetchbot/events/ended" {
		t.Errorf("topic = %q", got)
	}

	var ev Event
	if err := json.Unmarshal(client.messages[0].payload, &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ev.Session != "abc" || ev.Step != 3 || ev.To != "EDGE_DROP_OFF" || len(ev.Commands) != 1 {
		t.Errorf("event = %+v", ev)
	}
	if !client.closed {
		t.Error("client not disconnected")
	}
}
