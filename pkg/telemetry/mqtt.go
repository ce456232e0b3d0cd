package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 2 * time.Second

// MQTTPublisher is a Sink that publishes events as JSON to
// <topic>/<kind>.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger
}

var _ Sink = (*MQTTPublisher)(nil)

// DialMQTT connects to broker and returns a publisher for topic.
func DialMQTT(broker, clientID, topic string, log *slog.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, token.Error())
	}
	return NewMQTTPublisher(c, topic, log), nil
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client, topic string, log *slog.Logger) *MQTTPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &MQTTPublisher{client: client, topic: topic, log: log}
}

// Publish sends ev without waiting for the broker.
func (p *MQTTPublisher) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event", "err", err)
		return
	}

	topic := p.topic + "/" + ev.Kind
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.log.Warn("mqtt publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			p.log.Warn("mqtt publish failed", "topic", topic, "err", err)
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
