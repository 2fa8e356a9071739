package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes each command as JSON to <prefix>/<room-slug>/settings.
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

// DialMQTT connects to broker and returns a sink on it.
func DialMQTT(broker, clientID, prefix string, timeout time.Duration) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return NewMQTTSink(c, prefix, timeout), nil
}

// NewMQTTSink wraps an already connected client.
func NewMQTTSink(client mqtt.Client, prefix string, timeout time.Duration) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix, timeout: timeout}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Topic returns the topic commands for room are published on.
func (s *MQTTSink) Topic(cmd Command) string {
	return s.prefix + "/" + Slug(cmd.Room) + "/settings"
}

func (s *MQTTSink) Publish(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	token := s.client.Publish(s.Topic(cmd), 1, false, payload)
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("mqtt publish %s: timed out", s.Topic(cmd))
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
