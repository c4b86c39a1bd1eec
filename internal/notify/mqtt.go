package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/logger"
)

const publishTimeout = 10 * time.Second

// Publisher sends run results somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, v any) error
	Close()
}

// NewClient connects to the broker in cfg.
func NewClient(cfg config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(publishTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return c, nil
}

// New returns an MQTT publisher, or a no-op one when no broker is set.
func New(cfg config.MQTTConfig, log *logger.Logger) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}
	c, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return NewMQTT(c, cfg.Topic, log), nil
}

// MQTT publishes JSON documents to a single retained topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    *logger.Logger
}

func NewMQTT(client mqtt.Client, topic string, log *logger.Logger) *MQTT {
	return &MQTT{client: client, topic: topic, log: logger.OrNop(log)}
}

func (m *MQTT) Publish(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	token := m.client.Publish(m.topic, 1, true, payload)

	timeout := publishTimeout
	if d, ok := ctx.Deadline(); ok {
		timeout = time.Until(d)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: timed out after %s", m.topic, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	m.log.Debugw("mqtt_published", "topic", m.topic, "bytes", len(payload))
	return nil
}

// Close disconnects, waiting briefly for in-flight messages.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, any) error { return nil }
func (Nop) Close()                             {}
