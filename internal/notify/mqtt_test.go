package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"alpha_innotec_planner/internal/config"
)

// stubToken completes immediately with err.
type stubToken struct {
	err      error
	complete bool
}

func (t *stubToken) Wait() bool                     { return t.complete }
func (t *stubToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}
func (t *stubToken) Error() error { return t.err }

// stubClient embeds the interface so only Publish and Disconnect need bodies.
type stubClient struct {
	mqtt.Client
	token        *stubToken
	topic        string
	qos          byte
	retained     bool
	payload      []byte
	disconnected bool
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.retained = topic, qos, retained
	c.payload, _ = payload.([]byte)
	return c.token
}

func (c *stubClient) Disconnect(uint) { c.disconnected = true }

func TestMQTT_PublishJSON(t *testing.T) {
	client := &stubClient{token: &stubToken{complete: true}}
	p := NewMQTT(client, "planner/run", nil)

	if err := p.Publish(context.Background(), map[string]any{"runId": "abc", "disinfection": true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.topic != "planner/run" || client.qos != 1 || !client.retained {
		t.Fatalf("unexpected publish options: %+v", client)
	}
	var got map[string]any
	if err := json.Unmarshal(client.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["runId"] != "abc" || got["disinfection"] != true {
		t.Fatalf("payload = %v", got)
	}

	p.Close()
	if !client.disconnected {
		t.Fatalf("Close must disconnect")
	}
}

func TestMQTT_PublishErrors(t *testing.T) {
	broken := errors.New("not connected")
	p := NewMQTT(&stubClient{token: &stubToken{complete: true, err: broken}}, "t", nil)
	if err := p.Publish(context.Background(), "x"); !errors.Is(err, broken) {
		t.Fatalf("expected broker error, got %v", err)
	}

	p = NewMQTT(&stubClient{token: &stubToken{}}, "t", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := p.Publish(ctx, "x"); err == nil {
		t.Fatalf("expected timeout error")
	}

	if err := p.Publish(context.Background(), func() {}); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestNew_NoBrokerIsNop(t *testing.T) {
	p, err := New(config.MQTTConfig{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := p.(Nop); !ok {
		t.Fatalf("expected Nop publisher, got %T", p)
	}
	if err := p.Publish(context.Background(), struct{}{}); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
}
