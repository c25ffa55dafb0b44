package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"airmonitor/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return false }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTT struct {
	connected  bool
	connectErr error
	pubToken   mqtt.Token
	topic      string
	qos        byte
	payload    []byte
	connects   int
	disconnect int
}

func (c *fakeMQTT) IsConnected() bool { return c.connected }

func (c *fakeMQTT) Connect() mqtt.Token {
	c.connects++
	if c.connectErr == nil {
		c.connected = true
	}
	return doneToken(c.connectErr)
}

func (c *fakeMQTT) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic, c.qos = topic, qos
	c.payload, _ = payload.([]byte)
	if c.pubToken != nil {
		return c.pubToken
	}
	return doneToken(nil)
}

func (c *fakeMQTT) Disconnect(uint) { c.disconnect++; c.connected = false }

func sampleTelemetry() models.Telemetry {
	return models.Telemetry{
		DeviceID:   "A4CF12F0E1B2",
		Timestamp:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		DeviceType: 7,
		MainValue:  612,
		CO2:        612,
		Battery:    87,
	}
}

func TestMQTTPublisher_ConnectsLazilyAndPublishes(t *testing.T) {
	c := &fakeMQTT{}
	p := newMQTTPublisher(c, "airmonitor/telemetry", time.Second)

	if err := p.Publish(context.Background(), sampleTelemetry()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Publish(context.Background(), sampleTelemetry()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if c.connects != 1 {
		t.Fatalf("connects = %d, want 1", c.connects)
	}
	if c.topic != "airmonitor/telemetry/A4CF12F0E1B2" || c.qos != 1 {
		t.Fatalf("topic=%q qos=%d", c.topic, c.qos)
	}
	var got models.Telemetry
	if err := json.Unmarshal(c.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.MainValue != 612 || got.Battery != 87 {
		t.Fatalf("payload = %+v", got)
	}

	_ = p.Close()
	if c.disconnect != 1 {
		t.Fatalf("expected disconnect on close")
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	boom := errors.New("refused")

	c := &fakeMQTT{connectErr: boom}
	if err := newMQTTPublisher(c, "t", time.Second).Publish(context.Background(), sampleTelemetry()); !errors.Is(err, boom) {
		t.Fatalf("connect error: got %v", err)
	}

	c = &fakeMQTT{connected: true, pubToken: pendingToken()}
	err := newMQTTPublisher(c, "t", 20*time.Millisecond).Publish(context.Background(), sampleTelemetry())
	if err == nil {
		t.Fatalf("expected timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c = &fakeMQTT{connected: true, pubToken: pendingToken()}
	if err := newMQTTPublisher(c, "t", time.Minute).Publish(ctx, sampleTelemetry()); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: got %v", err)
	}
}

type fakeKafka struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeKafka) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafka) Close() error { w.closed = true; return nil }

func TestKafkaPublisher_KeysByDevice(t *testing.T) {
	w := &fakeKafka{}
	p := newKafkaPublisher(w)
	tel := sampleTelemetry()

	if err := p.Publish(context.Background(), tel); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != tel.DeviceID || !w.msgs[0].Time.Equal(tel.Timestamp) {
		t.Fatalf("messages = %+v", w.msgs)
	}

	w.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), tel); !errors.Is(err, w.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	_ = p.Close()
	if !w.closed {
		t.Fatalf("writer not closed")
	}
}

func TestNewPublisher_Validation(t *testing.T) {
	if _, err := NewPublisher(PublisherConfig{Backend: BackendMQTT}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewPublisher(PublisherConfig{Backend: "influx", Brokers: []string{"x"}}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	p, err := NewPublisher(PublisherConfig{Backend: BackendKafka, Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil {
		t.Fatalf("kafka: %v", err)
	}
	_ = p.Close()
}
