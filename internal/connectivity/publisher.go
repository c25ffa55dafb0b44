package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"airmonitor/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
)

// Publisher sends telemetry to the cloud time-series backend.
type Publisher interface {
	Publish(ctx context.Context, t models.Telemetry) error
	Close() error
}

// Cloud backends.
const (
	BackendMQTT  = "mqtt"
	BackendKafka = "kafka"
)

// PublisherConfig selects and configures a backend.
type PublisherConfig struct {
	Backend  string
	Brokers  []string
	Topic    string
	ClientID string
	Timeout  time.Duration
}

// NewPublisher builds the publisher for cfg.Backend. Neither backend connects
// until the first Publish.
func NewPublisher(cfg PublisherConfig) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("cloud: no brokers configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	switch cfg.Backend {
	case BackendMQTT:
		opts := mqtt.NewClientOptions()
		for _, b := range cfg.Brokers {
			opts.AddBroker(b)
		}
		opts.SetClientID(cfg.ClientID)
		opts.SetConnectTimeout(cfg.Timeout)
		opts.SetAutoReconnect(true)
		return newMQTTPublisher(mqtt.NewClient(opts), cfg.Topic, cfg.Timeout), nil
	case BackendKafka:
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: cfg.Timeout,
		}
		return newKafkaPublisher(w), nil
	default:
		return nil, fmt.Errorf("cloud: unknown backend %q", cfg.Backend)
	}
}

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	IsConnected() bool
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes JSON telemetry with QoS 1.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
}

func newMQTTPublisher(c mqttClient, topic string, timeout time.Duration) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic, timeout: timeout}
}

func (p *MQTTPublisher) Publish(ctx context.Context, t models.Telemetry) error {
	if !p.client.IsConnected() {
		if err := p.wait(ctx, p.client.Connect()); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	if err := p.wait(ctx, p.client.Publish(p.topic+"/"+t.DeviceID, 1, false, payload)); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) wait(ctx context.Context, tok mqtt.Token) error {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out")
	}
}

func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}

// kafkaWriter is the subset of kafka.Writer used here.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes telemetry keyed by device id.
type KafkaPublisher struct {
	writer kafkaWriter
}

func newKafkaPublisher(w kafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, t models.Telemetry) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	msg := kafka.Message{Key: []byte(t.DeviceID), Value: payload, Time: t.Timestamp}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
