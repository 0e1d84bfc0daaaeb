package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"energy-optimizer/internal/optimization/application"
)

const (
	defaultTopicPrefix = "energy_optimizer"
	publishQoS         = 1
	publishTimeout     = 5 * time.Second
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher publishes optimization summaries as JSON.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt publisher: broker address is required")
	}
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "energy-optimizer"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqtt.Client, topicPrefix string) *MQTTPublisher {
	topicPrefix = strings.Trim(topicPrefix, "/")
	if topicPrefix == "" {
		topicPrefix = defaultTopicPrefix
	}
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix}
}

// Topic returns the topic a tenant's summaries go to.
func (p *MQTTPublisher) Topic(tenantID string) string {
	return fmt.Sprintf("%s/optimization/%s", p.topicPrefix, tenantID)
}

// PublishOptimization sends the summary with QoS 1.
func (p *MQTTPublisher) PublishOptimization(ctx context.Context, summary application.OptimizationSummary) error {
	if p == nil || p.client == nil {
		return errors.New("mqtt publisher: not connected")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	token := p.client.Publish(p.Topic(summary.TenantID), publishQoS, false, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !token.WaitTimeout(timeout) {
		return errors.New("mqtt publisher: publish timed out")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// LoggingPublisher writes summaries to a logger when no broker is configured.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a LoggingPublisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishOptimization logs the summary as JSON.
func (p *LoggingPublisher) PublishOptimization(ctx context.Context, summary application.OptimizationSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	p.logger.Printf("optimization result: %s", payload)
	return nil
}
