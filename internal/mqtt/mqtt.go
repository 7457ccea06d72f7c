package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Ushasricpu/paper/internal/config"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// TelemetryHandler stores or otherwise consumes one validated message.
type TelemetryHandler func(t telemetry.Telemetry) error

type Subscriber struct {
	client     mqtt.Client
	cfg        config.Config
	logger     *slog.Logger
	mu         sync.RWMutex
	connected  bool
	subscribed bool

	stopCh   chan struct{}
	stopOnce sync.Once

	// MessageHandler is called for each valid telemetry message
	MessageHandler TelemetryHandler
}

// MQTTSubscriber interface for attaching message handlers
type MQTTSubscriber interface {
	SetMessageHandler(handler TelemetryHandler)
}

// SetMessageHandler sets the message handler for telemetry messages
func (s *Subscriber) SetMessageHandler(handler TelemetryHandler) {
	s.mu.Lock()
	s.MessageHandler = handler
	s.mu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MQTTBroker == "" || cfg.MQTTTopic == "" {
		return nil, fmt.Errorf("mqtt broker and topic are required")
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := clientOptions(cfg, cfg.MQTTClientID)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		// The session is clean, so a reconnect needs a fresh subscription.
		s.mu.RLock()
		resubscribe := s.subscribed
		s.mu.RUnlock()
		if resubscribe {
			go func() {
				if err := s.subscribe(); err != nil {
					logger.Error("mqtt resubscribe failed", "topic", cfg.MQTTTopic, "error", err)
				}
			}()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

func clientOptions(cfg config.Config, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	return opts
}

// Connect establishes connection to the MQTT broker and subscribes to the configured topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := waitConnect(ctx, s.client, s.stopCh, s.IsConnected); err != nil {
		if ctx.Err() != nil {
			s.client.Disconnect(0)
		}
		return err
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

// waitConnect starts a connect attempt and waits for it while honoring ctx
// and stop.
func waitConnect(ctx context.Context, c mqtt.Client, stop <-chan struct{}, connected func() bool) error {
	select {
	case <-stop:
		return fmt.Errorf("mqtt client stopped")
	default:
	}

	if connected() {
		return nil
	}

	token := c.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return fmt.Errorf("mqtt client stopped")
		default:
		}
	}
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1)

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var t telemetry.Telemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		s.logger.Warn("failed to parse telemetry message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}
	if t.BusNo == "" {
		t.BusNo = busFromTopic(topic)
	}

	if err := ValidateTelemetry(t); err != nil {
		s.logger.Warn("invalid telemetry message",
			"topic", topic,
			"bus_no", t.BusNo,
			"error", err,
		)
		return
	}

	s.mu.RLock()
	handler := s.MessageHandler
	s.mu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(t); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"bus_no", t.BusNo,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed telemetry message",
		"bus_no", t.BusNo,
		"timestamp", t.Timestamp,
	)
}

// ValidateTelemetry checks the fields a stored reading needs.
func ValidateTelemetry(t telemetry.Telemetry) error {
	if t.BusNo == "" {
		return fmt.Errorf("bus_no is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if t.Latitude != nil && (*t.Latitude < -90 || *t.Latitude > 90) {
		return fmt.Errorf("latitude out of range: %f (must be -90..90)", *t.Latitude)
	}
	if t.Longitude != nil && (*t.Longitude < -180 || *t.Longitude > 180) {
		return fmt.Errorf("longitude out of range: %f (must be -180..180)", *t.Longitude)
	}
	if t.Latitude == nil && t.Longitude == nil && t.Temperature == nil {
		return fmt.Errorf("at least one of latitude, longitude or temperature_c is required")
	}
	return nil
}

// busFromTopic returns the bus segment of "buses/<bus_no>/telemetry".
func busFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "buses" && parts[2] == "telemetry" {
		return parts[1]
	}
	return ""
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	// Disconnect without holding s.mu to avoid lock contention/deadlocks.
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.mu.Lock()
	s.connected = false
	s.subscribed = false
	s.mu.Unlock()
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
