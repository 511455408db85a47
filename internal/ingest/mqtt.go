package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/xpanvictor/annotator/pkg/Logger"
)

// MQTTConfig holds the configuration for the MQTT receiver.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	// Group turns the subscription into a shared one ($share/<group>/<topic>)
	// so that consumers in the same group split the messages between them.
	Group          string
	QoS            byte
	ConnectTimeout time.Duration
	// Buffer is the number of messages held between the client and Receive.
	Buffer int
}

// MQTTReceiver consumes recording messages from a broker.
type MQTTReceiver struct {
	cfg      MQTTConfig
	client   mqtt.Client
	messages chan []byte
	done     chan struct{}
	once     sync.Once
	logger   *Logger.Logger
}

func newMQTTReceiver(cfg MQTTConfig, logger *Logger.Logger) *MQTTReceiver {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = Logger.Nop()
	}
	return &MQTTReceiver{
		cfg:      cfg,
		messages: make(chan []byte, cfg.Buffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// NewMQTTReceiver connects to the broker and subscribes. The subscription
// is renewed on every reconnect.
func NewMQTTReceiver(cfg MQTTConfig, logger *Logger.Logger) (*MQTTReceiver, error) {
	r := newMQTTReceiver(cfg, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(r.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	opts.SetOnConnectHandler(r.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		r.logger.Warnf("mqtt connection lost: %v", err)
	})

	r.client = mqtt.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(r.cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out after %v", cfg.Broker, r.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return r, nil
}

func (r *MQTTReceiver) topic() string {
	if r.cfg.Group == "" {
		return r.cfg.Topic
	}
	return "$share/" + r.cfg.Group + "/" + r.cfg.Topic
}

func (r *MQTTReceiver) onConnect(c mqtt.Client) {
	topic := r.topic()
	token := c.Subscribe(topic, r.cfg.QoS, r.onMessage)
	if token.Wait() && token.Error() != nil {
		r.logger.Errorf("mqtt subscribe %s failed: %v", topic, token.Error())
		return
	}
	r.logger.Infof("mqtt subscribed to %s (qos %d)", topic, r.cfg.QoS)
}

// onMessage blocks while the buffer is full, which holds back the client's
// delivery (and acknowledgement) until the loop catches up.
func (r *MQTTReceiver) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case r.messages <- payload:
	case <-r.done:
	}
}

// Receive implements Receiver
func (r *MQTTReceiver) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrReceiverClosed
	case payload := <-r.messages:
		return payload, nil
	}
}

// Close unsubscribes and disconnects. Safe to call more than once.
func (r *MQTTReceiver) Close() error {
	r.once.Do(func() {
		close(r.done)
		if r.client != nil && r.client.IsConnected() {
			r.client.Unsubscribe(r.topic()).WaitTimeout(time.Second)
			r.client.Disconnect(250)
		}
	})
	return nil
}
