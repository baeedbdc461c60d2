// Package mqtt bridges the live amplifier state to an MQTT broker and accepts
// commands from it.
package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openbias/biasd/internal/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	maxReconnectInterval     = 60 * time.Second
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// MessageHandler is the callback signature for received messages.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	filter  string
	handler MessageHandler
}

// Client wraps paho.mqtt.golang. Subscriptions are restored on reconnect and
// the status topic is kept current: online on connect, offline on Close, and
// offline through the last will otherwise.
type Client struct {
	client pahomqtt.Client
	qos    byte
	status string

	subMu sync.RWMutex
	subs  []subscription
}

// Connect establishes a connection to the broker.
func Connect(cfg config.MQTTSettings, topics Topics) (*Client, error) {
	c := &Client{qos: byte(cfg.QoS), status: topics.Status()}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(c.status, payloadOffline, c.qos, true)

	opts.SetOnConnectHandler(func(pc pahomqtt.Client) {
		pc.Publish(c.status, c.qos, true, payloadOnline)
		c.subMu.RLock()
		defer c.subMu.RUnlock()
		for _, s := range c.subs {
			pc.Subscribe(s.filter, c.qos, c.wrap(s.handler))
		}
		slog.Info("mqtt: connected", "status_topic", c.status)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		slog.Warn("mqtt: connection lost", "err", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for filter. It is restored after reconnects.
func (c *Client) Subscribe(filter string, handler MessageHandler) error {
	c.subMu.Lock()
	c.subs = append(c.subs, subscription{filter: filter, handler: handler})
	c.subMu.Unlock()

	token := c.client.Subscribe(filter, c.qos, c.wrap(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Close publishes the offline marker and disconnects.
func (c *Client) Close() error {
	if c.client.IsConnected() {
		token := c.client.Publish(c.status, c.qos, true, payloadOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// wrap adapts handler to paho with panic recovery.
func (c *Client) wrap(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("mqtt: handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			slog.Warn("mqtt: handler returned error", "topic", msg.Topic(), "err", err)
		}
	}
}
