package mqtt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
)

// MessageHandler handles one received message. Handlers run on paho's
// goroutines and should return quickly; a returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// Logger receives handler failures.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a paho connection that remembers its subscriptions across
// reconnects and keeps a retained online/offline status on the broker.
// It is safe for concurrent use; the zero value behaves as disconnected.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics
	online atomic.Bool

	mu           sync.Mutex
	subs         map[string]subscription
	logger       Logger
	onConnect    func()
	onDisconnect func(error)
}

// Connect dials the broker and blocks until the first session is up or
// the connect timeout passes. Later drops are retried by paho.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: NewTopics(cfg.TopicPrefix),
		subs:   make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })

	c.paho = pahomqtt.NewClient(opts)
	if err := wait(c.paho.Connect(), defaultConnectTimeout); err != nil {
		// Stop the background retry loop paho started.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.online.Store(true)
	return c, nil
}

// connected runs on every (re)connect: it replays subscriptions, marks the
// process online and fires the connect hook.
func (c *Client) connected() {
	c.online.Store(true)

	c.mu.Lock()
	replay := maps.Clone(c.subs)
	hook := c.onConnect
	c.mu.Unlock()

	for _, topic := range slices.Sorted(maps.Keys(replay)) {
		sub := replay[topic]
		c.paho.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.paho.Publish(c.topics.SystemStatus(), c.QoS(), true,
		statusMessage(statusOnline, c.cfg.Broker.ClientID, ""))

	if hook != nil {
		hook()
	}
}

func (c *Client) lost(err error) {
	c.online.Store(false)

	c.mu.Lock()
	hook := c.onDisconnect
	c.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}

// Close leaves a retained offline status and disconnects. Calling it on a
// client that never connected is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		//nolint:errcheck // best effort; the last will covers a failure
		wait(c.paho.Publish(c.topics.SystemStatus(), c.QoS(), true,
			statusMessage(statusOffline, c.cfg.Broker.ClientID, "graceful_shutdown")), defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.online.Store(false)
	return nil
}

// HealthCheck fails with ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected combines our own view with paho's.
func (c *Client) IsConnected() bool {
	return c.online.Load() && c.paho != nil && c.paho.IsConnected()
}

// Topics returns the topic builders for the configured prefix.
func (c *Client) Topics() Topics { return c.topics }

// QoS is the configured default QoS, validated to 0..2 by config.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS) // #nosec G115
}

// SetOnConnect installs fn to run after every successful (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect installs fn to run when the connection drops.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets where handler errors and panics are reported.
func (c *Client) SetLogger(l Logger) {
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

func (c *Client) wrapHandler(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(h, msg.Topic(), msg.Payload())
	}
}

// dispatch runs h, converting a panic or an error into a log entry.
func (c *Client) dispatch(h MessageHandler, topic string, payload []byte) {
	c.mu.Lock()
	log := c.logger
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("mqtt handler panicked", "topic", topic, "panic", r)
		}
	}()
	if err := h(topic, payload); err != nil && log != nil {
		log.Warn("mqtt handler failed", "topic", topic, "error", err)
	}
}

// wait blocks on a paho token for at most d.
func wait(t pahomqtt.Token, d time.Duration) error {
	if !t.WaitTimeout(d) {
		return fmt.Errorf("timeout after %v", d)
	}
	return t.Error()
}
