package mqttbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
)

// commandTimeout bounds the store work done for one inbound command.
const commandTimeout = 10 * time.Second

// Command actions, named after the HTTP routes.
const (
	ActionToggle    = "toggle"
	ActionSetValue  = "set_value"
	ActionSetEffect = "set_effect"
	ActionSetACMode = "set_ac_mode"
	ActionSetMode   = "set_mode"
)

// Errors returned by HandleCommand.
var (
	ErrBadTopic      = errors.New("mqttbridge: topic has no device id")
	ErrBadPayload    = errors.New("mqttbridge: payload is not a JSON command")
	ErrUnknownAction = errors.New("mqttbridge: unknown action")
)

// Client is the broker surface the bridge uses. *mqtt.Client implements it.
type Client interface {
	Topics() mqtt.Topics
	QoS() byte
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller applies device commands. *device.Store implements it.
type Controller interface {
	Toggle(ctx context.Context, id int64) (*device.Device, error)
	SetValue(ctx context.Context, id int64, value int) (*device.Device, error)
	SetLightEffect(ctx context.Context, id int64, effect string) (*device.Device, error)
	SetACMode(ctx context.Context, id int64, mode string) (*device.Device, error)
	SetDeviceMode(ctx context.Context, id int64, mode string) (*device.Device, error)
}

// Logger is the logging surface the bridge uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Command is the JSON body of an inbound device command.
type Command struct {
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
	Effect string `json:"effect,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// Bridge publishes device changes and executes inbound commands.
type Bridge struct {
	client     Client
	controller Controller
	logger     Logger
}

// New creates a Bridge. Call Start to begin receiving commands.
func New(client Client, controller Controller, logger Logger) *Bridge {
	return &Bridge{client: client, controller: controller, logger: logger}
}

// Start subscribes to the command topic of every device.
func (b *Bridge) Start() error {
	topic := b.client.Topics().AllDeviceCommands()
	if err := b.client.Subscribe(topic, b.client.QoS(), b.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to device commands: %w", err)
	}
	b.logger.Info("listening for MQTT device commands", "topic", topic)
	return nil
}

// DeviceChanged publishes d as the retained state of its device.
func (b *Bridge) DeviceChanged(_ context.Context, d device.Device) {
	payload, err := json.Marshal(d)
	if err != nil {
		b.logger.Warn("encoding device state failed", "id", d.ID, "error", err)
		return
	}

	if err := b.client.PublishRetained(b.client.Topics().DeviceState(d.ID), payload); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			b.logger.Debug("MQTT offline, device state not published", "id", d.ID)
			return
		}
		b.logger.Warn("publishing device state failed", "id", d.ID, "error", err)
	}
}

// HandleCommand executes one command message. The fresh device state
// reaches subscribers through DeviceChanged, not through a reply.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	id, err := deviceIDFromTopic(topic)
	if err != nil {
		return err
	}

	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := b.execute(ctx, id, cmd); err != nil {
		return fmt.Errorf("device %d %s: %w", id, cmd.Action, err)
	}

	b.logger.Debug("MQTT command applied", "id", id, "action", cmd.Action)
	return nil
}

func (b *Bridge) execute(ctx context.Context, id int64, cmd Command) (*device.Device, error) {
	switch cmd.Action {
	case ActionToggle:
		return b.controller.Toggle(ctx, id)
	case ActionSetValue:
		value, err := device.ParseValue(cmd.Value)
		if err != nil {
			return nil, err
		}
		return b.controller.SetValue(ctx, id, value)
	case ActionSetEffect:
		return b.controller.SetLightEffect(ctx, id, cmd.Effect)
	case ActionSetACMode:
		return b.controller.SetACMode(ctx, id, cmd.Mode)
	case ActionSetMode:
		return b.controller.SetDeviceMode(ctx, id, cmd.Mode)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, cmd.Action)
	}
}

// deviceIDFromTopic reads the id from the last topic level.
func deviceIDFromTopic(topic string) (int64, error) {
	last := topic[strings.LastIndexByte(topic, '/')+1:]
	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	return id, nil
}
