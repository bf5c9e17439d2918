// Package mqtt is the optional broker push path. It feeds the same
// listener fan-out as the WebSocket channel.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"piston_control/internal/logger"
	"piston_control/internal/models"
	"piston_control/internal/realtime"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	TopicPistonState  = "devices/+/pistons/+/state"
	TopicDeviceStatus = "devices/+/status"

	qos                   = 1
	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

var (
	ErrNotConfigured = errors.New("mqtt broker not configured")
	ErrNoToken       = errors.New("mqtt: not signed in")
	ErrBadTopic      = errors.New("mqtt: unexpected topic")
)

type Options struct {
	Broker         string // tcp://host:1883
	ClientID       string
	Username       string
	ConnectTimeout time.Duration
}

type TokenSource interface {
	Token() string
}

// Client subscribes to device topics and dispatches decoded updates.
type Client struct {
	*realtime.Listeners

	opts   Options
	tokens TokenSource
	log    *logger.Logger

	newClient func(*paho.ClientOptions) paho.Client

	mu     sync.Mutex
	client paho.Client
}

func New(opts Options, tokens TokenSource, log *logger.Logger) *Client {
	log = logger.OrNop(log).Named("mqtt")
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	return &Client{
		Listeners: realtime.NewListeners(log),
		opts:      opts,
		tokens:    tokens,
		log:       log,
		newClient: paho.NewClient,
	}
}

// Connect dials the broker with the bearer token as password and
// subscribes on every (re)connect.
func (c *Client) Connect() error {
	if c.opts.Broker == "" {
		return ErrNotConfigured
	}
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.client.IsConnected() {
		return nil
	}

	o := paho.NewClientOptions()
	o.AddBroker(c.opts.Broker)
	o.SetClientID(c.opts.ClientID)
	o.SetUsername(c.opts.Username)
	o.SetPassword(token)
	o.SetAutoReconnect(true)
	o.SetConnectTimeout(c.opts.ConnectTimeout)
	o.SetOnConnectHandler(c.onConnect)
	o.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warnw("mqtt_connection_lost", "err", err)
		c.NotifyConnection(false)
	})

	client := c.newClient(o)
	t := client.Connect()
	if !t.WaitTimeout(c.opts.ConnectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("connect %s: timed out after %s", c.opts.Broker, c.opts.ConnectTimeout)
	}
	if err := t.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect %s: %w", c.opts.Broker, err)
	}
	c.client = client
	return nil
}

func (c *Client) onConnect(client paho.Client) {
	c.log.Infow("mqtt_connected", "broker", c.opts.Broker)
	t := client.SubscribeMultiple(map[string]byte{TopicPistonState: qos, TopicDeviceStatus: qos}, c.handle)
	if !t.WaitTimeout(c.opts.ConnectTimeout) {
		c.log.Errorw("mqtt_subscribe_timeout", "after", c.opts.ConnectTimeout)
		return
	}
	if err := t.Error(); err != nil {
		c.log.Errorw("mqtt_subscribe_failed", "err", err)
		return
	}
	c.NotifyConnection(true)
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client == nil {
		return
	}
	client.Disconnect(disconnectQuiesceMs)
	c.NotifyConnection(false)
}

// PublishCommand asks the device to move a piston.
func (c *Client) PublishCommand(deviceID string, number int, action string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return ErrNotConfigured
	}
	body, err := json.Marshal(models.PistonControlRequest{Action: action})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	t := client.Publish(CommandTopic(deviceID, number), qos, false, body)
	if !t.WaitTimeout(c.opts.ConnectTimeout) {
		return errors.New("publish command: timed out")
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// CommandTopic is where a device listens for piston commands.
func CommandTopic(deviceID string, number int) string {
	return fmt.Sprintf("devices/%s/pistons/%d/command", deviceID, number)
}

func (c *Client) handle(_ paho.Client, msg paho.Message) {
	frame, err := Decode(msg.Topic(), msg.Payload())
	if err != nil {
		c.log.Warnw("mqtt_message_dropped", "topic", msg.Topic(), "err", err)
		return
	}
	c.Dispatch(frame)
}

// Decode turns a broker message into a push frame. The payload may be a
// full JSON frame, a JSON object with just the state/status, or the bare
// value; device id and piston number fall back to the topic.
func Decode(topic string, payload []byte) (realtime.Frame, error) {
	parts := strings.Split(topic, "/")
	switch {
	case len(parts) == 5 && parts[0] == "devices" && parts[2] == "pistons" && parts[4] == "state":
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 1 || n > models.MaxPistons {
			return realtime.Frame{}, fmt.Errorf("%w: %s", ErrBadTopic, topic)
		}
		u := models.PistonUpdate{}
		if err := decodeValue(payload, &u, &u.State); err != nil {
			return realtime.Frame{}, err
		}
		u.Type = models.MessagePistonUpdate
		if u.DeviceID == "" {
			u.DeviceID = parts[1]
		}
		if u.PistonNumber == 0 {
			u.PistonNumber = n
		}
		if u.State != models.PistonActive && u.State != models.PistonInactive {
			return realtime.Frame{}, fmt.Errorf("unknown piston state %q", u.State)
		}
		stamp(&u.Timestamp)
		return realtime.Frame{Type: u.Type, Piston: &u}, nil

	case len(parts) == 3 && parts[0] == "devices" && parts[2] == "status":
		s := models.DeviceStatus{}
		if err := decodeValue(payload, &s, &s.Status); err != nil {
			return realtime.Frame{}, err
		}
		s.Type = models.MessageDeviceStatus
		if s.DeviceID == "" {
			s.DeviceID = parts[1]
		}
		if s.Status != models.DeviceOnline && s.Status != models.DeviceOffline {
			return realtime.Frame{}, fmt.Errorf("unknown device status %q", s.Status)
		}
		stamp(&s.Timestamp)
		return realtime.Frame{Type: s.Type, Status: &s}, nil
	}
	return realtime.Frame{}, fmt.Errorf("%w: %s", ErrBadTopic, topic)
}

// decodeValue fills obj from a JSON object payload or sets *bare from a plain value.
func decodeValue(payload []byte, obj any, bare *string) error {
	p := strings.TrimSpace(string(payload))
	if p == "" {
		return errors.New("empty payload")
	}
	if strings.HasPrefix(p, "{") {
		if err := json.Unmarshal([]byte(p), obj); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return nil
	}
	*bare = strings.ToLower(strings.Trim(p, `"`))
	return nil
}

func stamp(ts *string) {
	if *ts == "" {
		*ts = time.Now().UTC().Format(time.RFC3339)
	}
}
