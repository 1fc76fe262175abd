package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/engine"
	"github.com/itohio/thermod/pkg/sensor"
)

var (
	_ engine.Publisher = (*Client)(nil)

	ErrConnectTimeout = errors.New("timed out connecting to MQTT broker")
)

const disconnectQuiesceMs = 250

// CommandHandler executes module commands.
type CommandHandler interface {
	HandleCommand(cmd string) error
}

// Client connects one module to the MQTT broker. Inbound configuration is
// applied to the module's Surface, results are published per channel.
type Client struct {
	qos      byte
	timeout  time.Duration
	module   int
	surface  *engine.Surface
	commands CommandHandler

	client mqtt.Client

	mu       sync.Mutex
	channels bool // Subscribed to channel assignments
}

// New creates a client for the module configured by surface. commands may
// be nil when no command handling is wanted.
func New(cfg config.MQTTConfig, surface *engine.Surface, commands CommandHandler) *Client {
	c := &Client{
		qos:      cfg.QoS,
		timeout:  cfg.ConnectTimeout,
		module:   surface.Module(),
		surface:  surface,
		commands: commands,
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("thermod-%d-%s", c.module, uuid.NewString())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("Lost connection to MQTT broker: %v", err)
	})
	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		log.Printf("No handler for topic %q", msg.Topic())
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect connects to the broker. Subscriptions are made by the connect
// handler, so they are restored after every reconnect.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if c.timeout > 0 && !token.WaitTimeout(c.timeout) {
		return ErrConnectTimeout
	}
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// Close unsubscribes from every topic and disconnects.
func (c *Client) Close() error {
	if !c.client.IsConnectionOpen() {
		c.client.Disconnect(0)
		return nil
	}

	var err error
	token := c.client.Unsubscribe(c.topics()...)
	if token.Wait() {
		err = multierr.Append(err, token.Error())
	}
	c.client.Disconnect(disconnectQuiesceMs)
	return err
}

// Publish sends one channel result to its result topic.
func (c *Client) Publish(r engine.ChannelResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	topic := ResultTopic(r.Module, r.Channel)
	token := c.client.Publish(topic, c.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) topics() []string {
	topics := []string{TopicDeviceConfig, TopicSensorConfig, CommandTopic(c.module)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channels {
		topics = append(topics, ChannelConfigTopic(c.module))
	}
	return topics
}

func (c *Client) onConnect(client mqtt.Client) {
	log.Printf("Connected to MQTT broker")

	c.subscribe(client, TopicSensorConfig, c.onSensorConfig)
	c.subscribe(client, TopicDeviceConfig, c.onDeviceConfig)
	c.subscribe(client, CommandTopic(c.module), c.onCommand)

	log.Printf("Supported sensor types: %v", sensor.Kinds())

	// Channel assignments only make sense once sensors are known
	if c.surface.Readiness().Sensors() {
		c.claimChannels()
		c.subscribeChannels(client)
	}
}

func (c *Client) subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) {
	token := client.Subscribe(topic, c.qos, handler)
	token.Wait()

	if token.Error() != nil {
		log.Printf("Failed to subscribe to topic %s: %v", topic, token.Error())
	} else {
		log.Printf("Subscribed to topic: %s", topic)
	}
}

// claimChannels marks the channel topic as wanted and reports whether it was
// not wanted before.
func (c *Client) claimChannels() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := !c.channels
	c.channels = true
	return first
}

func (c *Client) subscribeChannels(client mqtt.Client) {
	c.subscribe(client, ChannelConfigTopic(c.module), c.onChannelConfig)
}

func (c *Client) onDeviceConfig(client mqtt.Client, msg mqtt.Message) {
	log.Printf("Device config received on %s", msg.Topic())

	if err := c.surface.UpdateDevice(msg.Payload()); err != nil {
		log.Printf("Invalid device config: %v", err)
	}
}

func (c *Client) onSensorConfig(client mqtt.Client, msg mqtt.Message) {
	var records map[string]map[string]any
	if err := json.Unmarshal(msg.Payload(), &records); err != nil {
		log.Printf("Invalid sensor config: %v", err)
		return
	}

	catalog, skipped := sensor.Decode(records)
	if skipped > 0 {
		log.Printf("Skipped %d invalid sensor definitions", skipped)
	}

	c.surface.UpdateSensors(catalog)

	// Message handlers must not wait on tokens
	if c.claimChannels() {
		log.Printf("Subscribing to channel config")
		go c.subscribeChannels(client)
	}
}

func (c *Client) onChannelConfig(client mqtt.Client, msg mqtt.Message) {
	var cfg engine.ChannelConfig
	if err := json.Unmarshal(msg.Payload(), &cfg); err != nil {
		log.Printf("Invalid channel config on %s: %v", msg.Topic(), err)
		return
	}

	applied, err := c.surface.UpdateChannel(cfg)
	if err != nil {
		log.Printf("Invalid channel config on %s: %v", msg.Topic(), err)
		return
	}
	if applied {
		log.Printf("Channel %d assigned to sensor %q", cfg.ChannelID, cfg.SensorType)
	}
}

func (c *Client) onCommand(client mqtt.Client, msg mqtt.Message) {
	cmd := parseCommand(msg.Payload())
	log.Printf("Command %q received", cmd)

	if c.commands == nil {
		return
	}
	if err := c.commands.HandleCommand(cmd); err != nil {
		log.Printf("Command %q failed: %v", cmd, err)
	}
}

// parseCommand accepts a bare word or a JSON string.
func parseCommand(payload []byte) string {
	cmd := strings.TrimSpace(string(payload))

	var quoted string
	if err := json.Unmarshal([]byte(cmd), &quoted); err == nil {
		cmd = strings.TrimSpace(quoted)
	}
	return strings.ToLower(cmd)
}
