// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/touch-sensor/internal/diag"
	"github.com/sweeney/touch-sensor/internal/gpio"
	"github.com/sweeney/touch-sensor/internal/mqtt"
	"github.com/sweeney/touch-sensor/internal/touch"
)

// Config represents the daemon configuration.
type Config struct {
	Chip        string            `yaml:"chip"`
	Pins        PinsConfig        `yaml:"pins"`
	Poll        time.Duration     `yaml:"poll"`
	Heartbeat   time.Duration     `yaml:"heartbeat"` // 0 disables heartbeats
	MQTT        MQTTConfig        `yaml:"mqtt"`
	HTTP        HTTPConfig        `yaml:"http"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// PinsConfig holds BCM line offsets. Zero means unset.
type PinsConfig struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
	Sense int `yaml:"sense"`
	Drive int `yaml:"drive"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	SystemTopic string `yaml:"system_topic"`
}

// HTTPConfig contains the status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// DiagnosticsConfig controls the serial state dump.
type DiagnosticsConfig struct {
	Serial string `yaml:"serial"` // empty disables the dump
	Baud   int    `yaml:"baud"`
	Every  int    `yaml:"every"`  // cycles between dumps, 0 disables
	Format string `yaml:"format"` // "state" or "readings"
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Chip: "gpiochip0",
		Pins: PinsConfig{
			Left:  gpio.DefaultPinLeft,
			Right: gpio.DefaultPinRight,
			Sense: gpio.DefaultPinSense,
			Drive: gpio.DefaultPinDrive,
		},
		Poll:      100 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "touch-sensor",
			Topic:       mqtt.TopicEvents,
			SystemTopic: mqtt.TopicSystem,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Diagnostics: DiagnosticsConfig{
			Baud:   115200,
			Every:  10,
			Format: "state",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; keys absent from the file keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// TouchPins returns the pin assignment for the sensor.
func (c *Config) TouchPins() touch.Pins {
	return touch.Pins{
		Left:  gpio.Pin(c.Pins.Left),
		Right: gpio.Pin(c.Pins.Right),
		Sense: gpio.Pin(c.Pins.Sense),
		Drive: gpio.Pin(c.Pins.Drive),
	}
}

// MQTTOptions returns the publisher options.
func (c *Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		Broker:      c.MQTT.Broker,
		ClientID:    c.MQTT.ClientID,
		Topic:       c.MQTT.Topic,
		SystemTopic: c.MQTT.SystemTopic,
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Poll)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker must be set")
	}

	seen := make(map[int]string, 4)
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"left", c.Pins.Left},
		{"right", c.Pins.Right},
		{"sense", c.Pins.Sense},
		{"drive", c.Pins.Drive},
	} {
		if p.pin < 0 {
			return fmt.Errorf("pin %s: invalid line %d", p.name, p.pin)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("pin %s: line %d already used by %s", p.name, p.pin, other)
		}
		seen[p.pin] = p.name
	}

	if c.Diagnostics.Serial != "" && c.Diagnostics.Baud <= 0 {
		return fmt.Errorf("diagnostics baud must be positive, got %d", c.Diagnostics.Baud)
	}
	if _, err := diag.ParseFormat(c.Diagnostics.Format); err != nil {
		return err
	}
	return nil
}

// ensureDefaults fills fields that were explicitly emptied in the file but
// have no meaningful zero value. Heartbeat, HTTP.Addr and Diagnostics
// keep their zero values since zero disables them.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Chip == "" {
		c.Chip = def.Chip
	}

	if c.Pins.Left == 0 {
		c.Pins.Left = def.Pins.Left
	}
	if c.Pins.Right == 0 {
		c.Pins.Right = def.Pins.Right
	}
	if c.Pins.Sense == 0 {
		c.Pins.Sense = def.Pins.Sense
	}
	if c.Pins.Drive == 0 {
		c.Pins.Drive = def.Pins.Drive
	}

	if c.Poll == 0 {
		c.Poll = def.Poll
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.SystemTopic == "" {
		c.MQTT.SystemTopic = def.MQTT.SystemTopic
	}

	if c.Diagnostics.Baud == 0 {
		c.Diagnostics.Baud = def.Diagnostics.Baud
	}
}
