package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/touch-sensor/internal/touch"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher. Empty fields take package defaults.
type Options struct {
	Broker      string
	ClientID    string
	Topic       string
	SystemTopic string
}

func (o *Options) ensureDefaults() {
	if o.ClientID == "" {
		o.ClientID = "touch-sensor"
	}
	if o.Topic == "" {
		o.Topic = TopicEvents
	}
	if o.SystemTopic == "" {
		o.SystemTopic = TopicSystem
	}
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	topic       string
	systemTopic string

	mu           sync.Mutex
	buffer       *ringBuffer
	hasConnected bool
	now          func() time.Time
}

// NewRealPublisher creates a publisher connected to the configured broker.
// The broker publishes SHUTDOWN/MQTT_DISCONNECT on our behalf if the
// connection is lost uncleanly.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	o.ensureDefaults()
	p := newPublisher(nil, o)

	opts, err := p.clientOptions(o)
	if err != nil {
		return nil, err
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	// With connect retry the token only completes once connected, so a
	// timeout means the broker is down and messages buffer until it is up.
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// clientOptions builds the paho options. The will is retained like STARTUP
// and SHUTDOWN so the system topic never keeps a stale STARTUP after an
// unclean disconnect.
func (p *RealPublisher) clientOptions(o Options) (*paho.ClientOptions, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	return paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(o.SystemTopic, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}), nil
}

func newPublisher(client paho.Client, o Options) *RealPublisher {
	o.ensureDefaults()
	return &RealPublisher{
		client:      client,
		topic:       o.Topic,
		systemTopic: o.SystemTopic,
		buffer:      newRingBuffer(offlineCapacity),
		now:         time.Now,
	}
}

// onConnect runs on every successful (re)connection. After the first one it
// replays buffered messages and announces the reconnect.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	first := !p.hasConnected
	p.hasConnected = true
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if first && len(pending) == 0 {
		return
	}

	log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	p.replay(c, pending)

	if first {
		return
	}
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	if err != nil {
		log.Printf("mqtt: format reconnect payload: %v", err)
		return
	}
	if err := p.send(c, bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1}); err != nil {
		log.Printf("mqtt: reconnect event failed: %v", err)
	}
}

// replay sends pending and then anything buffered meanwhile, until the
// buffer is empty.
func (p *RealPublisher) replay(c paho.Client, pending []bufferedMsg) {
	for len(pending) > 0 {
		for _, msg := range pending {
			if err := p.send(c, msg); err != nil {
				log.Printf("mqtt: replay failed: %v", err)
			}
		}
		p.mu.Lock()
		pending = p.buffer.drainAll()
		p.mu.Unlock()
	}
}

// Publish sends a touch transition to the MQTT broker.
func (p *RealPublisher) Publish(tr touch.Transition) error {
	payload, err := FormatPayload(tr)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) so lifecycle events survive a flaky link
	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

// publish checks the connection and buffers under one lock. paho marks the
// connection open before it calls onConnect, and onConnect drains under the
// same lock, so a buffered message is always picked up by the replay.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(p.client, msg)
}

func (p *RealPublisher) send(c paho.Client, msg bufferedMsg) error {
	token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
