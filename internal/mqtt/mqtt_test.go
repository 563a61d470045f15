package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/touch-sensor/internal/touch"
)

var testTime = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func sampleTransition() touch.Transition {
	return touch.Transition{
		Timestamp: testTime,
		From:      touch.NoTouch,
		To:        touch.BothConnected,
		Reading: touch.Reading{
			LeftRaw:       50,
			RightRaw:      75,
			LeftBaseline:  100,
			RightBaseline: 100,
			Connected:     true,
			State:         touch.BothConnected,
		},
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(sampleTransition())
	require.NoError(t, err)

	var parsed Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))

	assert.Equal(t, TouchPayload{
		Timestamp: "2026-02-02T22:18:12Z",
		Event:     EventTouched,
		From:      "NO_TOUCH",
		To:        "BOTH_CON",
		Left:      ChannelState{Raw: 50, Baseline: 100, Value: 0.5},
		Right:     ChannelState{Raw: 75, Baseline: 100, Value: 0.25},
		Connected: true,
	}, parsed.Touch)
}

func TestFormatPayloadKeys(t *testing.T) {
	payload, err := FormatPayload(sampleTransition())
	require.NoError(t, err)

	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &raw))
	inner, ok := raw["touch"]
	require.True(t, ok, "missing touch key: %s", payload)

	for _, key := range []string{"timestamp", "event", "from", "to", "left", "right", "connected"} {
		assert.Contains(t, inner, key)
	}
}

func TestEventName(t *testing.T) {
	tests := []struct {
		to   touch.State
		want string
	}{
		{touch.NoTouch, EventReleased},
		{touch.LeftOnly, EventTouched},
		{touch.RightOnly, EventTouched},
		{touch.BothDisconnected, EventTouched},
		{touch.BothConnected, EventTouched},
	}

	for _, tt := range tests {
		t.Run(tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, EventName(touch.Transition{To: tt.to}))
		})
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(payload))
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "RECONNECTED",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`, string(payload))
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":"ok"}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, payload, "raw payload passthrough")
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	require.NoError(t, f.Publish(sampleTransition()))

	require.Len(t, f.Transitions, 1)
	assert.Equal(t, touch.BothConnected, f.Transitions[0].To)
	assert.Len(t, f.Payloads, 1)
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	assert.Error(t, f.Publish(sampleTransition()))
	assert.Empty(t, f.Transitions, "no transitions recorded on error")
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.PublishSystem(SystemEvent{Event: "SHUTDOWN", Reason: "SIGINT"})

	assert.Equal(t, []string{"STARTUP", "SHUTDOWN"}, f.SystemEventNames())
	assert.Len(t, f.SystemPayloads, 2)
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(sampleTransition())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Connected = true
	f.Close()

	f.Reset()

	assert.Empty(t, f.Transitions)
	assert.Empty(t, f.SystemEvents)
	assert.False(t, f.Closed)
	assert.False(t, f.Connected)
}

// fakeToken completes immediately with err.
type fakeToken struct {
	paho.Token
	err error
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Error() error                     { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client
	open bool
	err  error
	sent []sentMsg

	// onCheck, if set, runs once during the next IsConnectionOpen call
	// before the result is read.
	onCheck func()
	// onPublish, if set, runs once after the next Publish is recorded.
	onPublish func()
}

func (c *fakeClient) IsConnectionOpen() bool {
	if f := c.onCheck; f != nil {
		c.onCheck = nil
		open := c.open
		f()
		return open
	}
	return c.open
}

func (c *fakeClient) IsConnected() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	if f := c.onPublish; f != nil {
		c.onPublish = nil
		f()
	}
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(_ uint) { c.open = false }

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Options{})

	require.NoError(t, p.Publish(sampleTransition()))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}))

	require.Len(t, c.sent, 2)
	assert.Equal(t, TopicEvents, c.sent[0].topic)
	assert.Equal(t, byte(0), c.sent[0].qos)
	assert.False(t, c.sent[0].retained)
	assert.Equal(t, TopicSystem, c.sent[1].topic)
	assert.Equal(t, byte(1), c.sent[1].qos)
	assert.True(t, c.sent[1].retained)
	assert.Equal(t, 0, p.Buffered())
}

func TestRealPublisherCustomTopics(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Options{Topic: "a/events", SystemTopic: "a/system"})

	p.Publish(sampleTransition())
	p.PublishSystem(SystemEvent{Event: "STARTUP"})

	require.Len(t, c.sent, 2)
	assert.Equal(t, "a/events", c.sent[0].topic)
	assert.Equal(t, "a/system", c.sent[1].topic)
}

func TestRealPublisherPublishError(t *testing.T) {
	c := &fakeClient{open: true, err: errors.New("broker said no")}
	p := newPublisher(c, Options{})

	assert.Error(t, p.Publish(sampleTransition()))
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	c := &fakeClient{open: false}
	p := newPublisher(c, Options{})
	p.onConnect(c) // initial connect, nothing pending

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Publish(sampleTransition()), "publish %d", i)
	}
	require.Empty(t, c.sent, "nothing sent while offline")
	require.Equal(t, 3, p.Buffered())

	c.open = true
	p.now = func() time.Time { return testTime }
	p.onConnect(c)

	require.Len(t, c.sent, 4, "3 replayed + RECONNECTED")
	for i := 0; i < 3; i++ {
		assert.Equal(t, TopicEvents, c.sent[i].topic, "replay %d", i)
	}
	assert.Equal(t, TopicSystem, c.sent[3].topic)
	assert.Equal(t, `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`, c.sent[3].payload)
	assert.Equal(t, 0, p.Buffered(), "after replay")
}

func TestRealPublisherFirstConnectIsSilent(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Options{})

	p.onConnect(c)

	assert.Empty(t, c.sent)
}

func TestRealPublisherBufferDropsOldest(t *testing.T) {
	c := &fakeClient{open: false}
	p := newPublisher(c, Options{})

	for i := 0; i < offlineCapacity+5; i++ {
		p.PublishSystem(SystemEvent{Event: "HEARTBEAT", RawPayload: []byte{byte(i)}})
	}
	require.Equal(t, offlineCapacity, p.Buffered())

	c.open = true
	p.onConnect(c)

	require.Len(t, c.sent, offlineCapacity)
	assert.Equal(t, string([]byte{5}), c.sent[0].payload, "oldest surviving payload")
}

func TestRealPublisherConnectDuringPublish(t *testing.T) {
	c := &fakeClient{open: false}
	p := newPublisher(c, Options{})
	p.onConnect(c)
	c.sent = nil

	// The link comes up between the connection check and the buffering,
	// and paho runs the connect handler on its own goroutine.
	done := make(chan struct{})
	c.onCheck = func() {
		c.open = true
		go func() {
			p.onConnect(c)
			close(done)
		}()
	}

	require.NoError(t, p.Publish(sampleTransition()))
	<-done

	assert.Equal(t, 0, p.Buffered(), "nothing left buffered while connected")
	var events int
	for _, m := range c.sent {
		if m.topic == TopicEvents {
			events++
		}
	}
	assert.Equal(t, 1, events, "transition sent exactly once: %+v", c.sent)
}

func TestRealPublisherReplayDrainsLateMessages(t *testing.T) {
	c := &fakeClient{open: false}
	p := newPublisher(c, Options{})
	p.onConnect(c)

	p.Publish(sampleTransition())

	// Another message is buffered while the first one is being replayed.
	c.onPublish = func() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: TopicEvents, payload: []byte("late")})
		p.mu.Unlock()
	}
	c.open = true
	p.onConnect(c)

	assert.Equal(t, 0, p.Buffered(), "after replay")
	require.Len(t, c.sent, 3, "2 replayed + RECONNECTED")
	assert.Equal(t, "late", c.sent[1].payload)
	assert.Equal(t, TopicSystem, c.sent[2].topic)
}

func TestRealPublisherWillIsRetained(t *testing.T) {
	p := newPublisher(nil, Options{SystemTopic: "a/system"})
	p.now = func() time.Time { return testTime }

	opts, err := p.clientOptions(Options{Broker: "tcp://localhost:1883", SystemTopic: "a/system"})
	require.NoError(t, err)

	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "a/system", opts.WillTopic)
	assert.Equal(t, byte(1), opts.WillQos)
	assert.True(t, opts.WillRetained)
	assert.Equal(t, `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`, string(opts.WillPayload))
}

func TestRealPublisherIsConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Options{})

	assert.True(t, p.IsConnected())
	p.Close()
	assert.False(t, p.IsConnected(), "after close")
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
)
