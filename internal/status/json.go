package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Left          ChannelJSON  `json:"left"`
	Right         ChannelJSON  `json:"right"`
	Connected     bool         `json:"connected"`
	Ready         bool         `json:"ready"`
	CalibratedAt  string       `json:"calibrated_at,omitempty"`
	LastChange    string       `json:"last_change,omitempty"`
	Cycles        uint64       `json:"cycles"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"transition_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ChannelJSON is one pad's readings.
type ChannelJSON struct {
	Raw      uint16  `json:"raw"`
	Baseline uint16  `json:"baseline"`
	Value    float64 `json:"value"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	NoTouch          int `json:"no_touch"`
	LeftOnly         int `json:"left_only"`
	RightOnly        int `json:"right_only"`
	BothDisconnected int `json:"both_no_con"`
	BothConnected    int `json:"both_con"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64    `json:"poll_ms"`
	HeartbeatMs int64    `json:"heartbeat_ms"`
	Broker      string   `json:"broker"`
	HTTPPort    string   `json:"http_port"`
	Pins        PinsJSON `json:"pins"`
}

// PinsJSON is the BCM pin assignment.
type PinsJSON struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Sense int `json:"sense"`
	Drive int `json:"drive"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Reading
	inner := StatusInner{
		State:         r.State.String(),
		Left:          ChannelJSON{Raw: r.LeftRaw, Baseline: r.LeftBaseline, Value: r.LeftValue()},
		Right:         ChannelJSON{Raw: r.RightRaw, Baseline: r.RightBaseline, Value: r.RightValue()},
		Connected:     r.Connected,
		Ready:         snap.Calibrated,
		CalibratedAt:  formatTime(snap.CalibratedAt),
		LastChange:    formatTime(snap.LastChange),
		Cycles:        snap.Cycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			NoTouch:          snap.Counts.NoTouch,
			LeftOnly:         snap.Counts.LeftOnly,
			RightOnly:        snap.Counts.RightOnly,
			BothDisconnected: snap.Counts.BothDisconnected,
			BothConnected:    snap.Counts.BothConnected,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Pins: PinsJSON{
				Left:  int(snap.Config.Pins.Left),
				Right: int(snap.Config.Pins.Right),
				Sense: int(snap.Config.Pins.Sense),
				Drive: int(snap.Config.Pins.Drive),
			},
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
