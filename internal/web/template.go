package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/touch-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
	"timeOrNever": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Touch Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.touched { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Touch Sensor</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq .Reading.State.String "NO_TOUCH"}}idle{{else}}touched{{end}}">{{.Reading.State}}</td></tr>
<tr><th>Connected</th><td>{{if .Reading.Connected}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Calibrated}}yes{{else}}no{{end}}</td></tr>
<tr><th>Last change</th><td>{{timeOrNever .LastChange}}</td></tr>
</table>

<h2>Pads</h2>
<table>
<tr><th></th><th>Raw</th><th>Baseline</th><th>Value</th></tr>
<tr><th>Left</th><td>{{.Reading.LeftRaw}}</td><td>{{.Reading.LeftBaseline}}</td><td>{{percent .Reading.LeftValue}}</td></tr>
<tr><th>Right</th><td>{{.Reading.RightRaw}}</td><td>{{.Reading.RightBaseline}}</td><td>{{percent .Reading.RightValue}}</td></tr>
<tr><th>Calibrated</th><td colspan="3">{{timeOrNever .CalibratedAt}}</td></tr>
</table>
<form method="post" action="/calibrate"><button type="submit">Recalibrate</button></form>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transitions</h2>
<table>
<tr><th>NO_TOUCH</th><td>{{.Counts.NoTouch}}</td></tr>
<tr><th>LEFT_ONLY</th><td>{{.Counts.LeftOnly}}</td></tr>
<tr><th>RIGHT_ONLY</th><td>{{.Counts.RightOnly}}</td></tr>
<tr><th>BOTH_NO_CON</th><td>{{.Counts.BothDisconnected}}</td></tr>
<tr><th>BOTH_CON</th><td>{{.Counts.BothConnected}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Pins</th><td>left={{.Config.Pins.Left}} right={{.Config.Pins.Right}} sense={{.Config.Pins.Sense}} drive={{.Config.Pins.Drive}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
