package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/uvc-timer/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"stateClass": func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "-"))
	},
	"ms": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>UV-C Chamber</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: #6a1b9a; font-weight: bold; }
.off { color: #888; }
.open { color: orange; }
.disinfecting, .force-on { color: #6a1b9a; font-weight: bold; }
.idle, .force-wait { color: #555; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>UV-C Chamber</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass (stateOrUnknown (printf "%s" .State))}}">{{stateOrUnknown (printf "%s" .State)}}</td></tr>
<tr><th>Lamp</th><td id="lamp" class="{{if .LampOn}}on{{else}}off{{end}}">{{if .LampOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Door</th><td id="door">{{if .DoorOpen}}OPEN{{else}}CLOSED{{end}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{if .Remaining}}{{uptime .Remaining}}{{else}}-{{end}}</td></tr>
<tr><th>Double duration</th><td id="armed">{{if .Armed}}armed{{else}}no{{end}}</td></tr>
<tr><th>LED</th><td>{{.Led}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Interlocks</th><td>{{.Counts.Interlocks}}</td></tr>
<tr><th>Overrides</th><td>{{.Counts.Overrides}}</td></tr>
<tr><th>Button events</th><td>{{.Counts.Buttons}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>UV-C time</th><td>{{ms .Config.UVCTimeMs}}</td></tr>
<tr><th>Idle time</th><td>{{ms .Config.IdleTimeMs}}</td></tr>
<tr><th>Idle lamp</th><td>{{if .Config.IdleLampOn}}on{{else}}off{{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
<script>
(function() {
  var stateEl = document.getElementById("state");
  var lampEl = document.getElementById("lamp");
  var doorEl = document.getElementById("door");
  var remEl = document.getElementById("remaining");
  var armedEl = document.getElementById("armed");

  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      stateEl.textContent = s.state;
      stateEl.className = s.state.toLowerCase().replace("_", "-");
      lampEl.textContent = s.lamp;
      lampEl.className = s.lamp === "ON" ? "on" : "off";
      doorEl.textContent = s.door;
      remEl.textContent = s.remaining_seconds > 0 ? s.remaining_seconds + "s" : "-";
      armedEl.textContent = s.armed ? "armed" : "no";
    }).catch(function() {});
  }

  setInterval(refresh, 1000);
})();
</script>
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
