package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/status"
	"github.com/sweeney/tempcycle/internal/trend"
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
	"secs": func(d time.Duration) string {
		return fmt.Sprintf("%.6fs", float64(d.Microseconds())/1e6)
	},
	"trendClass": func(t trend.Trend) string {
		switch t {
		case trend.Rising:
			return "rising"
		case trend.Falling:
			return "falling"
		case trend.Stable:
			return "stable"
		}
		return "unknown"
	},
	"stages": func() [sched.NumStages]sched.Stage { return sched.Stages },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>TempCycle</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.rising { color: #c00; font-weight: bold; }
.falling { color: #00c; font-weight: bold; }
.stable { color: green; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>TempCycle</h1>

<h2>Last Pass</h2>
{{with .Last}}<table>
<tr><th>Temperature</th><td id="temperature">{{printf "%.2f" .Temperature}} °C</td></tr>
<tr><th>Trend</th><td id="trend" class="{{trendClass .Trend}}">{{.Trend}}</td></tr>
<tr><th>T1 read</th><td>{{secs .Read}}</td></tr>
<tr><th>T2 display</th><td>{{secs .Display}}</td></tr>
<tr><th>T3 analyze</th><td>{{secs .Analyze}}</td></tr>
<tr><th>T4 matrix</th><td>{{secs .Update}}</td></tr>
</table>{{else}}<p class="unknown">no pass yet</p>{{end}}

<h2>Stages</h2>
<table>
<tr><th>Stage</th><td>runs / failed / overruns / timer</td></tr>
{{range $s := stages}}<tr><th>{{$s}}</th><td>{{index $.Counters.Runs $s}} / {{index $.Counters.Failed $s}} / {{index $.Counters.Overruns $s}} / {{index $.Counters.Fired $s}}</td></tr>
{{end}}<tr><th>Passes</th><td id="passes">{{.Counters.Passes}}</td></tr>
<tr><th>Skipped</th><td>{{.Counters.Skipped}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Timer policy</th><td>{{.Config.Policy}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Watchdog</th><td>{{if eq .Config.WatchdogMs 0}}disabled{{else}}{{.Config.WatchdogMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/last">last line</a></p>
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
