package httpapi

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

type pageData struct {
	Message    string
	Recent     []string
	Projection dashboard.Projection
}

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

func renderPage(c *fiber.Ctx, status int, service Dashboard, message string) error {
	data := pageData{
		Message:    message,
		Recent:     service.Recent(),
		Projection: service.Current(),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Smart City Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
.card { display: inline-block; vertical-align: top; border: 1px solid #ddd; border-radius: 6px; padding: 1rem; margin: 0.5rem; min-width: 14rem; }
.good { color: #2e7d32; } .moderate { color: #f9a825; } .unhealthy { color: #c62828; }
.message { color: #c62828; }
table { border-collapse: collapse; } td, th { border: 1px solid #eee; padding: 0.25rem 0.5rem; }
</style>
</head>
<body>
<h1>Smart City Dashboard</h1>
<form method="post" action="/search">
  <input type="text" name="city" placeholder="Search city">
  <button type="submit">Search</button>
</form>
{{with .Message}}<p class="message">{{.}}</p>{{end}}
{{with .Recent}}<p>Recent: {{range $i, $c := .}}{{if $i}}, {{end}}{{$c}}{{end}}</p>{{end}}

{{range .Projection.Slots}}
<div class="card"><strong>{{.Slot}}</strong><div id="{{.Slot}}" class="{{.Class}}">{{.Text}}</div></div>
{{end}}

<h2>Map</h2>
<p id="map" data-lat="{{.Projection.Map.Lat}}" data-lon="{{.Projection.Map.Lon}}" data-zoom="{{.Projection.Map.Zoom}}">
{{if .Projection.Map.Marker}}{{.Projection.Map.Label}} ({{.Projection.Map.Lat}}, {{.Projection.Map.Lon}}){{else}}World view{{end}}
</p>

<h2>Weather data</h2>
<table id="weatherTable">
{{range .Projection.WeatherRows}}<tr><th>{{.Label}}</th><td>{{.Value}}{{with .Unit}} {{.}}{{end}}</td></tr>
{{end}}</table>

<h2>Pollutants</h2>
<table id="pollutantTable">
{{range .Projection.PollutantRows}}<tr><th>{{.Label}}</th><td>{{.Value}}</td><td>{{.Status}}</td></tr>
{{end}}</table>

{{range .Projection.Charts}}
<h2>{{.ID}}</h2>
{{range .Series}}
<table class="chart" data-chart="{{.Name}}">
<tr><th>{{.Name}}</th>{{range .Labels}}<td>{{.}}</td>{{end}}</tr>
<tr><td></td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
</table>
{{end}}
{{end}}

<form method="post" action="/chart-mode"><button type="submit">Toggle chart mode</button></form>

<h2>Raw data</h2>
<pre id="jsonData">{{.Projection.JSONDump}}</pre>
</body>
</html>
`
