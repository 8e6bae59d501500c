package httpd

import (
	"strconv"
	"strings"

	"github.com/harveysanders/picoweather/weatherstation/display"
	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// statusPage is served for every request that is not /data. The script polls
// /data so the page stays current; the forms produce the r/g/b and msg
// queries.
const statusPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{TITLE}}</title>
<style>
body { font-family: Arial, sans-serif; text-align: center; background: linear-gradient(135deg, #89f7fe, #66a6ff); color: #fff; padding: 20px; }
.container { max-width: 420px; margin: auto; background: rgba(255, 255, 255, 0.2); padding: 20px; border-radius: 15px; box-shadow: 0 4px 10px rgba(0, 0, 0, 0.2); }
p { font-size: 20px; margin: 10px 0; }
.alert { font-weight: bold; font-size: 18px; color: yellow; }
input[type="number"] { width: 70px; margin: 4px; text-align: center; }
input[type="text"] { width: 90%; margin: 4px; }
button { width: 100%; margin-top: 10px; padding: 10px; border: none; border-radius: 6px; background: #008CBA; color: white; font-size: 16px; cursor: pointer; }
.swatch { margin-top: 10px; height: 32px; border-radius: 6px; border: 1px solid #ddd; background: rgb({{R}}, {{G}}, {{B}}); }
</style>
<script>
async function updateData() {
  let response = await fetch('/data');
  let data = await response.json();
  document.getElementById('temp').innerText = data.temperature === null ? 'N/A' : data.temperature + '°C';
  document.getElementById('humidity').innerText = data.humidity === null ? 'N/A' : data.humidity + '%';
  document.getElementById('alert').innerText = data.alert;
}
setInterval(updateData, 2000);
</script>
</head>
<body>
<div class="container">
<h2>{{TITLE}}</h2>
<p>Temperature: <span id="temp">{{TEMP}}</span></p>
<p>Humidity: <span id="humidity">{{HUMIDITY}}</span></p>
<p class="alert">Alert: <span id="alert">{{ALERT}}</span></p>
<p>{{ADVICE}}</p>
<form action="/" method="get">
<input type="number" name="r" min="0" max="255" value="{{R}}">
<input type="number" name="g" min="0" max="255" value="{{G}}">
<input type="number" name="b" min="0" max="255" value="{{B}}">
<div class="swatch"></div>
<button type="submit">Set Color</button>
</form>
<form action="/" method="get">
<input type="text" name="msg" maxlength="64" placeholder="Message for the display">
<button type="submit">Show Message</button>
</form>
</div>
</body>
</html>
`

// renderPage fills the status page with a snapshot and the current color.
// Every substituted value is a number or a fixed string, so nothing needs
// escaping.
func renderPage(title string, snap telemetry.Snapshot, c telemetry.Color) []byte {
	temp := display.AppendValue(nil, snap.Temperature, snap.Present)
	hum := display.AppendValue(nil, snap.Humidity, snap.Present)
	if snap.Present {
		temp = append(temp, "°C"...)
		hum = append(hum, '%')
	}
	r := strings.NewReplacer(
		"{{TITLE}}", title,
		"{{TEMP}}", string(temp),
		"{{HUMIDITY}}", string(hum),
		"{{ALERT}}", snap.Alert.String(),
		"{{ADVICE}}", snap.Alert.Advice(),
		"{{R}}", strconv.Itoa(int(c.R)),
		"{{G}}", strconv.Itoa(int(c.G)),
		"{{B}}", strconv.Itoa(int(c.B)),
	)
	return []byte(r.Replace(statusPage))
}
