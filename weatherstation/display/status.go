package display

import (
	"strconv"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

const floatNoExp = 'f'

// StatusLines formats a telemetry snapshot for a cols x rows screen: a
// temperature line, a humidity line and the alert advice wrapped into the
// remaining rows. Absent values print as N/A.
func StatusLines(snap telemetry.Snapshot, cols, rows int) []string {
	// Preallocated so the periodic refresh does not churn the heap.
	buf := make([]byte, 0, 2*cols)
	buf = append(buf, "Temp: "...)
	buf = AppendValue(buf, snap.Temperature, snap.Present)
	if snap.Present {
		buf = append(buf, 'C')
	}
	temp := string(buf)

	buf = buf[:0]
	buf = append(buf, "Humidity: "...)
	buf = AppendValue(buf, snap.Humidity, snap.Present)
	if snap.Present {
		buf = append(buf, '%')
	}
	hum := string(buf)

	lines := []string{temp, hum}
	if rows > len(lines) {
		lines = append(lines, Layout(snap.Alert.Advice(), cols, rows-len(lines))...)
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}
	return lines
}

// AppendValue appends v with one decimal, or N/A when ok is false.
func AppendValue(dst []byte, v float32, ok bool) []byte {
	if !ok {
		return append(dst, "N/A"...)
	}
	return strconv.AppendFloat(dst, float64(v), floatNoExp, 1, 32)
}
