package telemetry

// Alert classifies a temperature/humidity pair.
type Alert uint8

const (
	Unknown Alert = iota // No valid reading.
	Normal
	Hot
	Cold
	Dry
	Humid
)

// Classification thresholds, degrees Celsius and percent relative humidity.
const (
	HotAbove   = 30
	ColdBelow  = 15
	DryBelow   = 30
	HumidAbove = 70
)

// Classify maps a valid reading to an Alert. Rules are checked in a fixed
// order and the first match wins: temperature rules come before humidity
// rules, so a reading that is both hot and dry reports Hot. This ordering is
// intentional.
func Classify(temp, hum float32) Alert {
	switch {
	case temp > HotAbove:
		return Hot
	case temp < ColdBelow:
		return Cold
	case hum < DryBelow:
		return Dry
	case hum > HumidAbove:
		return Humid
	default:
		return Normal
	}
}

func (a Alert) String() string {
	switch a {
	case Normal:
		return "Normal"
	case Hot:
		return "Hot"
	case Cold:
		return "Cold"
	case Dry:
		return "Dry"
	case Humid:
		return "Humid"
	default:
		return "Unknown"
	}
}

// Advice is the sentence shown to people for the alert.
func (a Alert) Advice() string {
	switch a {
	case Normal:
		return "Weather is normal."
	case Hot:
		return "It's hot! Stay cool."
	case Cold:
		return "It's cold! Stay warm."
	case Dry:
		return "Air is dry, drink water."
	case Humid:
		return "High humidity! Stay hydrated."
	default:
		return "Sensor unavailable."
	}
}
