package models

// LEDColor is the HSV triple accepted by the printer's case LEDs.
// Hue is in degrees (0-360); saturation and brightness are percentages.
type LEDColor struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}
