package leds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/printwatch/pkg/models"
	"github.com/lucasb-eyer/go-colorful"
)

// brightnessDivisor dims every color; the case LEDs are harsh at full value.
const brightnessDivisor = 2.5

// happyColors started from the Bob Ross palette, with values raised to at
// least 70% brightness so the LED strips stay visible.
var happyColors = map[string]string{
	"SapGreen":        "#22B338",
	"AlizarinCrimson": "#B33000",
	"VanDykeBrown":    "#B38F6F",
	"DarkSienna":      "#B3573B",
	"MidnightBlack":   "#000000",
	"PrussianBlue":    "#054EB3",
	"PhthaloBlue":     "#2100B3",
	"PhthaloGreen":    "#308AB3",
	"CadmiumYellow":   "#FFEC00",
	"YellowOchre":     "#C79B00",
	"IndianYellow":    "#FFB800",
	"BrightRed":       "#B30000",
	"BrightGreen":     "#00B300",
	"BrightBlue":      "#0000B3",
	"TitaniumWhite":   "#FFFFFF",
}

var statusColorNames = map[models.DeviceStatus]string{
	models.StatusIdle:           "PrussianBlue",
	models.StatusPrinting:       "TitaniumWhite",
	models.StatusPausing:        "IndianYellow",
	models.StatusPaused:         "CadmiumYellow",
	models.StatusResuming:       "IndianYellow",
	models.StatusPrePrint:       "SapGreen",
	models.StatusPostPrint:      "BrightBlue",
	models.StatusWaitCleanup:    "BrightGreen",
	models.StatusWaitUserAction: "BrightRed",
	models.StatusError:          "BrightRed",
	models.StatusMaintenance:    "CadmiumYellow",
	models.StatusBooting:        "PhthaloGreen",
}

// StatusColors maps each canonical status to its LED color. It is built once
// and never mutated.
type StatusColors struct {
	colors map[models.DeviceStatus]models.LEDColor
}

// DefaultStatusColors builds the status color table from the palette.
func DefaultStatusColors() (StatusColors, error) {
	sc := StatusColors{colors: make(map[models.DeviceStatus]models.LEDColor, len(statusColorNames))}
	for status, name := range statusColorNames {
		hex, ok := happyColors[name]
		if !ok {
			return StatusColors{}, fmt.Errorf("status %s: unknown palette color %q", status, name)
		}
		c, err := HexToLED(hex)
		if err != nil {
			return StatusColors{}, fmt.Errorf("status %s: %w", status, err)
		}
		sc.colors[status] = c
	}
	return sc, nil
}

// For returns the color for status. Unknown statuses have no color.
func (sc StatusColors) For(status models.DeviceStatus) (models.LEDColor, bool) {
	c, ok := sc.colors[status]
	return c, ok
}

// HexToLED converts "#RRGGBB" to the printer's HSV representation, rounded
// to five decimals so repeated comparisons with the printer's echo are stable.
func HexToLED(hex string) (models.LEDColor, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return models.LEDColor{}, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return models.LEDColor{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	c := colorful.Color{
		R: float64(v>>16&0xFF) / 255,
		G: float64(v>>8&0xFF) / 255,
		B: float64(v&0xFF) / 255,
	}
	hue, sat, val := c.Hsv()

	return models.LEDColor{
		Hue:        round5(hue),
		Saturation: round5(sat * 100),
		Brightness: round5(val * 100 / brightnessDivisor),
	}, nil
}

func round5(x float64) float64 {
	return math.Round(x*1e5) / 1e5
}
