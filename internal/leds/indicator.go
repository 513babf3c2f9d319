package leds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// Device reads and writes the printer's LED color.
type Device interface {
	LED(ctx context.Context) (models.LEDColor, error)
	SetLED(ctx context.Context, color models.LEDColor) error
}

// Indicator drives the case LEDs from the canonical printer status.
type Indicator struct {
	device Device
	colors StatusColors
}

// NewIndicator creates an Indicator.
func NewIndicator(device Device, colors StatusColors) *Indicator {
	return &Indicator{device: device, colors: colors}
}

// Apply sets the LED color for status, but only when the printer's current
// color differs. Reports whether a change was sent. Statuses without a color
// (including unknown) are ignored.
func (i *Indicator) Apply(ctx context.Context, status models.DeviceStatus) (bool, error) {
	desired, ok := i.colors.For(status)
	if !ok {
		return false, nil
	}

	actual, err := i.device.LED(ctx)
	if err != nil {
		return false, fmt.Errorf("reading led: %w", err)
	}
	if actual == desired {
		return false, nil
	}

	slog.Info("led mismatch",
		"status", status,
		"want_hue", desired.Hue, "have_hue", actual.Hue,
		"want_saturation", desired.Saturation, "have_saturation", actual.Saturation,
		"want_brightness", desired.Brightness, "have_brightness", actual.Brightness,
	)
	if err := i.device.SetLED(ctx, desired); err != nil {
		return false, fmt.Errorf("setting led: %w", err)
	}
	return true, nil
}
