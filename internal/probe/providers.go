package probe

import "context"

// FixedLocation reports a stationary installation's coordinates. Kiosk
// deployments mount the capture device at a known point on site.
type FixedLocation struct {
	Coords Coordinates
}

// LastKnown always has a fix for a stationary install.
func (f FixedLocation) LastKnown(ctx context.Context) (Coordinates, bool) {
	return f.Coords, true
}

// Current returns the same fixed coordinates.
func (f FixedLocation) Current(ctx context.Context) (Coordinates, error) {
	return f.Coords, nil
}

// StaticDevice reports identity strings from configuration.
type StaticDevice struct {
	Model        string
	Brand        string
	Manufacturer string
}

// Identity returns the configured identity.
func (d StaticDevice) Identity(ctx context.Context) (DeviceIdentity, error) {
	return DeviceIdentity{
		Model:        d.Model,
		Brand:        d.Brand,
		Manufacturer: d.Manufacturer,
	}, nil
}
