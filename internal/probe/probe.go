package probe

import (
	"context"
	"log"
	"time"
)

// Coordinates is a GPS fix.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeviceIdentity carries the static device identity strings reported with a
// submission. Fields degrade to empty strings when the host exposes nothing.
type DeviceIdentity struct {
	Model        string
	Brand        string
	Manufacturer string
}

// ProofOfPresence is the contextual bundle attached to one submission
// attempt: capture timestamp, position, and device identity. Created fresh
// per attempt and discarded after use.
type ProofOfPresence struct {
	Timestamp string
	Location  Coordinates
	Device    DeviceIdentity
}

// LocationProvider supplies the device position. Acquire prefers LastKnown
// when a cached fix is available, trading staleness for latency.
type LocationProvider interface {
	LastKnown(ctx context.Context) (Coordinates, bool)
	Current(ctx context.Context) (Coordinates, error)
}

// DeviceInfoProvider resolves the static device identity strings.
type DeviceInfoProvider interface {
	Identity(ctx context.Context) (DeviceIdentity, error)
}

// Probe acquires a proof-of-presence bundle. It never returns an error: any
// failure to obtain a position collapses to a nil bundle, which callers must
// treat as "cannot submit".
type Probe struct {
	loc LocationProvider
	dev DeviceInfoProvider
	now func() time.Time
}

// New builds a probe. dev may be nil for face-match-only flows that carry no
// device identity.
func New(loc LocationProvider, dev DeviceInfoProvider) *Probe {
	return &Probe{loc: loc, dev: dev, now: time.Now}
}

// Acquire resolves position and device identity concurrently and joins them.
// The position fix is load-bearing: permission denial, GPS timeout, or any
// provider error yields nil. Device identity is not: its failure degrades to
// empty strings.
func (p *Probe) Acquire(ctx context.Context) *ProofOfPresence {
	if p.loc == nil {
		return nil
	}

	timestamp := p.now().UTC().Format(time.RFC3339)

	devCh := make(chan DeviceIdentity, 1)
	go func() {
		var identity DeviceIdentity
		if p.dev != nil {
			resolved, err := p.dev.Identity(ctx)
			if err != nil {
				log.Printf("device identity unavailable: %v", err)
			} else {
				identity = resolved
			}
		}
		devCh <- identity
	}()

	coords, ok := p.loc.LastKnown(ctx)
	if !ok {
		fresh, err := p.loc.Current(ctx)
		if err != nil {
			log.Printf("location fix failed: %v", err)
			<-devCh
			return nil
		}
		coords = fresh
	}

	return &ProofOfPresence{
		Timestamp: timestamp,
		Location:  coords,
		Device:    <-devCh,
	}
}
