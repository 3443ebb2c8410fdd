// pkg/telemetry/telemetry.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/transport"
)

// Snapshot is the current telemetry state, updated asynchronously from
// the drone. Readers see the most recently written value; because
// updates come from three subscriber goroutines (position, state, and
// health) writing under a single mutex, readers must not assume
// atomicity across multiple fields read in separate calls.
type Snapshot struct {
	Position    transport.Position
	AltitudeM   float64
	InAir       bool
	IsArmed     bool
	IsLanded    bool
	FlightMode  string
	Battery     transport.Battery
	GPSInfo     transport.GPSInfo
	HealthAllOK bool
}

// Cache subscribes to flight-controller telemetry streams and serves the
// most recent snapshot to any number of readers.
type Cache struct {
	drone transport.Drone
	lg    *log.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func New(drone transport.Drone, lg *log.Logger) *Cache {
	return &Cache{drone: drone, lg: lg}
}

func (c *Cache) get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// SubscribePosition updates position and altitude on every telemetry
// message, requesting a 10 Hz update rate from the transport. It runs
// until ctx is cancelled or the position stream closes; stream errors
// are logged and the subscription continues serving the last-known
// values.
func (c *Cache) SubscribePosition(ctx context.Context) {
	if err := c.drone.SetPositionUpdateRate(ctx, 10); err != nil {
		c.lg.Warnf("set position update rate: %v", err)
	}

	positions, errs := c.drone.StreamPosition(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil // keep draining positions until that stream closes
				continue
			}
			c.lg.Warnf("position telemetry stream error: %v", err)
		case p, ok := <-positions:
			if !ok {
				return
			}
			c.mu.Lock()
			c.snap.Position = p.Position
			c.snap.AltitudeM = p.RelativeAltitudeM
			c.mu.Unlock()
		}
	}
}

// SubscribeState polls armed, in-air, and landed-state at roughly 1 Hz
// and writes the cache. It runs until ctx is cancelled.
func (c *Cache) SubscribeState(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			armed, err := c.drone.IsArmed(ctx)
			if err != nil {
				c.lg.Warnf("state telemetry (armed) error: %v", err)
				continue
			}
			inAir, err := c.drone.IsInAir(ctx)
			if err != nil {
				c.lg.Warnf("state telemetry (in_air) error: %v", err)
				continue
			}
			landed, err := c.drone.LandedState(ctx)
			if err != nil {
				c.lg.Warnf("state telemetry (landed_state) error: %v", err)
				continue
			}
			c.mu.Lock()
			c.snap.IsArmed = armed
			c.snap.InAir = inAir
			c.snap.IsLanded = landed == transport.LandedStateOnGround
			c.mu.Unlock()
		}
	}
}

// SubscribeHealth polls health_all_ok at roughly 1 Hz, invoking onChange
// on the first successful reading and whenever the value flips.
func (c *Cache) SubscribeHealth(ctx context.Context, onChange func(ok bool)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prev := true // assume healthy until told otherwise
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := c.drone.HealthAllOK(ctx)
			if err != nil {
				c.lg.Warnf("health telemetry error: %v", err)
				continue
			}
			c.mu.Lock()
			c.snap.HealthAllOK = ok
			c.mu.Unlock()
			if first || ok != prev {
				onChange(ok)
			}
			prev, first = ok, false
		}
	}
}

const pollRateDivisorSeconds = 1.0

func waitFor(ctx context.Context, rate float64, cond func() bool) bool {
	if rate <= 0 {
		rate = 10
	}
	interval := time.Duration(pollRateDivisorSeconds / rate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if cond() {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if cond() {
				return true
			}
		}
	}
}

// WaitForArmed suspends until the cache's armed flag is set, polling at
// the given rate (Hz). It never re-subscribes to the transport.
func (c *Cache) WaitForArmed(ctx context.Context, rate float64) bool {
	return waitFor(ctx, rate, func() bool { return c.get().IsArmed })
}

// WaitForDisarmed suspends until the cache's armed flag is cleared.
func (c *Cache) WaitForDisarmed(ctx context.Context, rate float64) bool {
	return waitFor(ctx, rate, func() bool { return !c.get().IsArmed })
}

// WaitForInAir suspends until the cache observes the drone airborne.
func (c *Cache) WaitForInAir(ctx context.Context, rate float64) bool {
	return waitFor(ctx, rate, func() bool { return c.get().InAir })
}

// WaitForLanded suspends until the cache observes the drone landed.
func (c *Cache) WaitForLanded(ctx context.Context, rate float64) bool {
	return waitFor(ctx, rate, func() bool { return c.get().IsLanded })
}

// IsArmed reports the cache's last-known armed flag without blocking.
func (c *Cache) IsArmed() bool { return c.get().IsArmed }

// InAir reports the cache's last-known in-air flag without blocking.
func (c *Cache) InAir() bool { return c.get().InAir }

// Position returns the last-known position and altitude.
func (c *Cache) Position() (transport.Position, float64) {
	s := c.get()
	return s.Position, s.AltitudeM
}

// Altitude returns the last-known relative altitude in meters.
func (c *Cache) Altitude() float64 {
	return c.get().AltitudeM
}

// PrintStatus logs a one-shot diagnostic dump of armed, flight mode,
// landed state, battery, GPS info, health, and position -- for operator
// visibility, not for control decisions.
func (c *Cache) PrintStatus(ctx context.Context) {
	s := c.get()
	flightMode, _ := c.drone.FlightMode(ctx)
	battery, _ := c.drone.Battery(ctx)
	gps, _ := c.drone.GPSInfo(ctx)

	c.lg.Infof("telemetry status: armed=%v flight_mode=%v landed=%v battery=%+v gps=%+v health_ok=%v position=%+v altitude=%.2f",
		s.IsArmed, flightMode, s.IsLanded, battery, gps, s.HealthAllOK, s.Position, s.AltitudeM)
}
