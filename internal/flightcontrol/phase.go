package flightcontrol

import "github.com/markgavin/rocketavionics/internal/telemetry"

// Reference thresholds from §4.2.1.
const (
	launchAltM       = 10.0
	launchVelMps     = 10.0
	coastAltM        = 20.0
	coastVelFraction = 0.95
	apogeeVelMps     = 2.0
	landAltM         = 10.0
	landVelMps       = 1.0

	apogeeConfirmCount  = 3
	landStationaryCount = 50
)

// Phase is an alias kept local so callers don't need to import
// telemetry just to name a flight phase.
type Phase = telemetry.FlightState

// advancePhase runs one tick of the phase machine given the current
// smoothed estimate, moving to the next phase through enterPhase (which
// latches result fields) when its transition condition holds.
func (c *Controller) advancePhase() {
	switch c.phase {
	case telemetry.StateArmed:
		if c.altitudeM > launchAltM || c.velocityMps > launchVelMps {
			c.enterPhase(telemetry.StateBoost)
		}
	case telemetry.StateBoost:
		if c.velocityMps < coastVelFraction*c.peakVelocityMps && c.altitudeM > coastAltM {
			c.enterPhase(telemetry.StateCoast)
		}
	case telemetry.StateCoast:
		if c.velocityMps <= apogeeVelMps {
			c.apogeeConfirmRun++
		} else {
			c.apogeeConfirmRun = 0
		}
		if c.apogeeConfirmRun >= apogeeConfirmCount {
			c.enterPhase(telemetry.StateApogee)
		}
	case telemetry.StateApogee:
		// Unconditional one-tick presence, per §4.2.1.
		c.enterPhase(telemetry.StateDescent)
	case telemetry.StateDescent:
		if absf(c.velocityMps) < landVelMps && c.altitudeM < landAltM {
			c.landStationaryRun++
		} else {
			c.landStationaryRun = 0
		}
		if c.landStationaryRun >= landStationaryCount {
			c.enterPhase(telemetry.StateLanded)
		}
	}
}

// enterPhase transitions to next, latching phase-entry results as
// described in §4.2.1.
func (c *Controller) enterPhase(next telemetry.FlightState) {
	switch next {
	case telemetry.StateBoost:
		c.results.LaunchTimeMs = c.lastSampleTimeMs
	case telemetry.StateApogee:
		c.results.ApogeeTimeMs = c.lastSampleTimeMs - c.results.LaunchTimeMs
	case telemetry.StateLanded:
		c.results.FlightDurationMs = c.lastSampleTimeMs - c.results.LaunchTimeMs
	}
	c.phase = next
	c.apogeeConfirmRun = 0
	c.landStationaryRun = 0
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
