// Package flightsim generates a deterministic synthetic flight profile
// for exercising the controller, recorder, and radio handler without
// real sensors — used by tests and the flightnode binary's --simulate
// mode.
package flightsim

import (
	"math"

	"github.com/markgavin/rocketavionics/internal/altitude"
)

// Profile describes a simple powered-ascent/ballistic-descent flight:
// quadratic climb to burnout, then a quarter-sine coast to apogee,
// then free-fall descent, then rest on the pad.
type Profile struct {
	GroundPressurePa float64
	BurnoutTimeMs     uint32
	BurnoutAltitudeM  float64
	ApogeeTimeMs      uint32
	ApogeeAltitudeM   float64
	LandingTimeMs     uint32
}

// DefaultProfile is a representative single-stage model-rocket flight:
// 2s burn to 120m, coasting to apogee at 250m around 9s, landing by 45s.
func DefaultProfile() Profile {
	return Profile{
		GroundPressurePa: altitude.SeaLevelPressurePa,
		BurnoutTimeMs:    2000,
		BurnoutAltitudeM: 120,
		ApogeeTimeMs:     9000,
		ApogeeAltitudeM:  250,
		LandingTimeMs:    45000,
	}
}

// AltitudeAt returns the profile's modelled altitude in meters at tMs,
// quadratic, quarter-sine and parabolic across the three flight segments, clamped
// to zero on the pad before launch and after landing.
func (p Profile) AltitudeAt(tMs uint32) float64 {
	switch {
	case tMs <= 0:
		return 0
	case tMs <= p.BurnoutTimeMs:
		frac := float64(tMs) / float64(p.BurnoutTimeMs)
		return p.BurnoutAltitudeM * frac * frac
	case tMs <= p.ApogeeTimeMs:
		frac := float64(tMs-p.BurnoutTimeMs) / float64(p.ApogeeTimeMs-p.BurnoutTimeMs)
		return p.BurnoutAltitudeM + (p.ApogeeAltitudeM-p.BurnoutAltitudeM)*math.Sin(frac*math.Pi/2)
	case tMs <= p.LandingTimeMs:
		frac := float64(tMs-p.ApogeeTimeMs) / float64(p.LandingTimeMs-p.ApogeeTimeMs)
		return p.ApogeeAltitudeM * (1 - frac*frac)
	default:
		return 0
	}
}

// PressureAt returns the barometric pressure in Pa that corresponds to
// the profile's modelled altitude at tMs, suitable for feeding directly
// into a flight controller's UpdateSensors.
func (p Profile) PressureAt(tMs uint32) float32 {
	return float32(altitude.PressureForAltitude(p.AltitudeAt(tMs), p.GroundPressurePa))
}
