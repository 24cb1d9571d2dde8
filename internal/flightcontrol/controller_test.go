package flightcontrol

import (
	"testing"

	"github.com/markgavin/rocketavionics/internal/altitude"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func pressureAt(altM, groundPa float64) float32 {
	return float32(altitude.PressureForAltitude(altM, groundPa))
}

func TestArmGuards(t *testing.T) {
	c := New(256, zerolog.Nop())
	require.Equal(t, ErrSensorFail, c.Arm(), "arming with no sensor sample yet must fail")

	c.UpdateSensors(101325, 20, 0)
	require.Equal(t, ErrNone, c.Arm())
	require.Equal(t, ErrAlreadyArmed, c.Arm())

	require.Equal(t, ErrNone, c.Disarm())
	require.Equal(t, ErrNotArmed, c.Disarm())
}

func TestDisarmGuardsDuringFlight(t *testing.T) {
	c := New(4096, zerolog.Nop())
	groundPa := 101325.0
	c.UpdateSensors(float32(groundPa), 20, 0)
	require.Equal(t, ErrNone, c.Arm())

	// Drive into Boost via a launch-altitude excursion.
	c.UpdateSensors(pressureAt(50, groundPa), 20, 1000)
	c.Update(1000)
	require.Equal(t, telemetry.StateBoost, c.State())
	require.Equal(t, ErrInFlight, c.Disarm())
}

func TestStateMachineMonotonicReplay(t *testing.T) {
	run := func() []telemetry.FlightState {
		c := New(4096, zerolog.Nop())
		groundPa := 101325.0
		c.UpdateSensors(float32(groundPa), 20, 0)
		require.Equal(t, ErrNone, c.Arm())

		var path []telemetry.FlightState
		record := func() {
			if len(path) == 0 || path[len(path)-1] != c.State() {
				path = append(path, c.State())
			}
		}
		record()

		tMs := uint32(0)
		// Ascent: altitude climbs from 0 to 300m over 3s.
		for i := 1; i <= 30; i++ {
			tMs += 100
			alt := float64(i) * 10
			c.UpdateSensors(pressureAt(alt, groundPa), 20, tMs)
			c.Update(tMs)
			record()
		}
		// Coast/descent: altitude falls back to 0 over the following 6s.
		for i := 30; i >= 0; i-- {
			tMs += 100
			alt := float64(i) * 10
			c.UpdateSensors(pressureAt(alt, groundPa), 20, tMs)
			c.Update(tMs)
			record()
		}
		// Hold on the pad long enough for the smoothed velocity to decay
		// well under the landing threshold and for the confirmation
		// window to elapse.
		for i := 0; i < 200; i++ {
			tMs += 100
			c.UpdateSensors(pressureAt(0, groundPa), 20, tMs)
			c.Update(tMs)
			record()
		}
		return path
	}

	first := run()
	second := run()
	require.Equal(t, first, second, "replaying identical inputs into a fresh controller must yield the same path")

	expectedPrefix := []telemetry.FlightState{
		telemetry.StateArmed,
		telemetry.StateBoost,
	}
	require.GreaterOrEqual(t, len(first), len(expectedPrefix))
	require.Equal(t, expectedPrefix, first[:len(expectedPrefix)])

	seen := map[telemetry.FlightState]bool{}
	for _, s := range first {
		seen[s] = true
	}
	require.True(t, seen[telemetry.StateLanded], "scripted flight must reach Landed: %v", first)
}

func TestResetClearsGroundReference(t *testing.T) {
	c := New(256, zerolog.Nop())
	c.UpdateSensors(101325, 20, 0)
	require.Equal(t, ErrNone, c.Arm())
	c.Reset()
	require.Equal(t, telemetry.StateIdle, c.State())
	_, have := c.GroundPressure()
	require.False(t, have)
}

func TestOrientationModeAutoTimeout(t *testing.T) {
	c := New(256, zerolog.Nop())
	c.UpdateSensors(101325, 20, 0)
	require.Equal(t, ErrNone, c.Arm())
	c.EnableOrientationMode(true, 1000, 30000)
	require.True(t, c.OrientationModeActive())
	c.Update(20000)
	require.True(t, c.OrientationModeActive())
	c.Update(31001)
	require.False(t, c.OrientationModeActive())
}
