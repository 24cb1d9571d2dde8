// Package flightcontrol ingests sensor samples, maintains the current
// flight estimate, advances the flight phase state machine, accumulates
// flight results, and assembles telemetry packets, per §4.2 of the
// onboard flight computer's design.
package flightcontrol

import (
	"github.com/markgavin/rocketavionics/internal/altitude"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
)

// velocitySmoothing is the exponential-moving-average coefficient
// applied to the raw Δalt/Δt velocity estimate (§4.2).
const velocitySmoothing = 0.3

// Results accumulates the durable outcome of one flight, written into
// the recorder's header on landing.
type Results struct {
	PeakAltitudeM    float32
	PeakVelocityMps  float32
	ApogeeTimeMs     uint32
	FlightDurationMs uint32
	LaunchTimeMs     uint32
	SampleCount      uint32
}

// Controller is the onboard flight computer's sensor-fusion and phase
// state machine. It exclusively owns the current sensor snapshot and
// the phase-machine state (§3 ownership summary).
type Controller struct {
	log zerolog.Logger

	phase telemetry.FlightState

	groundPressurePa    float32
	groundTemperatureC  float32
	haveGround          bool
	haveProvisionalGnd  bool
	provisionalGroundPa float32

	pressurePa       float32
	temperatureC     float32
	altitudeM        float32
	prevAltitudeM    float32
	velocityMps      float32
	lastSampleTimeMs uint32
	haveSample       bool

	imuAvailable  bool
	lastImuTimeMs uint32

	peakAltitudeM   float32
	peakVelocityMps float32

	apogeeConfirmRun  int
	landStationaryRun int

	orientationMode       bool
	orientationModeUntil  uint32
	orientationModeActive bool

	results Results

	trace       []telemetry.FlightSample
	traceCap    int
	sensorsOK   bool
	gpsFix      bool
	loRaOK      bool
	lowBattery  bool
	pyro1OK     bool
	pyro2OK     bool
	sdLogging   bool
}

// New constructs a Controller whose in-RAM trace buffer holds at most
// traceCapacity samples.
func New(traceCapacity int, log zerolog.Logger) *Controller {
	return &Controller{
		log:       log.With().Str("component", "flightcontrol").Logger(),
		phase:     telemetry.StateIdle,
		traceCap:  traceCapacity,
		trace:     make([]telemetry.FlightSample, 0, traceCapacity),
		sensorsOK: true,
		loRaOK:    true,
	}
}

// State returns the current flight phase.
func (c *Controller) State() telemetry.FlightState { return c.phase }

// StateName returns the host-link string form of the current phase.
func (c *Controller) StateName() string { return c.phase.Name() }

// Results returns a copy of the accumulated flight results.
func (c *Controller) Results() Results { return c.results }

// Trace returns the in-RAM telemetry trace accumulated so far.
func (c *Controller) Trace() []telemetry.FlightSample { return c.trace }

// SetFlags allows the main loop to report peripheral health that the
// controller itself cannot observe (sensor/GPS/radio/battery/pyro
// continuity), folded into telemetry flags at assembly time.
func (c *Controller) SetFlags(sensorsOK, gpsFix, loRaOK, lowBattery, pyro1OK, pyro2OK, sdLogging bool) {
	c.sensorsOK = sensorsOK
	c.gpsFix = gpsFix
	c.loRaOK = loRaOK
	c.lowBattery = lowBattery
	c.pyro1OK = pyro1OK
	c.pyro2OK = pyro2OK
	c.sdLogging = sdLogging
}

// UpdateSensors ingests one barometric sample. On the first sample while
// Idle with no ground reference latched, it latches a provisional ground
// pressure so a live display can show relative altitude before arming.
// Otherwise it derives altitude from the latched ground reference,
// computes Δalt/Δt, and smooths it with an EMA(α=0.3). Fails silently
// (per §7, a transient condition) if no ground reference is available.
func (c *Controller) UpdateSensors(pressurePa, temperatureC float32, tMs uint32) {
	c.pressurePa = pressurePa
	c.temperatureC = temperatureC

	if c.phase == telemetry.StateIdle && !c.haveGround && !c.haveProvisionalGnd {
		c.provisionalGroundPa = pressurePa
		c.haveProvisionalGnd = true
	}

	ref := c.groundPressurePa
	if !c.haveGround {
		if !c.haveProvisionalGnd {
			return
		}
		ref = c.provisionalGroundPa
	}

	newAltitude := altitude.Meters(float64(pressurePa), float64(ref))
	if c.haveSample {
		dtS := float32(tMs-c.lastSampleTimeMs) / 1000.0
		if dtS > 0 {
			rawVel := (float32(newAltitude) - c.altitudeM) / dtS
			c.velocityMps = velocitySmoothing*rawVel + (1-velocitySmoothing)*c.velocityMps
		}
	}
	c.prevAltitudeM = c.altitudeM
	c.altitudeM = float32(newAltitude)
	c.lastSampleTimeMs = tMs
	c.haveSample = true

	if c.altitudeM > c.peakAltitudeM {
		c.peakAltitudeM = c.altitudeM
	}
	if c.velocityMps > c.peakVelocityMps {
		c.peakVelocityMps = c.velocityMps
	}
	c.results.PeakAltitudeM = c.peakAltitudeM
	c.results.PeakVelocityMps = c.peakVelocityMps
}

// UpdateIMU is the prediction step of a complementary filter, reserved
// for future refinement. Today it only records availability and the
// latest timestamp.
func (c *Controller) UpdateIMU(tMs uint32) {
	c.imuAvailable = true
	c.lastImuTimeMs = tMs
}

// Update advances the phase state machine and, while in a recording
// phase, appends a trace sample if RAM buffer space remains.
func (c *Controller) Update(tMs uint32) {
	if c.orientationModeActive && tMs >= c.orientationModeUntil {
		c.orientationModeActive = false
	}

	if c.phase == telemetry.StateIdle || c.phase == telemetry.StateComplete {
		return
	}
	c.advancePhase()

	if c.isRecordingPhase() && len(c.trace) < c.traceCap {
		c.trace = append(c.trace, c.buildTraceSample(tMs))
		c.results.SampleCount = uint32(len(c.trace))
	}
}

func (c *Controller) isRecordingPhase() bool {
	switch c.phase {
	case telemetry.StateBoost, telemetry.StateCoast, telemetry.StateApogee, telemetry.StateDescent:
		return true
	default:
		return false
	}
}

func (c *Controller) buildTraceSample(tMs uint32) telemetry.FlightSample {
	sinceLaunch := tMs - c.results.LaunchTimeMs
	return telemetry.FlightSample{
		TimeMs:       sinceLaunch,
		AltitudeCm:   int32(c.altitudeM * 100),
		VelocityCmps: int16(c.velocityMps * 100),
		PressurePa:     uint32(c.pressurePa),
		TemperatureC10: int16(c.temperatureC * 10),
		State:          uint8(c.phase),
	}
}

// Arm latches the ground reference from the current sensor snapshot,
// zeroes results, and transitions to Armed. Allowed only from Idle or
// Complete.
func (c *Controller) Arm() Error {
	switch c.phase {
	case telemetry.StateArmed, telemetry.StateBoost, telemetry.StateCoast,
		telemetry.StateApogee, telemetry.StateDescent:
		if c.phase == telemetry.StateArmed {
			return ErrAlreadyArmed
		}
		return ErrInFlight
	case telemetry.StateLanded:
		return ErrInFlight
	}
	if !c.haveSample {
		return ErrSensorFail
	}
	c.groundPressurePa = c.pressurePa
	c.groundTemperatureC = c.temperatureC
	c.haveGround = true
	c.results = Results{}
	c.peakAltitudeM = 0
	c.peakVelocityMps = 0
	c.trace = c.trace[:0]
	c.apogeeConfirmRun = 0
	c.landStationaryRun = 0
	c.phase = telemetry.StateArmed
	c.log.Info().Msg("armed")
	return ErrNone
}

// Disarm returns to Idle. Allowed only from Armed.
func (c *Controller) Disarm() Error {
	switch c.phase {
	case telemetry.StateIdle, telemetry.StateComplete:
		return ErrNotArmed
	case telemetry.StateArmed:
		c.phase = telemetry.StateIdle
		c.haveGround = false
		c.log.Info().Msg("disarmed")
		return ErrNone
	default:
		return ErrInFlight
	}
}

// Reset unconditionally returns to Idle and clears transient counters.
func (c *Controller) Reset() {
	c.phase = telemetry.StateIdle
	c.haveGround = false
	c.haveProvisionalGnd = false
	c.apogeeConfirmRun = 0
	c.landStationaryRun = 0
	c.trace = c.trace[:0]
	c.log.Info().Msg("reset")
}

// MarkDownloadComplete transitions Landed to Complete, as driven by the
// download-complete command in §4.2.1's state table.
func (c *Controller) MarkDownloadComplete() bool {
	if c.phase != telemetry.StateLanded {
		return false
	}
	c.phase = telemetry.StateComplete
	return true
}

// EnableOrientationMode toggles high-rate telemetry mode with an
// auto-timeout, defaulting to 30s per §4.4.
func (c *Controller) EnableOrientationMode(enabled bool, tMs uint32, timeoutMs uint32) {
	c.orientationModeActive = enabled
	if enabled {
		c.orientationModeUntil = tMs + timeoutMs
	}
}

// OrientationModeActive reports whether high-rate telemetry mode is
// currently active.
func (c *Controller) OrientationModeActive() bool { return c.orientationModeActive }

// GroundPressure returns the latched ground pressure and whether it has
// been latched yet.
func (c *Controller) GroundPressure() (float32, bool) { return c.groundPressurePa, c.haveGround }

// Snapshot exposes the fields build_telemetry_packet needs, without
// granting write access to controller state (§3 ownership: the radio
// handler borrows read-only access).
type Snapshot struct {
	TimeMs           uint32
	LaunchTimeMs     uint32
	AltitudeM        float32
	VelocityMps      float32
	PressurePa       float32
	TemperatureC     float32
	State            telemetry.FlightState
	IMU              telemetry.IMUSample
	GPS              telemetry.GPSFix
	SensorsOK        bool
	LoRaOK           bool
	LowBattery       bool
	Pyro1OK          bool
	Pyro2OK          bool
	SdLogging        bool
	OrientationMode  bool
}

// Snapshot returns a read-only view of controller state for telemetry
// assembly.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		TimeMs:          c.lastSampleTimeMs,
		LaunchTimeMs:    c.results.LaunchTimeMs,
		AltitudeM:       c.altitudeM,
		VelocityMps:     c.velocityMps,
		PressurePa:      c.pressurePa,
		TemperatureC:    c.temperatureC,
		State:           c.phase,
		GPS:             telemetry.GPSFix{Valid: c.gpsFix},
		IMU:             telemetry.IMUSample{Valid: c.imuAvailable},
		SensorsOK:       c.sensorsOK,
		LoRaOK:          c.loRaOK,
		LowBattery:      c.lowBattery,
		Pyro1OK:         c.pyro1OK,
		Pyro2OK:         c.pyro2OK,
		SdLogging:       c.sdLogging,
		OrientationMode: c.orientationModeActive,
	}
}
