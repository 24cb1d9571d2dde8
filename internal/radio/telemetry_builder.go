package radio

import (
	"github.com/markgavin/rocketavionics/internal/flightcontrol"
	"github.com/markgavin/rocketavionics/internal/telemetry"
)

// cadence table: telemetry send interval in ms by phase (§4.2.2).
func sendIntervalMs(phase telemetry.FlightState) uint32 {
	switch phase {
	case telemetry.StateBoost, telemetry.StateCoast, telemetry.StateApogee, telemetry.StateDescent:
		return 100 // 10 Hz
	case telemetry.StateArmed:
		return 1000 // 1 Hz
	default:
		return 2000 // 0.5 Hz
	}
}

const orientationModeIntervalMs = 100 // 10 Hz while orientation mode is active, regardless of phase

// buildTelemetryPacket assembles a 55-byte telemetry packet from the
// controller's read-only snapshot, matching §4.2.2's
// build_telemetry_packet: byte-identical output for byte-identical
// input.
func buildTelemetryPacket(snap flightcontrol.Snapshot, sequence uint16, rocketID uint8) telemetry.LoRaTelemetryPacket {
	timeMs := uint32(0)
	if snap.TimeMs > snap.LaunchTimeMs {
		timeMs = snap.TimeMs - snap.LaunchTimeMs
	}

	var flags uint8
	if snap.GPS.Valid {
		flags |= telemetry.FlagGpsFix
	}
	if snap.SensorsOK {
		flags |= telemetry.FlagSensorsOK
	}
	if snap.LoRaOK {
		flags |= telemetry.FlagLoRaLinkAlive
	}
	if snap.LowBattery {
		flags |= telemetry.FlagLowBattery
	}
	if snap.SdLogging {
		flags |= telemetry.FlagSdLogging
	}
	if snap.Pyro1OK {
		flags |= telemetry.FlagPyro1Continuity
	}
	if snap.Pyro2OK {
		flags |= telemetry.FlagPyro2Continuity
	}
	if snap.OrientationMode {
		flags |= telemetry.FlagOrientationMode
	}

	return telemetry.LoRaTelemetryPacket{
		PacketType:     telemetry.PacketTypeTelemetry,
		RocketID:       rocketID,
		Sequence:       sequence,
		TimeMs:         timeMs,
		AltitudeCm:     int32(snap.AltitudeM * 100),
		VelocityCmps:   int16(snap.VelocityMps * 100),
		PressurePa:     uint32(snap.PressurePa),
		TemperatureC10: int16(snap.TemperatureC * 10),
		GPS:            snap.GPS,
		IMU:            snap.IMU,
		State:          uint8(snap.State),
		Flags:          flags,
	}
}
