// Package telemetry holds the wire- and flash-exact packed binary
// records shared by the flight node and the gateway: flight samples,
// flight headers, and the LoRa telemetry packet. Every record here is
// serialized by explicit, endian-aware byte packing rather than
// relying on any in-memory struct layout, matching the contract in the
// specification's data model.
package telemetry

import (
	"encoding/binary"
	"math"
)

// FlightState enumerates the flight phase, matching §3/§4.2.1.
type FlightState uint8

const (
	StateIdle FlightState = iota
	StateArmed
	StateBoost
	StateCoast
	StateApogee
	StateDescent
	StateLanded
	StateComplete
)

var stateNames = [...]string{
	"idle", "armed", "boost", "coast", "apogee", "descent", "landed", "complete",
}

// Name returns the wire/host-link string form of the state.
func (s FlightState) Name() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Flags bitfield, see §3.
const (
	FlagGpsFix uint8 = 1 << iota
	FlagSensorsOK
	FlagSdLogging
	FlagLowBattery
	FlagLoRaLinkAlive
	FlagPyro1Continuity
	FlagPyro2Continuity
	FlagOrientationMode
)

// FlightSample is the persistent, packed sample record appended to a
// flight's flash slot at the sample rate. Its on-disk size is 52 bytes:
// the field list alone sums to 48 bytes, so the remaining 4 bytes are
// explicit reserved padding — see DESIGN.md for why the stride is
// pinned at 52 rather than 48.
type FlightSample struct {
	TimeMs          uint32
	AltitudeCm      int32
	VelocityCmps    int16
	PressurePa      uint32
	TemperatureC10  int16
	GpsLatitude     int32
	GpsLongitude    int32
	GpsSpeedCmps    int16
	GpsHeadingDeg10 uint16
	GpsSatellites   uint8
	AccelX, AccelY, AccelZ int16
	GyroX, GyroY, GyroZ    int16
	MagX, MagY, MagZ       int16
	State           uint8
}

// FlightSampleSize is the fixed on-disk/wire size of a FlightSample.
const FlightSampleSize = 52

// Encode serializes the sample into a 52-byte little-endian buffer.
func (s FlightSample) Encode() []byte {
	b := make([]byte, FlightSampleSize)
	binary.LittleEndian.PutUint32(b[0:4], s.TimeMs)
	binary.LittleEndian.PutUint32(b[4:8], uint32(s.AltitudeCm))
	binary.LittleEndian.PutUint16(b[8:10], uint16(s.VelocityCmps))
	binary.LittleEndian.PutUint32(b[10:14], s.PressurePa)
	binary.LittleEndian.PutUint16(b[14:16], uint16(s.TemperatureC10))
	binary.LittleEndian.PutUint32(b[16:20], uint32(s.GpsLatitude))
	binary.LittleEndian.PutUint32(b[20:24], uint32(s.GpsLongitude))
	binary.LittleEndian.PutUint16(b[24:26], uint16(s.GpsSpeedCmps))
	binary.LittleEndian.PutUint16(b[26:28], s.GpsHeadingDeg10)
	b[28] = s.GpsSatellites
	binary.LittleEndian.PutUint16(b[29:31], uint16(s.AccelX))
	binary.LittleEndian.PutUint16(b[31:33], uint16(s.AccelY))
	binary.LittleEndian.PutUint16(b[33:35], uint16(s.AccelZ))
	binary.LittleEndian.PutUint16(b[35:37], uint16(s.GyroX))
	binary.LittleEndian.PutUint16(b[37:39], uint16(s.GyroY))
	binary.LittleEndian.PutUint16(b[39:41], uint16(s.GyroZ))
	binary.LittleEndian.PutUint16(b[41:43], uint16(s.MagX))
	binary.LittleEndian.PutUint16(b[43:45], uint16(s.MagY))
	binary.LittleEndian.PutUint16(b[45:47], uint16(s.MagZ))
	b[47] = s.State
	// b[48:52] reserved, left zero
	return b
}

// DecodeFlightSample parses a 52-byte buffer produced by Encode.
func DecodeFlightSample(b []byte) FlightSample {
	var s FlightSample
	s.TimeMs = binary.LittleEndian.Uint32(b[0:4])
	s.AltitudeCm = int32(binary.LittleEndian.Uint32(b[4:8]))
	s.VelocityCmps = int16(binary.LittleEndian.Uint16(b[8:10]))
	s.PressurePa = binary.LittleEndian.Uint32(b[10:14])
	s.TemperatureC10 = int16(binary.LittleEndian.Uint16(b[14:16]))
	s.GpsLatitude = int32(binary.LittleEndian.Uint32(b[16:20]))
	s.GpsLongitude = int32(binary.LittleEndian.Uint32(b[20:24]))
	s.GpsSpeedCmps = int16(binary.LittleEndian.Uint16(b[24:26]))
	s.GpsHeadingDeg10 = binary.LittleEndian.Uint16(b[26:28])
	s.GpsSatellites = b[28]
	s.AccelX = int16(binary.LittleEndian.Uint16(b[29:31]))
	s.AccelY = int16(binary.LittleEndian.Uint16(b[31:33]))
	s.AccelZ = int16(binary.LittleEndian.Uint16(b[33:35]))
	s.GyroX = int16(binary.LittleEndian.Uint16(b[35:37]))
	s.GyroY = int16(binary.LittleEndian.Uint16(b[37:39]))
	s.GyroZ = int16(binary.LittleEndian.Uint16(b[39:41]))
	s.MagX = int16(binary.LittleEndian.Uint16(b[41:43]))
	s.MagY = int16(binary.LittleEndian.Uint16(b[43:45]))
	s.MagZ = int16(binary.LittleEndian.Uint16(b[45:47]))
	s.State = b[47]
	return s
}

// FlightHeaderSize is the number of bytes the recorder reads/writes for
// a flight header: magic through checksum, page-aligned reserved space
// included.
const FlightHeaderSize = 80

const (
	FlightMagic      = 0x54484746 // "FGHT" LE
	FlightIndexMagic = 0x58444E49 // "INDX" LE
	FlightVersion    = 1
)

// FlightHeader is the persistent header stored at the first page of
// each flight slot.
type FlightHeader struct {
	Magic            uint32
	Version          uint32
	FlightID         uint32
	LaunchUnixTime   uint32
	SampleCount      uint32
	PeakAltitudeM    float32
	PeakVelocityMps  float32
	ApogeeTimeMs     uint32
	FlightDurationMs uint32
	GroundPressurePa float32
	LaunchLatitude   int32
	LaunchLongitude  int32
	Checksum         uint32
}

// Encode serializes the header into an 80-byte little-endian buffer.
// The checksum field is written as-is; callers compute it with
// ChecksumHeaderBytes before calling Encode.
func (h FlightHeader) Encode() []byte {
	b := make([]byte, FlightHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.FlightID)
	binary.LittleEndian.PutUint32(b[12:16], h.LaunchUnixTime)
	binary.LittleEndian.PutUint32(b[16:20], h.SampleCount)
	binary.LittleEndian.PutUint32(b[20:24], math.Float32bits(h.PeakAltitudeM))
	binary.LittleEndian.PutUint32(b[24:28], math.Float32bits(h.PeakVelocityMps))
	binary.LittleEndian.PutUint32(b[28:32], h.ApogeeTimeMs)
	binary.LittleEndian.PutUint32(b[32:36], h.FlightDurationMs)
	binary.LittleEndian.PutUint32(b[36:40], math.Float32bits(h.GroundPressurePa))
	binary.LittleEndian.PutUint32(b[40:44], uint32(h.LaunchLatitude))
	binary.LittleEndian.PutUint32(b[44:48], uint32(h.LaunchLongitude))
	// b[48:76] reserved, left zero
	binary.LittleEndian.PutUint32(b[76:80], h.Checksum)
	return b
}

// DecodeFlightHeader parses a buffer of at least FlightHeaderSize bytes.
func DecodeFlightHeader(b []byte) FlightHeader {
	var h FlightHeader
	h.Magic = binary.LittleEndian.Uint32(b[0:4])
	h.Version = binary.LittleEndian.Uint32(b[4:8])
	h.FlightID = binary.LittleEndian.Uint32(b[8:12])
	h.LaunchUnixTime = binary.LittleEndian.Uint32(b[12:16])
	h.SampleCount = binary.LittleEndian.Uint32(b[16:20])
	h.PeakAltitudeM = math.Float32frombits(binary.LittleEndian.Uint32(b[20:24]))
	h.PeakVelocityMps = math.Float32frombits(binary.LittleEndian.Uint32(b[24:28]))
	h.ApogeeTimeMs = binary.LittleEndian.Uint32(b[28:32])
	h.FlightDurationMs = binary.LittleEndian.Uint32(b[32:36])
	h.GroundPressurePa = math.Float32frombits(binary.LittleEndian.Uint32(b[36:40]))
	h.LaunchLatitude = int32(binary.LittleEndian.Uint32(b[40:44]))
	h.LaunchLongitude = int32(binary.LittleEndian.Uint32(b[44:48]))
	h.Checksum = binary.LittleEndian.Uint32(b[76:80])
	return h
}

// ChecksumHeaderBytes computes the header checksum as the byte sum of
// the fields preceding the checksum field (bytes 0..75 of the encoded
// form), matching the firmware's CalculateChecksum.
func ChecksumHeaderBytes(h FlightHeader) uint32 {
	b := h.Encode()
	var sum uint32
	for _, v := range b[:76] {
		sum += uint32(v)
	}
	return sum
}
