package telemetry

import "encoding/binary"

// Wire packet types carried in the radio header (§4.4, §6).
const (
	PacketTypeTelemetry   uint8 = 0x01
	PacketTypeStatus      uint8 = 0x02
	PacketTypeCommand     uint8 = 0x03
	PacketTypeAck         uint8 = 0x04
	PacketTypeData        uint8 = 0x05
	PacketTypeStorageList uint8 = 0x06
	PacketTypeStorageData uint8 = 0x07
	PacketTypeInfo        uint8 = 0x08
)

// LoRaMagic is the fixed magic byte stamped at the start of every radio
// frame.
const LoRaMagic uint8 = 0xAF

// BroadcastRocketID is the addressee wildcard accepted by every flight
// node regardless of its own configured rocket id.
const BroadcastRocketID uint8 = 0xFF

// GPSFix carries the optional GPS block copied into a telemetry packet
// and a flight sample. A zero value (Valid == false) is encoded as all
// zero GPS fields, matching the firmware's "copy GPS block if available
// else zero" behaviour.
type GPSFix struct {
	Valid     bool
	LatitudeMicroDeg  int32
	LongitudeMicroDeg int32
	SpeedCmps int16
	HeadingDeg10 uint16
	Satellites   uint8
}

// IMUSample is the optional accel/gyro/mag triplet copied into outgoing
// packets when the controller has IMU data available.
type IMUSample struct {
	Valid bool
	AccelX, AccelY, AccelZ int16
	GyroX, GyroY, GyroZ    int16
	MagX, MagY, MagZ       int16
}

// LoRaTelemetryPacket is the 55-byte wire-exact telemetry frame.
type LoRaTelemetryPacket struct {
	Magic           uint8
	PacketType      uint8
	RocketID        uint8 // 4-bit on the wire, stored 0-15
	Sequence        uint16
	TimeMs          uint32
	AltitudeCm      int32
	VelocityCmps    int16
	PressurePa      uint32
	TemperatureC10  int16
	GPS             GPSFix
	IMU             IMUSample
	State           uint8
	Flags           uint8
	Crc             uint8
}

// LoRaTelemetryPacketSize is the fixed wire size of a telemetry packet.
const LoRaTelemetryPacketSize = 55

// Encode serializes the packet, computing and storing the CRC-8 over
// the 54 preceding bytes.
func (p LoRaTelemetryPacket) Encode() []byte {
	b := make([]byte, LoRaTelemetryPacketSize)
	b[0] = LoRaMagic
	b[1] = p.PacketType
	b[2] = p.RocketID & 0x0F
	binary.LittleEndian.PutUint16(b[3:5], p.Sequence)
	binary.LittleEndian.PutUint32(b[5:9], p.TimeMs)
	binary.LittleEndian.PutUint32(b[9:13], uint32(p.AltitudeCm))
	binary.LittleEndian.PutUint16(b[13:15], uint16(p.VelocityCmps))
	binary.LittleEndian.PutUint32(b[15:19], p.PressurePa)
	binary.LittleEndian.PutUint16(b[19:21], uint16(p.TemperatureC10))
	if p.GPS.Valid {
		binary.LittleEndian.PutUint32(b[21:25], uint32(p.GPS.LatitudeMicroDeg))
		binary.LittleEndian.PutUint32(b[25:29], uint32(p.GPS.LongitudeMicroDeg))
		binary.LittleEndian.PutUint16(b[29:31], uint16(p.GPS.SpeedCmps))
		binary.LittleEndian.PutUint16(b[31:33], p.GPS.HeadingDeg10)
		b[33] = p.GPS.Satellites
	}
	if p.IMU.Valid {
		binary.LittleEndian.PutUint16(b[34:36], uint16(p.IMU.AccelX))
		binary.LittleEndian.PutUint16(b[36:38], uint16(p.IMU.AccelY))
		binary.LittleEndian.PutUint16(b[38:40], uint16(p.IMU.AccelZ))
		binary.LittleEndian.PutUint16(b[40:42], uint16(p.IMU.GyroX))
		binary.LittleEndian.PutUint16(b[42:44], uint16(p.IMU.GyroY))
		binary.LittleEndian.PutUint16(b[44:46], uint16(p.IMU.GyroZ))
		binary.LittleEndian.PutUint16(b[46:48], uint16(p.IMU.MagX))
		binary.LittleEndian.PutUint16(b[48:50], uint16(p.IMU.MagY))
		binary.LittleEndian.PutUint16(b[50:52], uint16(p.IMU.MagZ))
	}
	b[52] = p.State
	b[53] = p.Flags
	b[54] = CRC8(b[:54])
	return b
}

// DecodeLoRaTelemetryPacket parses a 55-byte buffer. The caller should
// validate the magic byte and CRC separately; GPS/IMU Valid flags are
// not recoverable from the wire form alone (the packet carries zeros
// whether or not a fix/IMU was present), so they are left false and
// must be inferred from the Flags byte (FlagGpsFix) by the caller.
func DecodeLoRaTelemetryPacket(b []byte) LoRaTelemetryPacket {
	var p LoRaTelemetryPacket
	p.Magic = b[0]
	p.PacketType = b[1]
	p.RocketID = b[2] & 0x0F
	p.Sequence = binary.LittleEndian.Uint16(b[3:5])
	p.TimeMs = binary.LittleEndian.Uint32(b[5:9])
	p.AltitudeCm = int32(binary.LittleEndian.Uint32(b[9:13]))
	p.VelocityCmps = int16(binary.LittleEndian.Uint16(b[13:15]))
	p.PressurePa = binary.LittleEndian.Uint32(b[15:19])
	p.TemperatureC10 = int16(binary.LittleEndian.Uint16(b[19:21]))
	p.GPS.LatitudeMicroDeg = int32(binary.LittleEndian.Uint32(b[21:25]))
	p.GPS.LongitudeMicroDeg = int32(binary.LittleEndian.Uint32(b[25:29]))
	p.GPS.SpeedCmps = int16(binary.LittleEndian.Uint16(b[29:31]))
	p.GPS.HeadingDeg10 = binary.LittleEndian.Uint16(b[31:33])
	p.GPS.Satellites = b[33]
	p.IMU.AccelX = int16(binary.LittleEndian.Uint16(b[34:36]))
	p.IMU.AccelY = int16(binary.LittleEndian.Uint16(b[36:38]))
	p.IMU.AccelZ = int16(binary.LittleEndian.Uint16(b[38:40]))
	p.IMU.GyroX = int16(binary.LittleEndian.Uint16(b[40:42]))
	p.IMU.GyroY = int16(binary.LittleEndian.Uint16(b[42:44]))
	p.IMU.GyroZ = int16(binary.LittleEndian.Uint16(b[44:46]))
	p.IMU.MagX = int16(binary.LittleEndian.Uint16(b[46:48]))
	p.IMU.MagY = int16(binary.LittleEndian.Uint16(b[48:50]))
	p.IMU.MagZ = int16(binary.LittleEndian.Uint16(b[50:52]))
	p.State = b[52]
	p.Flags = b[53]
	p.Crc = b[54]
	return p
}

// ValidCRC reports whether the packet's stored CRC matches the CRC-8
// computed over its 54 preceding bytes.
func ValidCRC(raw []byte) bool {
	if len(raw) != LoRaTelemetryPacketSize {
		return false
	}
	return CRC8(raw[:54]) == raw[54]
}
