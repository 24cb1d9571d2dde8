package radio

// Command IDs, flight side (§4.4).
const (
	CmdArm             uint8 = 0x01
	CmdDisarm          uint8 = 0x02
	CmdStatus          uint8 = 0x03
	CmdReset           uint8 = 0x04
	CmdDownload        uint8 = 0x05
	CmdPing            uint8 = 0x06
	CmdInfo            uint8 = 0x07
	CmdOrientationMode uint8 = 0x08
	CmdSetRocketName   uint8 = 0x09
	CmdFlashList       uint8 = 0x20
	CmdFlashRead       uint8 = 0x21
	CmdFlashDelete     uint8 = 0x22
)

// SampleSentinelHeader is the start_sample value a flash-read request
// uses to mean "send the flight header, not samples" (§6).
const SampleSentinelHeader uint32 = 0xFFFFFFFF

// DeleteAllSlot is the slot value a flash-delete request uses to mean
// "delete every stored flight" (§4.4).
const DeleteAllSlot uint8 = 0xFF

// samplesPerDataPacket bounds a storage-data response to 3 samples per
// packet: 3*52 + header fits comfortably under the 255 B radio ceiling
// (§4.4).
const samplesPerDataPacket = 3
