package recorder

import (
	"encoding/binary"

	"github.com/markgavin/rocketavionics/internal/flash"
)

const settingsMagic uint32 = 0x54544553 // "SETT" LE

const maxRocketNameLen = 32

// RocketIdentity is the persisted rocket id and free-form name,
// supplementing spec.md's "separate settings sector with magic SETT".
type RocketIdentity struct {
	RocketID uint8
	Name     string
}

func defaultIdentity() RocketIdentity {
	return RocketIdentity{RocketID: 0, Name: ""}
}

func encodeSettings(id RocketIdentity) []byte {
	buf := make([]byte, flash.PageSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(buf[0:4], settingsMagic)
	buf[4] = id.RocketID
	name := id.Name
	if len(name) > maxRocketNameLen-1 {
		name = name[:maxRocketNameLen-1]
	}
	buf[5] = byte(len(name))
	copy(buf[6:6+len(name)], name)
	var sum uint32
	for _, b := range buf[:6+maxRocketNameLen] {
		sum += uint32(b)
	}
	binary.LittleEndian.PutUint32(buf[6+maxRocketNameLen:6+maxRocketNameLen+4], sum)
	return buf
}

func decodeSettings(buf []byte) (RocketIdentity, bool) {
	if len(buf) < 6+maxRocketNameLen+4 {
		return RocketIdentity{}, false
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != settingsMagic {
		return RocketIdentity{}, false
	}
	var sum uint32
	for _, b := range buf[:6+maxRocketNameLen] {
		sum += uint32(b)
	}
	stored := binary.LittleEndian.Uint32(buf[6+maxRocketNameLen : 6+maxRocketNameLen+4])
	if stored != sum {
		return RocketIdentity{}, false
	}
	nameLen := int(buf[5])
	if nameLen > maxRocketNameLen-1 {
		nameLen = maxRocketNameLen - 1
	}
	return RocketIdentity{
		RocketID: buf[4],
		Name:     string(buf[6 : 6+nameLen]),
	}, true
}
