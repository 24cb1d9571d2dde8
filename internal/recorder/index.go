package recorder

import (
	"encoding/binary"

	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/telemetry"
)

// storageIndex is the authoritative record of which slots hold a valid
// flight. Its on-disk form: magic(4) + version(4) + nextFlightID(4) +
// slotUsed bitmap(N) + checksum(4), written as a single page.
type storageIndex struct {
	nextFlightID uint32
	slotUsed     []bool
}

func newEmptyIndex(numSlots int) storageIndex {
	return storageIndex{nextFlightID: 1, slotUsed: make([]bool, numSlots)}
}

func encodeIndex(idx storageIndex) []byte {
	n := len(idx.slotUsed)
	buf := make([]byte, 12+n+4)
	binary.LittleEndian.PutUint32(buf[0:4], telemetry.FlightIndexMagic)
	binary.LittleEndian.PutUint32(buf[4:8], telemetry.FlightVersion)
	binary.LittleEndian.PutUint32(buf[8:12], idx.nextFlightID)
	for i, used := range idx.slotUsed {
		if used {
			buf[12+i] = 1
		}
	}
	var sum uint32
	for _, b := range buf[:12+n] {
		sum += uint32(b)
	}
	binary.LittleEndian.PutUint32(buf[12+n:12+n+4], sum)
	return buf
}

// decodeIndex parses a raw page buffer into a storageIndex, validating
// the magic, version, and checksum. ok is false on any mismatch, in
// which case the caller must reinitialize a fresh index.
func decodeIndex(buf []byte, numSlots int) (idx storageIndex, ok bool) {
	if len(buf) < 12+numSlots+4 {
		return storageIndex{}, false
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != telemetry.FlightIndexMagic || version != telemetry.FlightVersion {
		return storageIndex{}, false
	}
	nextID := binary.LittleEndian.Uint32(buf[8:12])
	used := make([]bool, numSlots)
	var sum uint32
	for i := 0; i < 12+numSlots; i++ {
		sum += uint32(buf[i])
	}
	for i := 0; i < numSlots; i++ {
		used[i] = buf[12+i] != 0
	}
	storedChecksum := binary.LittleEndian.Uint32(buf[12+numSlots : 12+numSlots+4])
	if storedChecksum != sum {
		return storageIndex{}, false
	}
	return storageIndex{nextFlightID: nextID, slotUsed: used}, true
}

// loadIndex reads and validates the index sector at offset, or reports
// ok=false if it is missing/corrupt.
func loadIndex(dev *flash.Device, offset, numSlots int) (storageIndex, bool) {
	buf, err := dev.Read(offset, flash.PageSize)
	if err != nil {
		return storageIndex{}, false
	}
	return decodeIndex(buf, numSlots)
}

// saveIndex erases the index sector then programs the new index as the
// first page, matching §4.3's "erase index sector, then program the new
// index page" atomicity model.
func saveIndex(dev *flash.Device, offset int, idx storageIndex) error {
	if err := dev.EraseSectors(offset, 1); err != nil {
		return err
	}
	return dev.ProgramPage(offset, encodeIndex(idx))
}
