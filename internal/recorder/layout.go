package recorder

import (
	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/telemetry"
)

// Layout describes where the index, settings, and flight slots sit
// within a flash device. DefaultLayout places MaxStoredFlights x 64KB
// slots from offset 0, the settings sector right after them, and the
// index sector last, in the top 4KB of flash. There is no calibration
// sector.
type Layout struct {
	IndexOffset       int
	SettingsOffset    int
	SlotsOffset       int
	SlotSize          int
	MaxStoredFlights  int
	MaxSamplesPerSlot int
}

// DefaultLayout returns the reference configuration: 7 slots of 64KB
// each, index and settings sectors immediately above the slot region.
func DefaultLayout() Layout {
	const (
		slotSize   = 64 * 1024
		numSlots   = 7
		slotsTotal = slotSize * numSlots
	)
	slotsOffset := 0
	settingsOffset := slotsOffset + slotsTotal
	indexOffset := settingsOffset + flash.SectorSize
	return Layout{
		IndexOffset:       indexOffset,
		SettingsOffset:    settingsOffset,
		SlotsOffset:       slotsOffset,
		SlotSize:          slotSize,
		MaxStoredFlights:  numSlots,
		MaxSamplesPerSlot: (slotSize - flash.PageSize) / telemetry.FlightSampleSize,
	}
}

// FlashSize returns the minimum device size this layout requires.
func (l Layout) FlashSize() int {
	return l.IndexOffset + flash.SectorSize
}

func (l Layout) slotOffset(slot int) int {
	return l.SlotsOffset + slot*l.SlotSize
}
