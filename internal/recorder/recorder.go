// Package recorder implements the slot-based, append-only flight
// recorder: an index sector that is the sole authority on slot
// validity, and fixed-size flight slots each holding one header page
// followed by packed sample pages.
package recorder

import (
	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
)

// Recorder persists one flight's complete packed trace to flash, plus a
// header, and retrieves it by slot index after reboot. It owns the
// flash device's flight-slot address range exclusively; no other
// subsystem may touch it (§5).
type Recorder struct {
	dev    *flash.Device
	layout Layout
	log    zerolog.Logger

	index    storageIndex
	identity RocketIdentity

	recording   bool
	currentSlot int
	header      telemetry.FlightHeader
	buffer      []telemetry.FlightSample
}

// New constructs a Recorder bound to dev with the given layout. Call
// Init before using it.
func New(dev *flash.Device, layout Layout, log zerolog.Logger) *Recorder {
	return &Recorder{
		dev:         dev,
		layout:      layout,
		log:         log.With().Str("component", "recorder").Logger(),
		currentSlot: -1,
	}
}

// Init reads the index sector, verifying magic and version; on failure
// it initializes a fresh index with next-id=1 and an all-empty slot
// bitmap, then writes it. It also loads (or initializes) the rocket
// identity settings sector.
func (r *Recorder) Init() error {
	idx, ok := loadIndex(r.dev, r.layout.IndexOffset, r.layout.MaxStoredFlights)
	if !ok {
		r.log.Info().Msg("no valid index found, initializing fresh index")
		idx = newEmptyIndex(r.layout.MaxStoredFlights)
		if err := saveIndex(r.dev, r.layout.IndexOffset, idx); err != nil {
			return err
		}
	}
	r.index = idx

	settingsBuf, err := r.dev.Read(r.layout.SettingsOffset, flash.PageSize)
	if err != nil {
		return err
	}
	if id, ok := decodeSettings(settingsBuf); ok {
		r.identity = id
	} else {
		r.identity = defaultIdentity()
		r.saveIdentity()
	}
	r.log.Info().
		Int("flight_count", r.GetFlightCount()).
		Int("free_slots", r.GetFreeSlots()).
		Uint32("next_id", r.index.nextFlightID).
		Msg("flight storage initialized")
	return nil
}

func (r *Recorder) saveIdentity() {
	_ = r.dev.EraseSectors(r.layout.SettingsOffset, 1)
	_ = r.dev.ProgramPage(r.layout.SettingsOffset, encodeSettings(r.identity))
}

// Identity returns the current rocket identity.
func (r *Recorder) Identity() RocketIdentity { return r.identity }

// SetRocketName persists a new rocket name and reloads it in RAM.
func (r *Recorder) SetRocketName(name string) {
	r.identity.Name = name
	r.saveIdentity()
}

// SetRocketID persists a new rocket id.
func (r *Recorder) SetRocketID(id uint8) {
	r.identity.RocketID = id
	r.saveIdentity()
}

// GetFlightCount returns the number of used slots.
func (r *Recorder) GetFlightCount() int {
	n := 0
	for _, used := range r.index.slotUsed {
		if used {
			n++
		}
	}
	return n
}

// GetFreeSlots returns the number of available slots.
func (r *Recorder) GetFreeSlots() int {
	return r.layout.MaxStoredFlights - r.GetFlightCount()
}

// LayoutSlots returns the total number of flight slots this recorder's
// layout provides.
func (r *Recorder) LayoutSlots() int { return r.layout.MaxStoredFlights }

// IsRecording reports whether a flight is currently being logged.
func (r *Recorder) IsRecording() bool { return r.recording }

func (r *Recorder) findFreeSlot() int {
	for i, used := range r.index.slotUsed {
		if !used {
			return i
		}
	}
	return -1
}

// StartFlight begins recording a new flight. It refuses if a recording
// is already active or storage is full, returning flight id 0.
func (r *Recorder) StartFlight(groundPressurePa float32, launchLat, launchLon int32) uint32 {
	if r.recording {
		r.log.Warn().Msg("start flight refused: already recording")
		return 0
	}
	slot := r.findFreeSlot()
	if slot < 0 {
		r.log.Warn().Msg("start flight refused: storage full")
		return 0
	}
	r.currentSlot = slot
	r.header = telemetry.FlightHeader{
		Magic:            telemetry.FlightMagic,
		Version:          telemetry.FlightVersion,
		FlightID:         r.index.nextFlightID,
		GroundPressurePa: groundPressurePa,
		LaunchLatitude:   launchLat,
		LaunchLongitude:  launchLon,
	}
	r.buffer = r.buffer[:0]
	r.recording = true
	r.log.Info().Uint32("flight_id", r.header.FlightID).Int("slot", slot).Msg("started flight")
	return r.header.FlightID
}

// LogSample appends a sample to the in-RAM buffer. It refuses if not
// recording, or if the buffer is full (no wrap, no overwrite).
func (r *Recorder) LogSample(s telemetry.FlightSample) bool {
	if !r.recording {
		return false
	}
	if len(r.buffer) >= r.layout.MaxSamplesPerSlot {
		return false
	}
	r.buffer = append(r.buffer, s)
	return true
}

// EndFlight finalizes the flight: fills in remaining header fields,
// computes the checksum, erases exactly the sectors the header+samples
// need in the target slot, writes the header page then the sample
// pages, feeding the watchdog between erases and programs, and on
// success commits the index.
func (r *Recorder) EndFlight(peakAltitudeM, peakVelocityMps float32, apogeeMs, flightMs uint32) bool {
	if !r.recording {
		return false
	}
	r.header.SampleCount = uint32(len(r.buffer))
	r.header.PeakAltitudeM = peakAltitudeM
	r.header.PeakVelocityMps = peakVelocityMps
	r.header.ApogeeTimeMs = apogeeMs
	r.header.FlightDurationMs = flightMs
	r.header.Checksum = telemetry.ChecksumHeaderBytes(r.header)

	ok := r.writeFlightToFlash(r.currentSlot)
	if ok {
		r.index.slotUsed[r.currentSlot] = true
		r.index.nextFlightID++
		if err := saveIndex(r.dev, r.layout.IndexOffset, r.index); err != nil {
			r.log.Error().Err(err).Msg("failed to commit index after flight write")
			ok = false
		}
	}
	r.recording = false
	r.currentSlot = -1
	r.log.Info().Bool("ok", ok).Uint32("samples", r.header.SampleCount).Msg("ended flight")
	return ok
}

func (r *Recorder) writeFlightToFlash(slot int) bool {
	slotOffset := r.layout.slotOffset(slot)
	dataSize := telemetry.FlightHeaderSize + len(r.buffer)*telemetry.FlightSampleSize
	sectorsNeeded := (dataSize + flash.SectorSize - 1) / flash.SectorSize
	maxSectors := r.layout.SlotSize / flash.SectorSize
	if sectorsNeeded > maxSectors {
		sectorsNeeded = maxSectors
	}

	if err := r.dev.EraseSectors(slotOffset, sectorsNeeded); err != nil {
		r.log.Error().Err(err).Msg("erase failed")
		return false
	}

	headerPage := make([]byte, flash.PageSize)
	for i := range headerPage {
		headerPage[i] = 0xFF
	}
	copy(headerPage, r.header.Encode())
	if err := r.dev.ProgramPage(slotOffset, headerPage); err != nil {
		r.log.Error().Err(err).Msg("header program failed")
		return false
	}

	samples := make([]byte, len(r.buffer)*telemetry.FlightSampleSize)
	pos := 0
	for _, s := range r.buffer {
		copy(samples[pos:], s.Encode())
		pos += telemetry.FlightSampleSize
	}

	offset := slotOffset + flash.PageSize
	for i := 0; i < len(samples); i += flash.PageSize {
		end := i + flash.PageSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := r.dev.ProgramPage(offset, samples[i:end]); err != nil {
			r.log.Error().Err(err).Msg("sample program failed")
			return false
		}
		offset += flash.PageSize
	}
	return true
}

// GetHeader reads the header of slot, succeeding only if the magic
// matches and the slot is marked used.
func (r *Recorder) GetHeader(slot int) (telemetry.FlightHeader, bool) {
	if slot < 0 || slot >= r.layout.MaxStoredFlights || !r.index.slotUsed[slot] {
		return telemetry.FlightHeader{}, false
	}
	buf, err := r.dev.Read(r.layout.slotOffset(slot), telemetry.FlightHeaderSize)
	if err != nil {
		return telemetry.FlightHeader{}, false
	}
	h := telemetry.DecodeFlightHeader(buf)
	if h.Magic != telemetry.FlightMagic {
		return telemetry.FlightHeader{}, false
	}
	return h, true
}

// GetSample reads one packed sample from slot, bounds-checked against
// the header's sample count.
func (r *Recorder) GetSample(slot int, sampleIndex uint32) (telemetry.FlightSample, bool) {
	h, ok := r.GetHeader(slot)
	if !ok || sampleIndex >= h.SampleCount {
		return telemetry.FlightSample{}, false
	}
	offset := r.layout.slotOffset(slot) + flash.PageSize + int(sampleIndex)*telemetry.FlightSampleSize
	buf, err := r.dev.Read(offset, telemetry.FlightSampleSize)
	if err != nil {
		return telemetry.FlightSample{}, false
	}
	return telemetry.DecodeFlightSample(buf), true
}

// DeleteFlight erases slot's entire region and clears its bitmap bit.
func (r *Recorder) DeleteFlight(slot int) bool {
	if slot < 0 || slot >= r.layout.MaxStoredFlights || !r.index.slotUsed[slot] {
		return false
	}
	if err := r.dev.EraseSectors(r.layout.slotOffset(slot), r.layout.SlotSize/flash.SectorSize); err != nil {
		r.log.Error().Err(err).Msg("delete flight erase failed")
		return false
	}
	r.index.slotUsed[slot] = false
	return saveIndex(r.dev, r.layout.IndexOffset, r.index) == nil
}

// DeleteAllFlights deletes every used slot.
func (r *Recorder) DeleteAllFlights() int {
	deleted := 0
	for i, used := range r.index.slotUsed {
		if !used {
			continue
		}
		if err := r.dev.EraseSectors(r.layout.slotOffset(i), r.layout.SlotSize/flash.SectorSize); err != nil {
			r.log.Error().Err(err).Int("slot", i).Msg("delete-all erase failed")
			continue
		}
		r.index.slotUsed[i] = false
		deleted++
	}
	_ = saveIndex(r.dev, r.layout.IndexOffset, r.index)
	return deleted
}

// FindByFlightID linearly scans used slots for a matching flight id.
func (r *Recorder) FindByFlightID(id uint32) int {
	for i, used := range r.index.slotUsed {
		if !used {
			continue
		}
		if h, ok := r.GetHeader(i); ok && h.FlightID == id {
			return i
		}
	}
	return -1
}
