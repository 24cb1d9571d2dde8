package recorder

import (
	"testing"

	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, *flash.Device) {
	t.Helper()
	layout := DefaultLayout()
	dev := flash.NewDevice(layout.FlashSize())
	r := New(dev, layout, zerolog.Nop())
	require.NoError(t, r.Init())
	return r, dev
}

func sampleAt(ms uint32) telemetry.FlightSample {
	return telemetry.FlightSample{
		TimeMs:     ms,
		AltitudeCm: int32(ms),
		State:      uint8(telemetry.StateBoost),
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	r, _ := newTestRecorder(t)
	require.Equal(t, 0, r.GetFlightCount())
	require.Equal(t, 7, r.GetFreeSlots())

	id := r.StartFlight(101325, 123456789, -987654321)
	require.NotZero(t, id)
	require.True(t, r.IsRecording())

	for i := uint32(0); i < 50; i++ {
		require.True(t, r.LogSample(sampleAt(i*20)))
	}

	ok := r.EndFlight(150.5, 80.25, 4200, 60000)
	require.True(t, ok)
	require.False(t, r.IsRecording())
	require.Equal(t, 1, r.GetFlightCount())
	require.Equal(t, 6, r.GetFreeSlots())

	slot := r.FindByFlightID(id)
	require.GreaterOrEqual(t, slot, 0)

	h, ok := r.GetHeader(slot)
	require.True(t, ok)
	require.Equal(t, id, h.FlightID)
	require.Equal(t, uint32(50), h.SampleCount)
	require.InDelta(t, 150.5, h.PeakAltitudeM, 0.001)

	for i := uint32(0); i < 50; i++ {
		s, ok := r.GetSample(slot, i)
		require.True(t, ok)
		require.Equal(t, i*20, s.TimeMs)
		require.Equal(t, int32(i*20), s.AltitudeCm)
	}

	_, ok = r.GetSample(slot, 50)
	require.False(t, ok, "reading past sample count must fail")
}

func TestRecorderPersistenceAcrossPowerCycle(t *testing.T) {
	layout := DefaultLayout()
	dev := flash.NewDevice(layout.FlashSize())
	r := New(dev, layout, zerolog.Nop())
	require.NoError(t, r.Init())

	id := r.StartFlight(99000, 0, 0)
	for i := uint32(0); i < 10; i++ {
		r.LogSample(sampleAt(i * 10))
	}
	require.True(t, r.EndFlight(42.0, 10.0, 900, 12000))
	r.SetRocketName("booster-1")
	r.SetRocketID(7)

	image := dev.Image()
	reopened := flash.NewDeviceFromImage(image)
	r2 := New(reopened, layout, zerolog.Nop())
	require.NoError(t, r2.Init())

	require.Equal(t, 1, r2.GetFlightCount())
	require.Equal(t, uint8(7), r2.Identity().RocketID)
	require.Equal(t, "booster-1", r2.Identity().Name)

	slot := r2.FindByFlightID(id)
	require.GreaterOrEqual(t, slot, 0)
	h, ok := r2.GetHeader(slot)
	require.True(t, ok)
	require.Equal(t, uint32(10), h.SampleCount)
}

func TestRecorderBoundsAndRefusals(t *testing.T) {
	r, _ := newTestRecorder(t)

	require.False(t, r.LogSample(sampleAt(0)), "logging before start must be refused")
	require.False(t, r.EndFlight(0, 0, 0, 0), "ending without a start must be refused")

	id1 := r.StartFlight(101325, 0, 0)
	require.NotZero(t, id1)
	id2 := r.StartFlight(101325, 0, 0)
	require.Zero(t, id2, "starting while already recording must be refused")
	require.True(t, r.EndFlight(1, 1, 1, 1))

	layout := DefaultLayout()
	for i := 1; i < layout.MaxStoredFlights; i++ {
		id := r.StartFlight(101325, 0, 0)
		require.NotZero(t, id)
		require.True(t, r.EndFlight(1, 1, 1, 1))
	}
	require.Equal(t, 0, r.GetFreeSlots())

	require.Zero(t, r.StartFlight(101325, 0, 0), "starting with storage full must be refused")
}

func TestRecorderLogSampleBufferFull(t *testing.T) {
	r, _ := newTestRecorder(t)
	r.layout.MaxSamplesPerSlot = 3
	r.StartFlight(101325, 0, 0)
	require.True(t, r.LogSample(sampleAt(0)))
	require.True(t, r.LogSample(sampleAt(1)))
	require.True(t, r.LogSample(sampleAt(2)))
	require.False(t, r.LogSample(sampleAt(3)), "buffer must refuse once full, no overwrite")
}

func TestRecorderDeleteFlightAndDeleteAll(t *testing.T) {
	r, _ := newTestRecorder(t)
	id1 := r.StartFlight(101325, 0, 0)
	r.LogSample(sampleAt(0))
	require.True(t, r.EndFlight(1, 1, 1, 1))

	id2 := r.StartFlight(101325, 0, 0)
	r.LogSample(sampleAt(0))
	require.True(t, r.EndFlight(2, 2, 2, 2))

	require.Equal(t, 2, r.GetFlightCount())

	slot1 := r.FindByFlightID(id1)
	require.True(t, r.DeleteFlight(slot1))
	require.Equal(t, 1, r.GetFlightCount())
	_, ok := r.GetHeader(slot1)
	require.False(t, ok)

	deleted := r.DeleteAllFlights()
	require.Equal(t, 1, deleted)
	require.Equal(t, 0, r.GetFlightCount())
	require.Equal(t, -1, r.FindByFlightID(id2))
}
