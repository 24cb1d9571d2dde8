package radio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/flightcontrol"
	"github.com/markgavin/rocketavionics/internal/recorder"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent     [][]byte
	rxQueue  [][]byte
	rxRSSI   []int8
	rxSNR    []int8
	failSend bool
}

func (f *fakeTransport) Send(frame []byte, _ time.Duration) error {
	if f.failSend {
		return errTimeout
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) Receive() ([]byte, int8, int8, bool) {
	if len(f.rxQueue) == 0 {
		return nil, 0, 0, false
	}
	frame := f.rxQueue[0]
	rssi := f.rxRSSI[0]
	snr := f.rxSNR[0]
	f.rxQueue = f.rxQueue[1:]
	f.rxRSSI = f.rxRSSI[1:]
	f.rxSNR = f.rxSNR[1:]
	return frame, rssi, snr, true
}

func (f *fakeTransport) queueCommand(rocketID, cmdID uint8, payload []byte) {
	frame := []byte{telemetry.LoRaMagic, telemetry.PacketTypeCommand, rocketID, cmdID}
	frame = append(frame, payload...)
	f.rxQueue = append(f.rxQueue, frame)
	f.rxRSSI = append(f.rxRSSI, -42)
	f.rxSNR = append(f.rxSNR, 7)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "tx timeout" }

var errTimeout = timeoutErr{}

func newTestHandler(t *testing.T) (*Handler, *fakeTransport, *flightcontrol.Controller, *recorder.Recorder) {
	t.Helper()
	layout := recorder.DefaultLayout()
	dev := flash.NewDevice(layout.FlashSize())
	rec := recorder.New(dev, layout, zerolog.Nop())
	require.NoError(t, rec.Init())
	ctrl := flightcontrol.New(1024, zerolog.Nop())
	tr := &fakeTransport{}
	h := New(tr, ctrl, rec, zerolog.Nop())
	return h, tr, ctrl, rec
}

func TestTickSendsTelemetryOnCadence(t *testing.T) {
	h, tr, _, _ := newTestHandler(t)
	h.Tick(0, 3)
	require.Len(t, tr.sent, 1)
	require.Equal(t, telemetry.PacketTypeTelemetry, tr.sent[0][1])

	h.Tick(100, 3)
	require.Len(t, tr.sent, 1, "idle cadence is 0.5Hz, 100ms must not trigger another send")

	h.Tick(2000, 3)
	require.Len(t, tr.sent, 2)
}

func TestPollRXDiscardsInvalidFrames(t *testing.T) {
	h, tr, ctrl, _ := newTestHandler(t)
	tr.rxQueue = [][]byte{{0x00, 0x01}}
	tr.rxRSSI = []int8{0}
	tr.rxSNR = []int8{0}
	h.PollRX(0, 3, "1.0", "abc")
	require.Equal(t, telemetry.StateIdle, ctrl.State())
}

func TestDispatchArmCommand(t *testing.T) {
	h, tr, ctrl, _ := newTestHandler(t)
	ctrl.UpdateSensors(101325, 20, 0)
	tr.queueCommand(3, CmdArm, nil)
	h.PollRX(1, 3, "1.0", "abc")
	require.Equal(t, telemetry.StateArmed, ctrl.State())
	require.Len(t, tr.sent, 1)
	require.Equal(t, telemetry.PacketTypeAck, tr.sent[0][1])
}

func TestDispatchIgnoresWrongAddressee(t *testing.T) {
	h, tr, ctrl, _ := newTestHandler(t)
	ctrl.UpdateSensors(101325, 20, 0)
	tr.queueCommand(9, CmdArm, nil)
	h.PollRX(1, 3, "1.0", "abc")
	require.Equal(t, telemetry.StateIdle, ctrl.State())
	require.Len(t, tr.sent, 0)
}

func TestDispatchBroadcastAddressee(t *testing.T) {
	h, tr, ctrl, _ := newTestHandler(t)
	ctrl.UpdateSensors(101325, 20, 0)
	tr.queueCommand(telemetry.BroadcastRocketID, CmdArm, nil)
	h.PollRX(1, 3, "1.0", "abc")
	require.Equal(t, telemetry.StateArmed, ctrl.State())
}

func TestDispatchInfo(t *testing.T) {
	h, tr, _, _ := newTestHandler(t)
	tr.queueCommand(3, CmdInfo, nil)
	h.PollRX(1, 3, "2.1.0", "abcdef")
	require.Len(t, tr.sent, 1)
	frame := tr.sent[0]
	require.Equal(t, telemetry.PacketTypeInfo, frame[1])
	verLen := int(frame[2])
	require.Equal(t, "2.1.0", string(frame[3:3+verLen]))
}

func TestDispatchFlashListEmpty(t *testing.T) {
	h, tr, _, _ := newTestHandler(t)
	tr.queueCommand(3, CmdFlashList, nil)
	h.PollRX(1, 3, "1.0", "abc")
	require.Len(t, tr.sent, 1)
	frame := tr.sent[0]
	require.Equal(t, telemetry.PacketTypeStorageList, frame[1])
	require.Equal(t, byte(0), frame[2])
}

func TestDispatchFlashReadHeaderSentinel(t *testing.T) {
	h, tr, _, rec := newTestHandler(t)
	id := rec.StartFlight(101325, 0, 0)
	require.NotZero(t, id)
	rec.LogSample(telemetry.FlightSample{TimeMs: 10})
	require.True(t, rec.EndFlight(12.3, 4.5, 900, 1000))
	slot := rec.FindByFlightID(id)
	require.GreaterOrEqual(t, slot, 0)

	payload := make([]byte, 5)
	payload[0] = byte(slot)
	binary.LittleEndian.PutUint32(payload[1:], SampleSentinelHeader)
	tr.queueCommand(3, CmdFlashRead, payload)
	h.PollRX(1, 3, "1.0", "abc")

	require.Len(t, tr.sent, 1)
	frame := tr.sent[0]
	require.Equal(t, telemetry.PacketTypeStorageData, frame[1])
	require.Equal(t, SampleSentinelHeader, binary.LittleEndian.Uint32(frame[3:7]))
}

func TestDispatchFlashDeleteAll(t *testing.T) {
	h, tr, _, rec := newTestHandler(t)
	id := rec.StartFlight(101325, 0, 0)
	require.NotZero(t, id)
	require.True(t, rec.EndFlight(1, 1, 1, 1))
	require.Equal(t, 1, rec.GetFlightCount())

	tr.queueCommand(3, CmdFlashDelete, []byte{DeleteAllSlot})
	h.PollRX(1, 3, "1.0", "abc")
	require.Equal(t, 0, rec.GetFlightCount())
	require.Len(t, tr.sent, 1)
	require.Equal(t, telemetry.PacketTypeAck, tr.sent[0][1])
}
