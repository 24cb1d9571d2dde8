package radio

import (
	"encoding/binary"
	"time"

	"github.com/markgavin/rocketavionics/internal/buildinfo"
	"github.com/markgavin/rocketavionics/internal/flightcontrol"
	"github.com/markgavin/rocketavionics/internal/recorder"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	telemetryTXDeadline = 200 * time.Millisecond
	replyTXDeadline     = 100 * time.Millisecond

	defaultOrientationTimeoutMs uint32 = 30000
)

// Handler is the flight-side radio protocol handler (§4.4). It borrows
// read-only access to the controller when assembling telemetry and
// exclusively owns its own sequence counter and timing deadlines.
type Handler struct {
	transport Transport
	ctrl      *flightcontrol.Controller
	rec       *recorder.Recorder
	log       zerolog.Logger

	sequence   uint16
	lastSentMs uint32
	haveSent   bool
	stats      Stats
}

// New constructs a flight-side radio handler.
func New(transport Transport, ctrl *flightcontrol.Controller, rec *recorder.Recorder, log zerolog.Logger) *Handler {
	return &Handler{
		transport: transport,
		ctrl:      ctrl,
		rec:       rec,
		log:       log.With().Str("component", "radio").Logger(),
	}
}

// Stats returns the running transceiver counters.
func (h *Handler) Stats() Stats { return h.stats }

// shouldSendTelemetry returns true exactly when the next emission is
// due, with cadence driven by phase (and orientation mode, which
// overrides to 10 Hz regardless of phase).
func (h *Handler) shouldSendTelemetry(tMs uint32) bool {
	if !h.haveSent {
		return true
	}
	interval := sendIntervalMs(h.ctrl.State())
	if h.ctrl.OrientationModeActive() {
		interval = orientationModeIntervalMs
	}
	return tMs-h.lastSentMs >= interval
}

func (h *Handler) markTelemetrySent(tMs uint32) {
	h.sequence++
	h.lastSentMs = tMs
	h.haveSent = true
}

// Tick assembles and transmits a telemetry packet if due, blocking with
// a 200ms ceiling, then marks it sent and resumes RX.
func (h *Handler) Tick(tMs uint32, rocketID uint8) {
	if !h.shouldSendTelemetry(tMs) {
		return
	}
	pkt := buildTelemetryPacket(h.ctrl.Snapshot(), h.sequence, rocketID)
	frame := pkt.Encode()
	if err := h.transport.Send(frame, telemetryTXDeadline); err != nil {
		h.log.Warn().Err(err).Msg("telemetry tx failed, will retry next cadence")
		return
	}
	h.stats.PacketsSent++
	h.markTelemetrySent(tMs)
}

// PollRX reads any available packet. Invalid frames (wrong magic,
// short, unaddressed) are silently discarded (§7 protocol category).
func (h *Handler) PollRX(tMs uint32, rocketID uint8, fwVersion, buildString string) {
	frame, rssi, snr, ok := h.transport.Receive()
	if !ok {
		return
	}
	h.stats.LastRSSI = rssi
	h.stats.LastSNR = snr
	h.stats.PacketsReceived++

	if len(frame) < 4 || frame[0] != telemetry.LoRaMagic {
		return
	}
	if frame[1] != telemetry.PacketTypeCommand {
		return
	}
	target := frame[2]
	if target != rocketID && target != telemetry.BroadcastRocketID {
		return
	}
	cmdID := frame[3]
	payload := frame[4:]
	h.dispatchCommand(tMs, rocketID, cmdID, payload, rssi, snr, fwVersion, buildString)
}

func (h *Handler) dispatchCommand(tMs uint32, rocketID uint8, cmdID uint8, payload []byte, rssi, snr int8, fwVersion, buildString string) {
	switch cmdID {
	case CmdArm:
		h.sendAck(h.ctrl.Arm() == flightcontrol.ErrNone)
	case CmdDisarm:
		h.sendAck(h.ctrl.Disarm() == flightcontrol.ErrNone)
	case CmdReset:
		h.ctrl.Reset()
		h.sendAck(true)
	case CmdDownload:
		h.sendAck(h.ctrl.MarkDownloadComplete())
	case CmdPing, CmdStatus:
		h.sendAckWithQuality(rssi, snr)
	case CmdInfo:
		h.sendInfo(rocketID, fwVersion, buildString)
	case CmdOrientationMode:
		enabled := len(payload) > 0 && payload[0] != 0
		h.ctrl.EnableOrientationMode(enabled, tMs, defaultOrientationTimeoutMs)
		h.sendAck(true)
	case CmdSetRocketName:
		h.rec.SetRocketName(string(payload))
		h.sendAck(true)
	case CmdFlashList:
		h.sendFlashList()
	case CmdFlashRead:
		h.handleFlashRead(payload)
	case CmdFlashDelete:
		h.handleFlashDelete(payload)
	default:
		h.sendAck(false)
	}
}

func (h *Handler) sendRaw(frame []byte) {
	if err := h.transport.Send(frame, replyTXDeadline); err != nil {
		h.log.Warn().Err(err).Msg("command reply tx failed")
		return
	}
	h.stats.PacketsSent++
}

// sendAck composes the 5-byte ACK frame carrying last RSSI/SNR. The
// wire ACK format (§6) has no success/failure byte; a command's effect
// on the flight phase shows in the state byte of later telemetry, not
// in the Status reply, which is the same RSSI/SNR ACK. ok is logged only.
func (h *Handler) sendAck(ok bool) {
	h.log.Debug().Bool("ok", ok).Msg("command handled")
	h.sendAckWithQuality(h.stats.LastRSSI, h.stats.LastSNR)
}

func (h *Handler) sendAckWithQuality(rssi, snr int8) {
	frame := []byte{telemetry.LoRaMagic, telemetry.PacketTypeAck, byte(uint16(rssi)), byte(uint16(rssi) >> 8), byte(snr)}
	h.sendRaw(frame)
}

// sendInfo emits the length-prefixed device-info packet (§6).
func (h *Handler) sendInfo(rocketID uint8, fwVersion, buildString string) {
	id := h.rec.Identity()
	buf := make([]byte, 0, 64)
	buf = append(buf, telemetry.LoRaMagic, telemetry.PacketTypeInfo)
	buf = append(buf, byte(len(fwVersion)))
	buf = append(buf, []byte(fwVersion)...)
	buf = append(buf, byte(len(buildString)))
	buf = append(buf, []byte(buildString)...)
	buf = append(buf, buildinfo.HardwarePresentBitfield())
	buf = append(buf, uint8(h.ctrl.State()))
	sampleCount := make([]byte, 4)
	binary.LittleEndian.PutUint32(sampleCount, h.ctrl.Results().SampleCount)
	buf = append(buf, sampleCount...)
	buf = append(buf, rocketID)
	buf = append(buf, byte(len(id.Name)))
	buf = append(buf, []byte(id.Name)...)
	h.sendRaw(buf)
}

// sendFlashList emits one packet summarising every stored flight slot.
func (h *Handler) sendFlashList() {
	layout := h.rec.LayoutSlots()
	entries := make([]byte, 0, layout*16)
	count := 0
	for slot := 0; slot < layout; slot++ {
		hdr, ok := h.rec.GetHeader(slot)
		if !ok {
			continue
		}
		entry := make([]byte, 17)
		entry[0] = byte(slot)
		binary.LittleEndian.PutUint32(entry[1:5], hdr.FlightID)
		binary.LittleEndian.PutUint32(entry[5:9], uint32(int32(hdr.PeakAltitudeM*100)))
		binary.LittleEndian.PutUint32(entry[9:13], hdr.FlightDurationMs)
		binary.LittleEndian.PutUint32(entry[13:17], hdr.SampleCount)
		entries = append(entries, entry...)
		count++
	}
	buf := make([]byte, 0, 3+len(entries))
	buf = append(buf, telemetry.LoRaMagic, telemetry.PacketTypeStorageList, byte(count))
	buf = append(buf, entries...)
	h.sendRaw(buf)
}

func (h *Handler) handleFlashRead(payload []byte) {
	if len(payload) < 5 {
		h.sendAck(false)
		return
	}
	slot := int(payload[0])
	startSample := binary.LittleEndian.Uint32(payload[1:5])

	if startSample == SampleSentinelHeader {
		hdr, ok := h.rec.GetHeader(slot)
		if !ok {
			h.sendAck(false)
			return
		}
		buf := make([]byte, 0, 11+telemetry.FlightHeaderSize)
		buf = append(buf, telemetry.LoRaMagic, telemetry.PacketTypeStorageData, byte(slot))
		sentinel := make([]byte, 4)
		binary.LittleEndian.PutUint32(sentinel, SampleSentinelHeader)
		buf = append(buf, sentinel...)
		total := make([]byte, 4)
		binary.LittleEndian.PutUint32(total, hdr.SampleCount)
		buf = append(buf, total...)
		buf = append(buf, 1)
		buf = append(buf, hdr.Encode()...)
		h.sendRaw(buf)
		return
	}

	hdr, ok := h.rec.GetHeader(slot)
	if !ok {
		h.sendAck(false)
		return
	}
	end := startSample + samplesPerDataPacket
	if end > hdr.SampleCount {
		end = hdr.SampleCount
	}
	if startSample >= end {
		h.sendAck(false)
		return
	}
	buf := make([]byte, 0, 13+samplesPerDataPacket*telemetry.FlightSampleSize)
	buf = append(buf, telemetry.LoRaMagic, telemetry.PacketTypeStorageData, byte(slot))
	startBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(startBuf, startSample)
	buf = append(buf, startBuf...)
	totalBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(totalBuf, hdr.SampleCount)
	buf = append(buf, totalBuf...)
	buf = append(buf, byte(end-startSample))
	for i := startSample; i < end; i++ {
		s, ok := h.rec.GetSample(slot, i)
		if !ok {
			break
		}
		buf = append(buf, s.Encode()...)
	}
	h.sendRaw(buf)
}

func (h *Handler) handleFlashDelete(payload []byte) {
	if len(payload) < 1 {
		h.sendAck(false)
		return
	}
	slot := payload[0]
	if slot == DeleteAllSlot {
		h.rec.DeleteAllFlights()
		h.sendAck(true)
		return
	}
	h.sendAck(h.rec.DeleteFlight(int(slot)))
}
