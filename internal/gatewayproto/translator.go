// Package gatewayproto faithfully translates between the binary radio
// protocol and the gateway's line-oriented host-link protocol,
// computing a differential altitude using the gateway's own barometer
// (§4.5).
package gatewayproto

import (
	"time"

	"github.com/google/uuid"
	"github.com/markgavin/rocketavionics/internal/altitude"
	"github.com/markgavin/rocketavionics/internal/hostlink"
	"github.com/markgavin/rocketavionics/internal/logging"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	ackTXDeadline     = 100 * time.Millisecond
	commandTXDeadline = 500 * time.Millisecond

	// LinkTimeoutMs is the reference link-supervision timeout (§4.5).
	LinkTimeoutMs uint32 = 5000

	groundBarometerIntervalMs uint32 = 100 // 10 Hz (§4.5)
)

// RadioTX is the subset of the radio transport the gateway needs to
// transmit ACKs and forwarded commands. Frame reception is driven
// externally (the caller polls the radio and invokes OnRadioFrame),
// since the gateway, unlike the flight node, must interleave it with
// host-link I/O.
type RadioTX interface {
	Send(frame []byte, deadline time.Duration) error
}

// Barometer is the gateway's local pressure/temperature sensor.
type Barometer interface {
	Read() (pressurePa, temperatureC float64, err error)
}

// Translator is the gateway-side protocol handler.
type Translator struct {
	radio   RadioTX
	host    *hostlink.Link
	baro    Barometer
	metrics *logging.GatewayMetrics
	log     zerolog.Logger

	linkUp      bool
	lastRXMs    uint32
	rxCount     uint32
	txCount     uint32
	lostCount   uint32
	lastRSSI    int8
	lastSNR     int8

	groundPressurePa    float64
	groundTemperatureC  float64
	haveGroundBaro      bool
	lastBaroSampleMs    uint32

	sessionID string
}

// New constructs a gateway protocol translator.
func New(radio RadioTX, host *hostlink.Link, baro Barometer, metrics *logging.GatewayMetrics, log zerolog.Logger) *Translator {
	return &Translator{
		radio:     radio,
		host:      host,
		baro:      baro,
		metrics:   metrics,
		log:       log.With().Str("component", "gatewayproto").Logger(),
		sessionID: uuid.NewString(),
	}
}

// Init zeroes all counters and marks the link down.
func (t *Translator) Init() {
	t.linkUp = false
	t.rxCount = 0
	t.txCount = 0
	t.lostCount = 0
}

// OnUSBConnected emits the one-time usb_connected status line (a
// supplemented feature: the original firmware's host link is USB-CDC
// serial and announces fresh attach distinctly from radio link-up).
func (t *Translator) OnUSBConnected() error {
	return t.host.WriteRecord(hostlink.NewLinkRecord(hostlink.LinkStatusUSBConnected))
}

// OnRadioFrame validates and dispatches one received radio frame.
// Invalid frames (bad magic, short, failed CRC) are silently dropped,
// counted as lost (§7 protocol category). Valid telemetry: the decoded
// text line is emitted before the ACK is transmitted (§5 ordering
// guarantee).
func (t *Translator) OnRadioFrame(frame []byte, rssi, snr int8, tMs uint32) {
	if len(frame) < 2 || frame[0] != telemetry.LoRaMagic {
		t.lostCount++
		if t.metrics != nil {
			t.metrics.PacketsLost.Inc()
		}
		return
	}

	t.lastRXMs = tMs
	t.lastRSSI = rssi
	t.lastSNR = snr
	t.rxCount++
	if t.metrics != nil {
		t.metrics.PacketsReceived.Inc()
	}

	if !t.linkUp {
		t.linkUp = true
		_ = t.host.WriteRecord(hostlink.NewLinkRecord(hostlink.LinkStatusConnected))
	}

	if frame[1] != telemetry.PacketTypeTelemetry {
		return
	}
	if len(frame) != telemetry.LoRaTelemetryPacketSize || !telemetry.ValidCRC(frame) {
		t.lostCount++
		if t.metrics != nil {
			t.metrics.PacketsLost.Inc()
		}
		return
	}

	pkt := telemetry.DecodeLoRaTelemetryPacket(frame)
	_ = t.host.WriteRecord(t.buildTelemetryRecord(pkt, rssi, snr))

	ack := []byte{telemetry.LoRaMagic, telemetry.PacketTypeAck, byte(uint16(rssi)), byte(uint16(rssi) >> 8), byte(snr)}
	if err := t.radio.Send(ack, ackTXDeadline); err != nil {
		t.log.Warn().Err(err).Msg("ack tx failed")
		return
	}
	t.txCount++
	if t.metrics != nil {
		t.metrics.PacketsSent.Inc()
	}
}

func (t *Translator) buildTelemetryRecord(pkt telemetry.LoRaTelemetryPacket, rssi, snr int8) hostlink.TelemetryRecord {
	rec := hostlink.NewTelemetryRecord()
	rec.Seq = pkt.Sequence
	rec.TimeMs = pkt.TimeMs
	rec.AltM = float64(pkt.AltitudeCm) / 100.0
	if t.groundPressurePa > 0 {
		rec.DAltM = altitude.Meters(float64(pkt.PressurePa), t.groundPressurePa)
	}
	rec.VelMps = float64(pkt.VelocityCmps) / 100.0
	rec.PresPa = pkt.PressurePa
	rec.GPresPa = t.groundPressurePa
	rec.GAltM = altitude.Meters(t.groundPressurePa, altitude.SeaLevelPressurePa)
	rec.TempC = float64(pkt.TemperatureC10) / 10.0
	rec.LatUDeg = pkt.GPS.LatitudeMicroDeg
	rec.LonUDeg = pkt.GPS.LongitudeMicroDeg
	rec.GSpdCmps = pkt.GPS.SpeedCmps
	rec.HdgDeg10 = pkt.GPS.HeadingDeg10
	rec.Sats = pkt.GPS.Satellites
	rec.GPS = pkt.Flags&telemetry.FlagGpsFix != 0
	rec.State = telemetry.FlightState(pkt.State).Name()
	rec.Flags = pkt.Flags
	rec.RSSI = rssi
	rec.SNR = snr
	return rec
}

// SuperviseLink marks the link down and emits a "lost" status line once
// the receive gap exceeds LinkTimeoutMs.
func (t *Translator) SuperviseLink(tMs uint32, timeoutMs uint32) {
	if !t.linkUp {
		return
	}
	if tMs-t.lastRXMs > timeoutMs {
		t.linkUp = false
		_ = t.host.WriteRecord(hostlink.NewLinkRecord(hostlink.LinkStatusLost))
	}
}

// ReadGroundBarometer samples the local barometer at 10 Hz and latches
// pressure/temperature. Failure is non-fatal: the prior reading is
// retained.
func (t *Translator) ReadGroundBarometer(tMs uint32) {
	if t.haveGroundBaro && tMs-t.lastBaroSampleMs < groundBarometerIntervalMs {
		return
	}
	p, tempC, err := t.baro.Read()
	if err != nil {
		t.log.Warn().Err(err).Msg("ground barometer read failed")
		return
	}
	t.groundPressurePa = p
	t.groundTemperatureC = tempC
	t.haveGroundBaro = true
	t.lastBaroSampleMs = tMs
}

// LinkUp reports the current link state.
func (t *Translator) LinkUp() bool { return t.linkUp }

// Counters returns rx/tx/lost counts for status reporting.
func (t *Translator) Counters() (rx, tx, lost uint32) { return t.rxCount, t.txCount, t.lostCount }

// SignalQuality returns the last observed RSSI/SNR.
func (t *Translator) SignalQuality() (rssi, snr int8) { return t.lastRSSI, t.lastSNR }

// SessionID returns this translator's process-lifetime session
// identifier. Status records do not carry it.
func (t *Translator) SessionID() string { return t.sessionID }
