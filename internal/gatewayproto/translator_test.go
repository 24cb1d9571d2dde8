package gatewayproto

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/markgavin/rocketavionics/internal/hostlink"
	"github.com/markgavin/rocketavionics/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRadioTX struct {
	sent [][]byte
}

func (f *fakeRadioTX) Send(frame []byte, _ time.Duration) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, cp)
	return nil
}

type fakeBarometer struct {
	pressurePa, temperatureC float64
}

func (f fakeBarometer) Read() (float64, float64, error) { return f.pressurePa, f.temperatureC, nil }

func newTestTranslator(t *testing.T) (*Translator, *fakeRadioTX, net.Conn, *bufio.Scanner) {
	t.Helper()
	server, client := net.Pipe()
	radio := &fakeRadioTX{}
	link := hostlink.NewLink(server)
	baro := fakeBarometer{pressurePa: 101000, temperatureC: 18}
	tr := New(radio, link, baro, nil, zerolog.Nop())
	tr.Init()
	tr.ReadGroundBarometer(0)

	scanner := bufio.NewScanner(client)
	return tr, radio, client, scanner
}

func telemetryFrame(t *testing.T, pressurePa uint32, altCm int32, seq uint16) []byte {
	t.Helper()
	pkt := telemetry.LoRaTelemetryPacket{
		PacketType: telemetry.PacketTypeTelemetry,
		RocketID:   3,
		Sequence:   seq,
		TimeMs:     1500,
		AltitudeCm: altCm,
		PressurePa: pressurePa,
		State:      uint8(telemetry.StateBoost),
	}
	return pkt.Encode()
}

func TestOnRadioFrameEmitsTelemetryThenAck(t *testing.T) {
	tr, radio, client, scanner := newTestTranslator(t)
	defer client.Close()

	frame := telemetryFrame(t, 100500, 500, 7)

	done := make(chan struct{})
	go func() {
		tr.OnRadioFrame(frame, -60, 9, 1500)
		close(done)
	}()

	require.True(t, scanner.Scan()) // connected
	require.True(t, scanner.Scan())
	line := scanner.Bytes()
	var rec hostlink.TelemetryRecord
	require.NoError(t, json.Unmarshal(line, &rec))
	require.Equal(t, "tel", rec.Type)
	require.Equal(t, uint16(7), rec.Seq)
	require.InDelta(t, 5.0, rec.AltM, 0.001)
	require.Equal(t, "boost", rec.State)
	require.Equal(t, int8(-60), rec.RSSI)

	<-done
	require.Len(t, radio.sent, 1, "ack must be sent exactly once, after the telemetry line")
	require.Equal(t, telemetry.PacketTypeAck, radio.sent[0][1])
}

func TestOnRadioFrameMarksLinkUpOnce(t *testing.T) {
	tr, _, client, scanner := newTestTranslator(t)
	defer client.Close()

	go tr.OnRadioFrame([]byte{telemetry.LoRaMagic, telemetry.PacketTypeStatus}, 0, 0, 100)
	require.True(t, scanner.Scan())
	var link hostlink.LinkRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &link))
	require.Equal(t, "connected", link.Status)
	require.True(t, tr.LinkUp())
}

func TestOnRadioFrameDropsBadMagic(t *testing.T) {
	tr, radio, client, _ := newTestTranslator(t)
	defer client.Close()
	tr.OnRadioFrame([]byte{0x00, 0x01}, 0, 0, 100)
	_, _, lost := tr.Counters()
	require.Equal(t, uint32(1), lost)
	require.Len(t, radio.sent, 0)
	require.False(t, tr.LinkUp())
}

func TestSuperviseLinkMarksDownOnTimeout(t *testing.T) {
	tr, _, client, scanner := newTestTranslator(t)
	defer client.Close()

	go tr.OnRadioFrame([]byte{telemetry.LoRaMagic, telemetry.PacketTypeStatus}, 0, 0, 100)
	require.True(t, scanner.Scan()) // connected

	go func() {
		tr.SuperviseLink(6000, LinkTimeoutMs)
	}()
	require.True(t, scanner.Scan())
	var link hostlink.LinkRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &link))
	require.Equal(t, "lost", link.Status)
	require.False(t, tr.LinkUp())
}

func TestOnHostLinePingRespondsLocally(t *testing.T) {
	tr, radio, client, scanner := newTestTranslator(t)
	defer client.Close()

	go tr.OnHostLine([]byte(`{"cmd":"ping","id":42}`), 3, "1.0", "abc")
	require.True(t, scanner.Scan())
	var ack hostlink.AckRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &ack))
	require.Equal(t, int64(42), ack.ID)
	require.True(t, ack.OK)
	require.Len(t, radio.sent, 0, "ping must not touch the radio")
}

func TestOnHostLineArmForwardsAndAcks(t *testing.T) {
	tr, radio, client, scanner := newTestTranslator(t)
	defer client.Close()

	go tr.OnHostLine([]byte(`{"cmd":"arm","id":99}`), 3, "1.0", "abc")
	require.True(t, scanner.Scan())
	var ack hostlink.AckRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &ack))
	require.Equal(t, int64(99), ack.ID)
	require.True(t, ack.OK)

	require.Len(t, radio.sent, 1)
	frame := radio.sent[0]
	require.Equal(t, telemetry.PacketTypeCommand, frame[1])
	require.Equal(t, uint8(3), frame[2])
}

func TestOnHostLineUnknownCommand(t *testing.T) {
	tr, _, client, scanner := newTestTranslator(t)
	defer client.Close()

	go tr.OnHostLine([]byte(`{"cmd":"bogus","id":1}`), 3, "1.0", "abc")
	require.True(t, scanner.Scan())
	var ack hostlink.AckRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &ack))
	require.False(t, ack.OK)
}

func TestBuildTelemetryRecordDifferentialAltitude(t *testing.T) {
	tr, _, client, _ := newTestTranslator(t)
	defer client.Close()
	pkt := telemetry.DecodeLoRaTelemetryPacket(telemetryFrame(t, 99000, 1000, 1))
	rec := tr.buildTelemetryRecord(pkt, -50, 8)
	require.Greater(t, rec.DAltM, 0.0, "telemetry pressure below gateway ground pressure must read as positive altitude gain")
}
