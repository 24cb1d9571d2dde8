package gatewayproto

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/markgavin/rocketavionics/internal/hostlink"
	"github.com/markgavin/rocketavionics/internal/radio"
	"github.com/markgavin/rocketavionics/internal/telemetry"
)

// OnHostLine parses one host-link command line and dispatches it.
// ping/status/gw_info are answered locally; the other recognised
// commands are translated into a binary radio command frame and
// transmitted with a 500ms ceiling, then acknowledged on the host link
// with the host-supplied correlation id (or a freshly minted one if the
// host omitted it). Unrecognised commands are answered with ok:false.
func (t *Translator) OnHostLine(line []byte, rocketID uint8, version, build string) {
	cmd, err := hostlink.ParseCommand(line)
	if err != nil {
		t.log.Warn().Err(err).Msg("malformed host command")
		return
	}
	if cmd.ID == 0 {
		cmd.ID = int64(uuid.New().ID())
	}

	switch cmd.Cmd {
	case hostlink.CmdPing:
		_ = t.host.WriteRecord(hostlink.NewAckRecord(cmd.ID, true))
	case hostlink.CmdStatus:
		_ = t.host.WriteRecord(t.buildStatusRecord(cmd.ID))
	case hostlink.CmdGatewayInfo:
		_ = t.host.WriteRecord(hostlink.GatewayInfoRecord{
			Type: "gw_info", Version: version, Build: build,
			RXCount: t.rxCount, TXCount: t.txCount,
		})
	case hostlink.CmdArm:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdArm)
	case hostlink.CmdDisarm:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdDisarm)
	case hostlink.CmdReset:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdReset)
	case hostlink.CmdDownload:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdDownload)
	case hostlink.CmdInfo:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdInfo)
	case hostlink.CmdOrientationMode:
		payload := []byte{0}
		if cmd.Enabled {
			payload[0] = 1
		}
		t.forward(cmd.ID, rocketID, radio.CmdOrientationMode, payload)
	case hostlink.CmdFlashList:
		t.forwardSimple(cmd.ID, rocketID, radio.CmdFlashList)
	case hostlink.CmdFlashRead:
		payload := make([]byte, 5)
		payload[0] = cmd.Slot
		binary.LittleEndian.PutUint32(payload[1:], cmd.Sample)
		t.forward(cmd.ID, rocketID, radio.CmdFlashRead, payload)
	case hostlink.CmdFlashDelete:
		t.forward(cmd.ID, rocketID, radio.CmdFlashDelete, []byte{cmd.Slot})
	default:
		_ = t.host.WriteRecord(hostlink.NewAckRecord(cmd.ID, false))
	}
}

func (t *Translator) forwardSimple(corrID int64, rocketID, cmdID uint8) {
	t.forward(corrID, rocketID, cmdID, nil)
}

// forward builds the binary command packet and transmits it blocking
// with the 500ms command-forwarding ceiling, then emits the host-link
// acknowledgement carrying the caller's correlation id (§5: emitted
// after the radio TX call returns, success or timeout).
func (t *Translator) forward(corrID int64, rocketID, cmdID uint8, payload []byte) {
	frame := []byte{telemetry.LoRaMagic, telemetry.PacketTypeCommand, rocketID, cmdID}
	frame = append(frame, payload...)

	err := t.radio.Send(frame, commandTXDeadline)
	ok := err == nil
	if ok {
		t.txCount++
	} else {
		t.log.Warn().Err(err).Str("cmd", "forward").Msg("command tx failed")
	}
	_ = t.host.WriteRecord(hostlink.NewAckRecord(corrID, ok))
}

func (t *Translator) buildStatusRecord(corrID int64) hostlink.StatusRecord {
	rssi, snr := t.SignalQuality()
	return hostlink.StatusRecord{
		Type:      "status",
		ID:        corrID,
		Connected: t.linkUp,
		RXCount:   t.rxCount,
		TXCount:   t.txCount,
		RSSI:      rssi,
		SNR:       snr,
	}
}
