// Package hostlink defines the gateway's line-delimited JSON protocol
// to the host computer (§6): one JSON object per line, exact key
// shapes, used for telemetry, link status, info responses, command
// acknowledgements, and status reports, plus command parsing in the
// other direction.
package hostlink

import "encoding/json"

// TelemetryRecord is emitted per received telemetry frame.
type TelemetryRecord struct {
	Type    string  `json:"type"`
	Seq     uint16  `json:"seq"`
	TimeMs  uint32  `json:"t"`
	AltM    float64 `json:"alt"`
	DAltM   float64 `json:"dalt"`
	VelMps  float64 `json:"vel"`
	PresPa  uint32  `json:"pres"`
	GPresPa float64 `json:"gpres"`
	GAltM   float64 `json:"galt"`
	TempC   float64 `json:"temp"`
	LatUDeg int32   `json:"lat"`
	LonUDeg int32   `json:"lon"`
	GSpdCmps int16  `json:"gspd"`
	HdgDeg10 uint16 `json:"hdg"`
	Sats    uint8   `json:"sat"`
	GPS     bool    `json:"gps"`
	State   string  `json:"state"`
	Flags   uint8   `json:"flags"`
	RSSI    int8    `json:"rssi"`
	SNR     int8    `json:"snr"`
}

// NewTelemetryRecord fills in the fixed "tel" discriminator.
func NewTelemetryRecord() TelemetryRecord { return TelemetryRecord{Type: "tel"} }

// LinkRecord reports link-status transitions: connected, lost, or a
// one-time usb_connected announcement on fresh USB attach.
type LinkRecord struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

const (
	LinkStatusConnected    = "connected"
	LinkStatusLost         = "lost"
	LinkStatusUSBConnected = "usb_connected"
)

// NewLinkRecord builds a link-status record.
func NewLinkRecord(status string) LinkRecord { return LinkRecord{Type: "link", Status: status} }

// GatewayInfoRecord answers a gw_info command with the gateway's own
// build identity and running counters.
type GatewayInfoRecord struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Build   string `json:"build"`
	RXCount uint32 `json:"rx_count"`
	TXCount uint32 `json:"tx_count"`
}

// FlightComputerInfoRecord answers an info command forwarded to and
// answered by the flight node.
type FlightComputerInfoRecord struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	Build        string `json:"build"`
	Hardware     uint8  `json:"hardware"`
	State        string `json:"state"`
	SampleCount  uint32 `json:"sample_count"`
	RocketID     uint8  `json:"rocket_id"`
	RocketName   string `json:"rocket_name"`
}

// AckRecord acknowledges a host command, carrying its correlation id
// back unchanged.
type AckRecord struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	OK   bool   `json:"ok"`
}

// NewAckRecord builds a command-acknowledgement record.
func NewAckRecord(id int64, ok bool) AckRecord { return AckRecord{Type: "ack", ID: id, OK: ok} }

// StatusRecord answers a status command with link health.
type StatusRecord struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Connected bool   `json:"connected"`
	RXCount   uint32 `json:"rx"`
	TXCount   uint32 `json:"tx"`
	RSSI      int8   `json:"rssi"`
	SNR       int8   `json:"snr"`
}

// Command is the parsed shape of a host-link command line (§6). Params
// not used by a given command are simply left at their zero value.
type Command struct {
	Cmd     string `json:"cmd"`
	ID      int64  `json:"id"`
	Enabled bool   `json:"enabled"`
	Slot    uint8  `json:"slot"`
	Sample  uint32 `json:"sample"`
	Name    string `json:"name"`
}

// Recognised command names (§6).
const (
	CmdPing             = "ping"
	CmdStatus           = "status"
	CmdGatewayInfo      = "gw_info"
	CmdInfo             = "info"
	CmdArm              = "arm"
	CmdDisarm           = "disarm"
	CmdReset            = "reset"
	CmdDownload         = "download"
	CmdOrientationMode  = "orientation_mode"
	CmdFlashList        = "flash_list"
	CmdFlashRead        = "flash_read"
	CmdFlashDelete      = "flash_delete"
)

// ParseCommand decodes one host-link command line.
func ParseCommand(line []byte) (Command, error) {
	var c Command
	err := json.Unmarshal(line, &c)
	return c, err
}

// Marshal encodes any record to a single line (no trailing newline);
// the caller appends '\n' when writing to the wire.
func Marshal(record any) ([]byte, error) {
	return json.Marshal(record)
}
