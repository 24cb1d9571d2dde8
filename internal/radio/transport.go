// Package radio drives the flight node's LoRa radio as a half-duplex
// transceiver that is RX-by-default, TX-on-demand: cadence-driven
// telemetry, event-driven command response, and chunked flash-dump
// replies, per §4.4.
package radio

import "time"

// Transport abstracts the LoRa transceiver (an RFM95/SX1276 in the
// reference hardware). The radio is a single-ownership resource
// accessed only from the main loop (§5); Transport implementations are
// not expected to be safe for concurrent use.
type Transport interface {
	// Send transmits raw bytes, blocking up to deadline. It returns to
	// continuous-RX mode before returning, success or not.
	Send(frame []byte, deadline time.Duration) error
	// Receive returns one buffered frame if available, with its
	// measured signal quality. ok is false if nothing was pending.
	Receive() (frame []byte, rssi int8, snr int8, ok bool)
}

// Stats mirrors the reference radio driver's running counters
// (pPacketsSent, pPacketsReceived, pLastRssi, pLastSnr).
type Stats struct {
	PacketsSent     uint32
	PacketsReceived uint32
	LastRSSI        int8
	LastSNR         int8
}
