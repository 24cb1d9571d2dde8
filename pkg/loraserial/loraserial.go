// Copyright (C) 2026 the rocketavionics authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package loraserial carries the LoRa packet protocol (and, reused,
// the gateway's host link) over a real serial device: a
// goroutine-per-port reader framing length-prefixed packets off the
// wire into a channel, and a mutex-guarded writer enforcing the
// blocking-with-deadline contract the radio and gatewayproto packages
// require.
package loraserial

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// maxFrameSize bounds a single frame: the largest wire packet (a
// chunked storage-data response) is well under 255 B (§4.4).
const maxFrameSize = 255

// Port wraps a github.com/tarm/serial connection with length-prefixed
// framing (2-byte little-endian length, then payload) so the physical
// link can carry whole radio packets even though actual LoRa hardware
// would deliver frame boundaries for free via the transceiver's own
// packet-received signalling.
type Port struct {
	conn   io.ReadWriteCloser
	log    zerolog.Logger
	mu     sync.Mutex
	rxChan chan []byte
	stop   chan struct{}
}

// Config names the serial device and its baud rate.
type Config struct {
	Name     string
	BaudRate int
}

// Open opens the named serial port and starts its background reader.
func Open(cfg Config, log zerolog.Logger) (*Port, error) {
	conn, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.BaudRate,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("loraserial: open %s: %w", cfg.Name, err)
	}
	return newPort(conn, log), nil
}

// newPort wraps an already-open connection (used directly by Open, and
// by tests against an in-memory io.ReadWriteCloser).
func newPort(conn io.ReadWriteCloser, log zerolog.Logger) *Port {
	p := &Port{
		conn:   conn,
		log:    log.With().Str("component", "loraserial").Logger(),
		rxChan: make(chan []byte, 16),
		stop:   make(chan struct{}),
	}
	go p.readLoop()
	return p
}

// Close stops the reader goroutine and closes the underlying port.
func (p *Port) Close() error {
	close(p.stop)
	return p.conn.Close()
}

func (p *Port) readLoop() {
	header := make([]byte, 2)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		if _, err := io.ReadFull(p.conn, header); err != nil {
			if err == io.EOF {
				return
			}
			continue
		}
		n := binary.LittleEndian.Uint16(header)
		if n == 0 || int(n) > maxFrameSize {
			p.log.Warn().Uint16("len", n).Msg("discarding oversized/empty frame header")
			continue
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(p.conn, payload); err != nil {
			continue
		}
		select {
		case p.rxChan <- payload:
		default:
			p.log.Warn().Msg("rx queue full, dropping frame")
		}
	}
}

// Send writes one length-prefixed frame, blocking until deadline. The
// serial link itself has no signal-quality telemetry, so RSSI/SNR
// bookkeeping lives entirely on the Receive side for frames that embed
// it out of band (none do over this transport; callers needing real
// RSSI/SNR must read the transceiver's own registers, out of scope for
// a generic serial carrier).
func (p *Port) Send(frame []byte, deadline time.Duration) error {
	if len(frame) > maxFrameSize {
		return fmt.Errorf("loraserial: frame of %d bytes exceeds max %d", len(frame), maxFrameSize)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		header := make([]byte, 2)
		binary.LittleEndian.PutUint16(header, uint16(len(frame)))
		if _, err := p.conn.Write(header); err != nil {
			done <- err
			return
		}
		_, err := p.conn.Write(frame)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(deadline):
		return fmt.Errorf("loraserial: send timed out after %s", deadline)
	}
}

// Receive returns the next buffered frame, non-blocking. RSSI/SNR are
// zero over this generic transport (see Send's doc comment).
func (p *Port) Receive() ([]byte, int8, int8, bool) {
	select {
	case f := <-p.rxChan:
		return f, 0, 0, true
	default:
		return nil, 0, 0, false
	}
}
