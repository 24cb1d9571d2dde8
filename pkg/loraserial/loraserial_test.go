package loraserial

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// pipeConn adapts a net.Conn half to io.ReadWriteCloser, matching what
// newPort expects from a real serial.Port.
type pipeConn struct {
	net.Conn
}

func newPipePorts(t *testing.T) (*Port, *Port) {
	t.Helper()
	a, b := net.Pipe()
	pa := newPort(pipeConn{a}, zerolog.Nop())
	pb := newPort(pipeConn{b}, zerolog.Nop())
	t.Cleanup(func() {
		pa.Close()
		pb.Close()
	})
	return pa, pb
}

func TestSendReceiveRoundTrip(t *testing.T) {
	pa, pb := newPipePorts(t)

	payload := []byte{0xAF, 0x01, 0x02, 0x03}
	errCh := make(chan error, 1)
	go func() {
		errCh <- pa.Send(payload, time.Second)
	}()

	var got []byte
	require.Eventually(t, func() bool {
		frame, _, _, ok := pb.Receive()
		if ok {
			got = frame
		}
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, <-errCh)
	require.Equal(t, payload, got)
}

func TestReceiveReturnsFalseWhenEmpty(t *testing.T) {
	_, pb := newPipePorts(t)
	_, _, _, ok := pb.Receive()
	require.False(t, ok)
}

func TestSendRejectsOversizedFrame(t *testing.T) {
	pa, _ := newPipePorts(t)
	big := make([]byte, maxFrameSize+1)
	err := pa.Send(big, time.Second)
	require.Error(t, err)
}

var _ io.ReadWriteCloser = pipeConn{}
