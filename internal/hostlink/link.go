package hostlink

import (
	"bufio"
	"io"
)

// Link frames the line-delimited JSON host protocol over any
// io.ReadWriter — a USB-serial port in production (via
// github.com/tarm/serial), an in-memory pipe in tests.
type Link struct {
	w       io.Writer
	scanner *bufio.Scanner
}

// NewLink wraps rw as a host link.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{w: rw, scanner: bufio.NewScanner(rw)}
}

// ReadLine blocks for the next line, with the trailing newline
// stripped. It returns io.EOF when the underlying connection closes.
func (l *Link) ReadLine() ([]byte, error) {
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return l.scanner.Bytes(), nil
}

// WriteRecord marshals record to JSON and writes it as one
// newline-terminated line.
func (l *Link) WriteRecord(record any) error {
	b, err := Marshal(record)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = l.w.Write(b)
	return err
}
