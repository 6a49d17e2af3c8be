package mux

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/pion/transport/v3/packetio"
)

// Endpoint implements net.Conn. It is used to read muxed packets.
type Endpoint struct {
	mux    *Mux
	buffer *packetio.Buffer
}

// Close unregisters the endpoint from the Mux.
func (e *Endpoint) Close() (err error) {
	if err = e.close(); err != nil {
		return err
	}

	e.mux.RemoveEndpoint(e)

	return nil
}

func (e *Endpoint) close() error {
	return e.buffer.Close()
}

// Read reads a packet of len(p) bytes from the underlying conn
// that are matched by the associated MuxFunc.
func (e *Endpoint) Read(p []byte) (int, error) {
	return e.buffer.Read(p)
}

// ReadFrom reads a packet of len(p) bytes from the underlying conn
// that are matched by the associated MuxFunc.
func (e *Endpoint) ReadFrom(p []byte) (int, net.Addr, error) {
	i, err := e.Read(p)
	if err != nil {
		return 0, nil, err
	}

	return i, e.mux.nextConn.RemoteAddr(), err
}

// Write writes len(p) bytes to the underlying conn.
func (e *Endpoint) Write(p []byte) (int, error) {
	n, err := e.mux.nextConn.Write(p)
	if errors.Is(err, packetio.ErrFull) {
		// nolint: nilerr
		return n, io.ErrShortBuffer
	}

	return n, err
}

// LocalAddr is a stub.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.mux.nextConn.LocalAddr()
}

// RemoteAddr returns the remote address of the underlying conn.
func (e *Endpoint) RemoteAddr() net.Addr {
	return e.mux.nextConn.RemoteAddr()
}

// SetDeadline is a stub.
func (e *Endpoint) SetDeadline(time.Time) error {
	return nil
}

// SetReadDeadline sets the deadline for future reads.
func (e *Endpoint) SetReadDeadline(t time.Time) error {
	return e.buffer.SetReadDeadline(t)
}

// SetWriteDeadline is a stub.
func (e *Endpoint) SetWriteDeadline(time.Time) error {
	return nil
}
