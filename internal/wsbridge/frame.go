package wsbridge

import (
	"encoding/binary"
	"errors"
	"io"
)

// Opcodes used by this bridge: only binary data and close are needed since
// terminal bytes are opaque (spec.md §4.9 — no text framing, no ping/pong
// keepalive beyond what the OS TCP stack already provides).
const (
	opContinuation = 0x0
	opBinary       = 0x2
	opClose        = 0x8
)

var (
	ErrFrameTooLarge    = errors.New("wsbridge: frame exceeds maximum size")
	ErrUnmaskedClientFrame = errors.New("wsbridge: client frame must be masked")
)

// maxMessageSize bounds a single terminal frame; keystrokes and PTY output
// chunks are always far smaller than this, so it exists only to cap a
// malicious/buggy peer's length field.
const maxMessageSize = 1 << 20

// ReadBinary reads one WebSocket data frame and returns its unmasked
// payload. It returns io.EOF if the peer sent a close frame.
func (c *Conn) ReadBinary() ([]byte, error) {
	for {
		opcode, payload, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		switch opcode {
		case opBinary, opContinuation:
			return payload, nil
		case opClose:
			return nil, io.EOF
		default:
			// Ignore ping/pong/text frames; this bridge only carries binary.
			continue
		}
	}
}

func (c *Conn) readFrame() (opcode byte, payload []byte, err error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(c.rw, header); err != nil {
		return 0, nil, err
	}
	opcode = header[0] & 0x0f
	masked := header[1]&0x80 != 0
	length := uint64(header[1] & 0x7f)

	switch length {
	case 126:
		ext := make([]byte, 2)
		if _, err := io.ReadFull(c.rw, ext); err != nil {
			return 0, nil, err
		}
		length = uint64(binary.BigEndian.Uint16(ext))
	case 127:
		ext := make([]byte, 8)
		if _, err := io.ReadFull(c.rw, ext); err != nil {
			return 0, nil, err
		}
		length = binary.BigEndian.Uint64(ext)
	}
	if length > maxMessageSize {
		return 0, nil, ErrFrameTooLarge
	}

	if !masked {
		return 0, nil, ErrUnmaskedClientFrame
	}
	maskKey := make([]byte, 4)
	if _, err := io.ReadFull(c.rw, maskKey); err != nil {
		return 0, nil, err
	}
	payload = make([]byte, length)
	if _, err := io.ReadFull(c.rw, payload); err != nil {
		return 0, nil, err
	}
	for i := range payload {
		payload[i] ^= maskKey[i%4]
	}
	return opcode, payload, nil
}

// WriteBinary sends data as a single unmasked binary frame; RFC 6455
// requires servers never to mask frames they send.
func (c *Conn) WriteBinary(data []byte) error {
	return c.writeFrame(opBinary, data)
}

func (c *Conn) writeFrame(opcode byte, data []byte) error {
	var header []byte
	n := len(data)
	switch {
	case n < 126:
		header = []byte{0x80 | opcode, byte(n)}
	case n <= 0xffff:
		header = make([]byte, 4)
		header[0] = 0x80 | opcode
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = make([]byte, 10)
		header[0] = 0x80 | opcode
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}
	if _, err := c.rw.Write(header); err != nil {
		return err
	}
	if _, err := c.rw.Write(data); err != nil {
		return err
	}
	return c.rw.Flush()
}

// WriteClose sends a close frame.
func (c *Conn) WriteClose() error {
	return c.writeFrame(opClose, nil)
}
