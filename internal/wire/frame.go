// Package wire implements the length-prefixed binary framing and the
// tag-and-fields payload codec used between the frontend and node agents.
//
// Wire format: a big-endian u16 length followed by exactly that many bytes
// of payload. Payload encoding is not self-describing: it is a variant
// discriminant byte followed by that variant's fields in declaration order,
// multi-byte integers little-endian, strings and byte slices length-prefixed
// with an unsigned LEB128 varint.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ProtocolVersion is bumped whenever the payload schema changes in a way
// that isn't backward compatible.
const ProtocolVersion uint32 = 1

// MaxFrameLen is the largest payload a single frame can carry; it is fixed
// by the u16 length prefix.
const MaxFrameLen = 65535

var (
	ErrShortFrame    = errors.New("wire: short frame")
	ErrTruncated     = errors.New("wire: truncated payload")
	ErrUnknownVariant = errors.New("wire: unknown variant")
	ErrTrailingBytes = errors.New("wire: trailing bytes after decode")
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum length")
)

// ReadFrame reads one length-prefixed frame from r. It returns ErrShortFrame
// if the connection closes mid-header and io.EOF if it closes cleanly
// between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrTruncated
			}
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
