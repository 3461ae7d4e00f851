package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encoder builds a payload's fields in declaration order.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

func (e *encoder) u8(v uint8)   { e.buf.WriteByte(v) }
func (e *encoder) bool(v bool)  { if v { e.buf.WriteByte(1) } else { e.buf.WriteByte(0) } }

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) f64(v float64) { e.u64(math.Float64bits(v)) }

func (e *encoder) varuint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	e.buf.Write(b[:n])
}

func (e *encoder) bytesField(v []byte) {
	e.varuint(uint64(len(v)))
	e.buf.Write(v)
}

func (e *encoder) str(v string) { e.bytesField([]byte(v)) }

func (e *encoder) optF64(v *float64) {
	e.bool(v != nil)
	if v != nil {
		e.f64(*v)
	}
}

func (e *encoder) optU64(v *uint64) {
	e.bool(v != nil)
	if v != nil {
		e.u64(*v)
	}
}

// decoder consumes a payload's fields in declaration order. Every read
// verifies enough bytes remain, returning ErrTruncated otherwise.
type decoder struct {
	b   []byte
	pos int
}

func newDecoder(b []byte) *decoder { return &decoder{b: b} }

func (d *decoder) remaining() int { return len(d.b) - d.pos }

func (d *decoder) need(n int) error {
	if d.remaining() < n {
		return ErrTruncated
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.b[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) boolean() (bool, error) {
	v, err := d.u8()
	return v != 0, err
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.b[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.b[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) i32() (int32, error) {
	v, err := d.u32()
	return int32(v), err
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.b[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (d *decoder) varuint() (uint64, error) {
	v, n := binary.Uvarint(d.b[d.pos:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	d.pos += n
	return v, nil
}

func (d *decoder) bytesField() ([]byte, error) {
	n, err := d.varuint()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	v := make([]byte, n)
	copy(v, d.b[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return v, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.bytesField()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) optF64() (*float64, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.f64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *decoder) optU64() (*uint64, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.u64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// finish returns ErrTrailingBytes if unconsumed bytes remain.
func (d *decoder) finish() error {
	if d.remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}
