package wsbridge

import (
	"bufio"
	"encoding/binary"
	"net"
	"testing"
)

func TestAcceptAcceptRFC6455Vector(t *testing.T) {
	// The exact example from RFC 6455 §1.3.
	got := AcceptAccept("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptAccept = %q, want %q", got, want)
	}
}

func newPipeConn() (*Conn, net.Conn) {
	a, b := net.Pipe()
	return &Conn{netConn: a, rw: bufio.NewReadWriter(bufio.NewReader(a), bufio.NewWriter(a))}, b
}

func writeMaskedClientFrame(t *testing.T, w net.Conn, payload []byte) {
	t.Helper()
	n := len(payload)
	var header []byte
	switch {
	case n < 126:
		header = []byte{0x80 | opBinary, 0x80 | byte(n)}
	case n <= 0xffff:
		header = make([]byte, 4)
		header[0] = 0x80 | opBinary
		header[1] = 0x80 | 126
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	}
	mask := []byte{0x12, 0x34, 0x56, 0x78}
	masked := make([]byte, n)
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}
	if _, err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := w.Write(mask); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	if _, err := w.Write(masked); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func TestReadBinaryUnmasksClientFrame(t *testing.T) {
	server, client := newPipeConn()
	defer client.Close()
	defer server.Close()

	want := []byte("hello terminal")
	go writeMaskedClientFrame(t, client, want)

	got, err := server.ReadBinary()
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadBinaryRejectsUnmaskedFrame(t *testing.T) {
	server, client := newPipeConn()
	defer client.Close()
	defer server.Close()

	go func() {
		// A server-style (unmasked) header sent by a client is a protocol
		// violation per RFC 6455 §5.1.
		client.Write([]byte{0x80 | opBinary, byte(3)})
		client.Write([]byte("abc"))
	}()

	if _, err := server.ReadBinary(); err != ErrUnmaskedClientFrame {
		t.Errorf("err = %v, want ErrUnmaskedClientFrame", err)
	}
}

func TestWriteBinaryIsUnmaskedAndReadableRaw(t *testing.T) {
	server, client := newPipeConn()
	defer client.Close()
	defer server.Close()

	payload := []byte("agent output chunk")
	go func() {
		if err := server.WriteBinary(payload); err != nil {
			t.Error(err)
		}
	}()

	header := make([]byte, 2)
	if _, err := readFull(client, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header[0]&0x0f != opBinary {
		t.Errorf("opcode = %x, want binary", header[0]&0x0f)
	}
	if header[1]&0x80 != 0 {
		t.Errorf("server frame must not be masked")
	}
	n := int(header[1] & 0x7f)
	body := make([]byte, n)
	if _, err := readFull(client, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != string(payload) {
		t.Errorf("got %q, want %q", body, payload)
	}
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
