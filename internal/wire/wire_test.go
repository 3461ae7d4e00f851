package wire

import (
	"bytes"
	"reflect"
	"testing"
)

func f64p(v float64) *float64 { return &v }
func u64p(v uint64) *uint64   { return &v }

func TestFrameRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3},
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, payload := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("got %v, want %v", got, payload)
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameLen+1))
	if err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameShort(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00}))
	if err != ErrShortFrame {
		t.Errorf("err = %v, want ErrShortFrame", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x05, 1, 2}))
	if err != ErrTruncated {
		t.Errorf("err = %v, want ErrTruncated", err)
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{Nickname: "pi1", Version: ProtocolVersion}
	got, err := DecodeHandshake(h.Encode())
	if err != nil {
		t.Fatalf("DecodeHandshake: %v", err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestRequestKindRoundTrip(t *testing.T) {
	cases := []RequestKind{
		ReqCpu{}, ReqTemp{}, ReqMem{}, ReqDisk{}, ReqNetIO{}, ReqProcesses{},
		ReqHost{}, ReqSoftware{}, ReqServices{},
		ReqCommand{Cmd: "ls", Args: []string{"-la", "/tmp"}},
		ReqCommand{Cmd: "uptime", Args: nil},
		ReqDirectory{Path: "/etc"},
		ReqDownload{Path: "/etc/hosts"},
	}
	for _, want := range cases {
		got, err := DecodeRequestKind(EncodeRequestKind(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
		if RequestKindName(want) == "" {
			t.Errorf("RequestKindName(%#v) is empty", want)
		}
	}
}

func TestResponseKindRoundTrip(t *testing.T) {
	cases := []ResponseKind{
		RespCpu{GlobalCPU: 12.34, CPUs: []float64{10.0, 14.68}},
		RespTemp{Temp: f64p(45.5)},
		RespTemp{Temp: nil},
		RespMem{Ram: UsageData{Used: 100, Total: 200}, Swap: UsageData{Used: 0, Total: 512}},
		RespDisk{Disks: []DiskInfo{{Name: "mmcblk0p1", MntPoint: "/", Usage: UsageData{Used: 1, Total: 2}}}},
		RespNetIO{Sent: 111, Recv: 222},
		RespProcesses{Processes: []ProcessInfo{
			{PID: 1, Name: "init", CPU: 0.1, Mem: 0.2, Status: ProcessRunning},
			{PID: 42, Name: "sshd", CPU: 1.5, Mem: 2.5, Status: ProcessSleeping},
		}},
		RespHost{
			Hostname: "dietpi", NIC: "eth0", Arch: "aarch64", Uptime: 12345,
			Kernel: "6.1.0", OSVersion: "bookworm", DPVersion: "9.8", NumPkgs: 310,
		},
		RespSoftware{
			Installed:   []SoftwareInfo{{ID: 1, Name: "nginx", Desc: "web server", Deps: []string{"openssl"}, Docs: "https://example.com"}},
			Uninstalled: []SoftwareInfo{{ID: 2, Name: "apache", Desc: "web server"}},
		},
		RespCommand{Output: []byte("hiworld")},
		RespServices{Services: []ServiceInfo{{Name: "ssh", Status: ServiceActive, Start: "enabled"}}},
		RespDirectory{DirList: []DirectoryItemInfo{
			{Path: "etc", Kind: FileDirectory, Size: nil},
			{Path: "hosts", Kind: FileText, Size: u64p(128)},
		}},
		RespDownload{Data: []byte("file contents")},
		RespDownload{Data: nil, Err: "file too large"},
	}
	for _, want := range cases {
		got, err := DecodeResponseKind(EncodeResponseKind(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestRequestResponseNamePairing(t *testing.T) {
	pairs := []struct {
		req  RequestKind
		resp ResponseKind
	}{
		{ReqCpu{}, RespCpu{}},
		{ReqTemp{}, RespTemp{}},
		{ReqMem{}, RespMem{}},
		{ReqDisk{}, RespDisk{}},
		{ReqNetIO{}, RespNetIO{}},
		{ReqProcesses{}, RespProcesses{}},
		{ReqHost{}, RespHost{}},
		{ReqSoftware{}, RespSoftware{}},
		{ReqCommand{}, RespCommand{}},
		{ReqServices{}, RespServices{}},
		{ReqDirectory{}, RespDirectory{}},
		{ReqDownload{}, RespDownload{}},
	}
	for _, p := range pairs {
		if RequestKindName(p.req) != ResponseKindName(p.resp) {
			t.Errorf("%T/%T: name mismatch %q != %q", p.req, p.resp, RequestKindName(p.req), ResponseKindName(p.resp))
		}
	}
}

func TestCacheableSets(t *testing.T) {
	cacheable := []RequestKind{ReqCpu{}, ReqTemp{}, ReqMem{}, ReqDisk{}, ReqNetIO{}, ReqProcesses{}}
	for _, r := range cacheable {
		if !CacheableRequest(r) {
			t.Errorf("CacheableRequest(%#v) = false, want true", r)
		}
	}
	notCacheable := []RequestKind{ReqHost{}, ReqSoftware{}, ReqCommand{}, ReqServices{}, ReqDirectory{}, ReqDownload{}}
	for _, r := range notCacheable {
		if CacheableRequest(r) {
			t.Errorf("CacheableRequest(%#v) = true, want false", r)
		}
	}
}

func TestActionKindRoundTrip(t *testing.T) {
	cases := []ActionKind{
		ActTerminal{Data: []byte("ls\n")},
		ActSignal{PID: 123, Kind: SignalKill},
		ActNewFile{Path: "/tmp/a"},
		ActNewFolder{Path: "/tmp/b"},
		ActRename{From: "/tmp/a", To: "/tmp/c"},
		ActDeleteFile{Path: "/tmp/a"},
		ActDeleteFolder{Path: "/tmp/b"},
		ActUpload{Path: "/tmp/u", Data: []byte{1, 2, 3}},
	}
	for _, want := range cases {
		got, err := DecodeActionKind(EncodeActionKind(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestBackendActionRoundTrip(t *testing.T) {
	cases := []BackendAction{
		BActHandshake{Handshake: Handshake{Nickname: "pi1", Version: 1}},
		BActTerminal{Data: []byte("output")},
	}
	for _, want := range cases {
		got, err := DecodeBackendAction(EncodeBackendAction(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestFrontendMessageRoundTrip(t *testing.T) {
	cases := []FrontendMessage{
		FReq{CorrelationID: 7, Req: ReqCpu{}},
		FReq{CorrelationID: 65535, Req: ReqDirectory{Path: "/"}},
		FAction{Act: ActTerminal{Data: []byte("x")}},
	}
	for _, want := range cases {
		got, err := DecodeFrontendMessage(EncodeFrontendMessage(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestAgentMessageRoundTrip(t *testing.T) {
	cases := []AgentMessage{
		AResp{CorrelationID: 7, Resp: RespCpu{GlobalCPU: 1, CPUs: []float64{1}}},
		AAction{Act: BActTerminal{Data: []byte("y")}},
		AAction{Act: BActHandshake{Handshake: Handshake{Nickname: "n", Version: 1}}},
	}
	for _, want := range cases {
		got, err := DecodeAgentMessage(EncodeAgentMessage(want))
		if err != nil {
			t.Fatalf("decode(%#v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestUnknownVariant(t *testing.T) {
	if _, err := DecodeRequestKind([]byte{0xFF}); err != ErrUnknownVariant {
		t.Errorf("err = %v, want ErrUnknownVariant", err)
	}
}

func TestTrailingBytes(t *testing.T) {
	encoded := EncodeRequestKind(ReqCpu{})
	encoded = append(encoded, 0x00)
	if _, err := DecodeRequestKind(encoded); err != ErrTrailingBytes {
		t.Errorf("err = %v, want ErrTrailingBytes", err)
	}
}
