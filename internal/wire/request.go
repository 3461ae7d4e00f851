package wire

// RequestKind is the set of probes a frontend can ask an agent to run.
type RequestKind interface {
	requestTag() uint8
}

type ReqCpu struct{}
type ReqTemp struct{}
type ReqMem struct{}
type ReqDisk struct{}
type ReqNetIO struct{}
type ReqProcesses struct{}
type ReqHost struct{}
type ReqSoftware struct{}

type ReqCommand struct {
	Cmd  string
	Args []string
}

type ReqServices struct{}

type ReqDirectory struct {
	Path string
}

type ReqDownload struct {
	Path string
}

const (
	tagReqCpu uint8 = iota
	tagReqTemp
	tagReqMem
	tagReqDisk
	tagReqNetIO
	tagReqProcesses
	tagReqHost
	tagReqSoftware
	tagReqCommand
	tagReqServices
	tagReqDirectory
	tagReqDownload
)

func (ReqCpu) requestTag() uint8       { return tagReqCpu }
func (ReqTemp) requestTag() uint8      { return tagReqTemp }
func (ReqMem) requestTag() uint8       { return tagReqMem }
func (ReqDisk) requestTag() uint8      { return tagReqDisk }
func (ReqNetIO) requestTag() uint8     { return tagReqNetIO }
func (ReqProcesses) requestTag() uint8 { return tagReqProcesses }
func (ReqHost) requestTag() uint8      { return tagReqHost }
func (ReqSoftware) requestTag() uint8  { return tagReqSoftware }
func (ReqCommand) requestTag() uint8   { return tagReqCommand }
func (ReqServices) requestTag() uint8  { return tagReqServices }
func (ReqDirectory) requestTag() uint8 { return tagReqDirectory }
func (ReqDownload) requestTag() uint8  { return tagReqDownload }

// RequestKindName returns the variant name shared between RequestKind and
// ResponseKind; used to enforce the "ResponseKind.name == RequestKind.name"
// invariant at the call site.
func RequestKindName(r RequestKind) string {
	switch r.(type) {
	case ReqCpu:
		return "Cpu"
	case ReqTemp:
		return "Temp"
	case ReqMem:
		return "Mem"
	case ReqDisk:
		return "Disk"
	case ReqNetIO:
		return "NetIO"
	case ReqProcesses:
		return "Processes"
	case ReqHost:
		return "Host"
	case ReqSoftware:
		return "Software"
	case ReqCommand:
		return "Command"
	case ReqServices:
		return "Services"
	case ReqDirectory:
		return "Directory"
	case ReqDownload:
		return "Download"
	default:
		return ""
	}
}

// CacheableRequest reports whether r's discriminant belongs to the
// telemetry-cache-eligible set (spec.md §3: Cpu, Temp, Mem, Disk, NetIO,
// Processes).
func CacheableRequest(r RequestKind) bool {
	switch r.(type) {
	case ReqCpu, ReqTemp, ReqMem, ReqDisk, ReqNetIO, ReqProcesses:
		return true
	default:
		return false
	}
}

func EncodeRequestKind(r RequestKind) []byte {
	e := newEncoder()
	e.u8(r.requestTag())
	switch v := r.(type) {
	case ReqCommand:
		e.str(v.Cmd)
		e.varuint(uint64(len(v.Args)))
		for _, a := range v.Args {
			e.str(a)
		}
	case ReqDirectory:
		e.str(v.Path)
	case ReqDownload:
		e.str(v.Path)
	}
	return e.bytes()
}

func DecodeRequestKind(b []byte) (RequestKind, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	var r RequestKind
	switch tag {
	case tagReqCpu:
		r = ReqCpu{}
	case tagReqTemp:
		r = ReqTemp{}
	case tagReqMem:
		r = ReqMem{}
	case tagReqDisk:
		r = ReqDisk{}
	case tagReqNetIO:
		r = ReqNetIO{}
	case tagReqProcesses:
		r = ReqProcesses{}
	case tagReqHost:
		r = ReqHost{}
	case tagReqSoftware:
		r = ReqSoftware{}
	case tagReqCommand:
		cmd, err := d.str()
		if err != nil {
			return nil, err
		}
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		var args []string
		if n > 0 {
			args = make([]string, n)
		}
		for i := range args {
			args[i], err = d.str()
			if err != nil {
				return nil, err
			}
		}
		r = ReqCommand{Cmd: cmd, Args: args}
	case tagReqServices:
		r = ReqServices{}
	case tagReqDirectory:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		r = ReqDirectory{Path: path}
	case tagReqDownload:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		r = ReqDownload{Path: path}
	default:
		return nil, ErrUnknownVariant
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
