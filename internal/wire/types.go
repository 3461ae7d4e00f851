package wire

// UsageData pairs a used/total byte count, shared by memory, swap and disk
// usage fields.
type UsageData struct {
	Used  uint64
	Total uint64
}

func (u UsageData) encode(e *encoder) {
	e.u64(u.Used)
	e.u64(u.Total)
}

func decodeUsageData(d *decoder) (UsageData, error) {
	used, err := d.u64()
	if err != nil {
		return UsageData{}, err
	}
	total, err := d.u64()
	if err != nil {
		return UsageData{}, err
	}
	return UsageData{Used: used, Total: total}, nil
}

type DiskInfo struct {
	Name     string
	MntPoint string
	Usage    UsageData
}

type ProcessStatus uint8

const (
	ProcessRunning ProcessStatus = iota
	ProcessPaused
	ProcessSleeping
	ProcessOther
)

type ProcessInfo struct {
	PID    int32
	Name   string
	CPU    float64
	Mem    float64
	Status ProcessStatus
}

type SoftwareInfo struct {
	ID   uint32
	Name string
	Desc string
	Deps []string
	Docs string
}

type ServiceStatus uint8

const (
	ServiceActive ServiceStatus = iota
	ServiceInactive
	ServiceFailed
	ServiceUnknown
)

type ServiceInfo struct {
	Name   string
	Status ServiceStatus
	Start  string
	ErrLog string
}

type FileKind uint8

const (
	FileText FileKind = iota
	FileBinary
	FileDirectory
	FileSpecial
)

type DirectoryItemInfo struct {
	Path string
	Kind FileKind
	Size *uint64
}

type SignalKind uint8

const (
	SignalTerm SignalKind = iota
	SignalPause
	SignalResume
	SignalKill
)

// Handshake is the one message an agent sends immediately after dialing.
type Handshake struct {
	Nickname string
	Version  uint32
}

func (h Handshake) Encode() []byte {
	e := newEncoder()
	e.str(h.Nickname)
	e.u32(h.Version)
	return e.bytes()
}

func DecodeHandshake(b []byte) (Handshake, error) {
	d := newDecoder(b)
	nickname, err := d.str()
	if err != nil {
		return Handshake{}, err
	}
	version, err := d.u32()
	if err != nil {
		return Handshake{}, err
	}
	if err := d.finish(); err != nil {
		return Handshake{}, err
	}
	return Handshake{Nickname: nickname, Version: version}, nil
}
