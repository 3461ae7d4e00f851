package wire

// ResponseKind is the 1:1 structural counterpart of RequestKind: for any
// correlation pair, ResponseKindName(resp) must equal RequestKindName(req).
type ResponseKind interface {
	responseTag() uint8
}

type RespCpu struct {
	GlobalCPU float64
	CPUs      []float64
}

type RespTemp struct {
	Temp *float64
}

type RespMem struct {
	Ram  UsageData
	Swap UsageData
}

type RespDisk struct {
	Disks []DiskInfo
}

type RespNetIO struct {
	Sent uint64
	Recv uint64
}

type RespProcesses struct {
	Processes []ProcessInfo
}

type RespHost struct {
	Hostname  string
	NIC       string
	Arch      string
	Uptime    uint64
	Kernel    string
	OSVersion string
	DPVersion string
	NumPkgs   uint32
}

type RespSoftware struct {
	Installed   []SoftwareInfo
	Uninstalled []SoftwareInfo
}

type RespCommand struct {
	Output []byte
}

type RespServices struct {
	Services []ServiceInfo
}

type RespDirectory struct {
	DirList []DirectoryItemInfo
}

// RespDownload carries a file's bytes, or a human-readable error instead of
// the payload when the file exceeds the configured download threshold
// (SPEC_FULL.md §4.11). Exactly one of Data/Err is meaningful.
type RespDownload struct {
	Data []byte
	Err  string
}

const (
	tagRespCpu uint8 = iota
	tagRespTemp
	tagRespMem
	tagRespDisk
	tagRespNetIO
	tagRespProcesses
	tagRespHost
	tagRespSoftware
	tagRespCommand
	tagRespServices
	tagRespDirectory
	tagRespDownload
)

func (RespCpu) responseTag() uint8       { return tagRespCpu }
func (RespTemp) responseTag() uint8      { return tagRespTemp }
func (RespMem) responseTag() uint8       { return tagRespMem }
func (RespDisk) responseTag() uint8      { return tagRespDisk }
func (RespNetIO) responseTag() uint8     { return tagRespNetIO }
func (RespProcesses) responseTag() uint8 { return tagRespProcesses }
func (RespHost) responseTag() uint8      { return tagRespHost }
func (RespSoftware) responseTag() uint8  { return tagRespSoftware }
func (RespCommand) responseTag() uint8   { return tagRespCommand }
func (RespServices) responseTag() uint8  { return tagRespServices }
func (RespDirectory) responseTag() uint8 { return tagRespDirectory }
func (RespDownload) responseTag() uint8  { return tagRespDownload }

func ResponseKindName(r ResponseKind) string {
	switch r.(type) {
	case RespCpu:
		return "Cpu"
	case RespTemp:
		return "Temp"
	case RespMem:
		return "Mem"
	case RespDisk:
		return "Disk"
	case RespNetIO:
		return "NetIO"
	case RespProcesses:
		return "Processes"
	case RespHost:
		return "Host"
	case RespSoftware:
		return "Software"
	case RespCommand:
		return "Command"
	case RespServices:
		return "Services"
	case RespDirectory:
		return "Directory"
	case RespDownload:
		return "Download"
	default:
		return ""
	}
}

// CacheableResponse mirrors CacheableRequest for the response side.
func CacheableResponse(r ResponseKind) bool {
	switch r.(type) {
	case RespCpu, RespTemp, RespMem, RespDisk, RespNetIO, RespProcesses:
		return true
	default:
		return false
	}
}

func encodeDiskInfo(e *encoder, d DiskInfo) {
	e.str(d.Name)
	e.str(d.MntPoint)
	d.Usage.encode(e)
}

func decodeDiskInfo(d *decoder) (DiskInfo, error) {
	name, err := d.str()
	if err != nil {
		return DiskInfo{}, err
	}
	mnt, err := d.str()
	if err != nil {
		return DiskInfo{}, err
	}
	usage, err := decodeUsageData(d)
	if err != nil {
		return DiskInfo{}, err
	}
	return DiskInfo{Name: name, MntPoint: mnt, Usage: usage}, nil
}

func encodeProcessInfo(e *encoder, p ProcessInfo) {
	e.i32(p.PID)
	e.str(p.Name)
	e.f64(p.CPU)
	e.f64(p.Mem)
	e.u8(uint8(p.Status))
}

func decodeProcessInfo(d *decoder) (ProcessInfo, error) {
	pid, err := d.i32()
	if err != nil {
		return ProcessInfo{}, err
	}
	name, err := d.str()
	if err != nil {
		return ProcessInfo{}, err
	}
	cpu, err := d.f64()
	if err != nil {
		return ProcessInfo{}, err
	}
	mem, err := d.f64()
	if err != nil {
		return ProcessInfo{}, err
	}
	status, err := d.u8()
	if err != nil {
		return ProcessInfo{}, err
	}
	return ProcessInfo{PID: pid, Name: name, CPU: cpu, Mem: mem, Status: ProcessStatus(status)}, nil
}

func encodeSoftwareInfo(e *encoder, s SoftwareInfo) {
	e.u32(s.ID)
	e.str(s.Name)
	e.str(s.Desc)
	e.varuint(uint64(len(s.Deps)))
	for _, dep := range s.Deps {
		e.str(dep)
	}
	e.str(s.Docs)
}

func decodeSoftwareInfo(d *decoder) (SoftwareInfo, error) {
	id, err := d.u32()
	if err != nil {
		return SoftwareInfo{}, err
	}
	name, err := d.str()
	if err != nil {
		return SoftwareInfo{}, err
	}
	desc, err := d.str()
	if err != nil {
		return SoftwareInfo{}, err
	}
	n, err := d.varuint()
	if err != nil {
		return SoftwareInfo{}, err
	}
	var deps []string
	if n > 0 {
		deps = make([]string, n)
	}
	for i := range deps {
		deps[i], err = d.str()
		if err != nil {
			return SoftwareInfo{}, err
		}
	}
	docs, err := d.str()
	if err != nil {
		return SoftwareInfo{}, err
	}
	return SoftwareInfo{ID: id, Name: name, Desc: desc, Deps: deps, Docs: docs}, nil
}

func encodeServiceInfo(e *encoder, s ServiceInfo) {
	e.str(s.Name)
	e.u8(uint8(s.Status))
	e.str(s.Start)
	e.str(s.ErrLog)
}

func decodeServiceInfo(d *decoder) (ServiceInfo, error) {
	name, err := d.str()
	if err != nil {
		return ServiceInfo{}, err
	}
	status, err := d.u8()
	if err != nil {
		return ServiceInfo{}, err
	}
	start, err := d.str()
	if err != nil {
		return ServiceInfo{}, err
	}
	errLog, err := d.str()
	if err != nil {
		return ServiceInfo{}, err
	}
	return ServiceInfo{Name: name, Status: ServiceStatus(status), Start: start, ErrLog: errLog}, nil
}

func encodeDirectoryItemInfo(e *encoder, it DirectoryItemInfo) {
	e.str(it.Path)
	e.u8(uint8(it.Kind))
	e.optU64(it.Size)
}

func decodeDirectoryItemInfo(d *decoder) (DirectoryItemInfo, error) {
	path, err := d.str()
	if err != nil {
		return DirectoryItemInfo{}, err
	}
	kind, err := d.u8()
	if err != nil {
		return DirectoryItemInfo{}, err
	}
	size, err := d.optU64()
	if err != nil {
		return DirectoryItemInfo{}, err
	}
	return DirectoryItemInfo{Path: path, Kind: FileKind(kind), Size: size}, nil
}

func EncodeResponseKind(r ResponseKind) []byte {
	e := newEncoder()
	e.u8(r.responseTag())
	switch v := r.(type) {
	case RespCpu:
		e.f64(v.GlobalCPU)
		e.varuint(uint64(len(v.CPUs)))
		for _, c := range v.CPUs {
			e.f64(c)
		}
	case RespTemp:
		e.optF64(v.Temp)
	case RespMem:
		v.Ram.encode(e)
		v.Swap.encode(e)
	case RespDisk:
		e.varuint(uint64(len(v.Disks)))
		for _, disk := range v.Disks {
			encodeDiskInfo(e, disk)
		}
	case RespNetIO:
		e.u64(v.Sent)
		e.u64(v.Recv)
	case RespProcesses:
		e.varuint(uint64(len(v.Processes)))
		for _, p := range v.Processes {
			encodeProcessInfo(e, p)
		}
	case RespHost:
		e.str(v.Hostname)
		e.str(v.NIC)
		e.str(v.Arch)
		e.u64(v.Uptime)
		e.str(v.Kernel)
		e.str(v.OSVersion)
		e.str(v.DPVersion)
		e.u32(v.NumPkgs)
	case RespSoftware:
		e.varuint(uint64(len(v.Installed)))
		for _, s := range v.Installed {
			encodeSoftwareInfo(e, s)
		}
		e.varuint(uint64(len(v.Uninstalled)))
		for _, s := range v.Uninstalled {
			encodeSoftwareInfo(e, s)
		}
	case RespCommand:
		e.bytesField(v.Output)
	case RespServices:
		e.varuint(uint64(len(v.Services)))
		for _, s := range v.Services {
			encodeServiceInfo(e, s)
		}
	case RespDirectory:
		e.varuint(uint64(len(v.DirList)))
		for _, it := range v.DirList {
			encodeDirectoryItemInfo(e, it)
		}
	case RespDownload:
		e.bytesField(v.Data)
		e.str(v.Err)
	}
	return e.bytes()
}

func DecodeResponseKind(b []byte) (ResponseKind, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	var r ResponseKind
	switch tag {
	case tagRespCpu:
		global, err := d.f64()
		if err != nil {
			return nil, err
		}
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		cpus := make([]float64, n)
		for i := range cpus {
			cpus[i], err = d.f64()
			if err != nil {
				return nil, err
			}
		}
		r = RespCpu{GlobalCPU: global, CPUs: cpus}
	case tagRespTemp:
		t, err := d.optF64()
		if err != nil {
			return nil, err
		}
		r = RespTemp{Temp: t}
	case tagRespMem:
		ram, err := decodeUsageData(d)
		if err != nil {
			return nil, err
		}
		swap, err := decodeUsageData(d)
		if err != nil {
			return nil, err
		}
		r = RespMem{Ram: ram, Swap: swap}
	case tagRespDisk:
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		disks := make([]DiskInfo, n)
		for i := range disks {
			disks[i], err = decodeDiskInfo(d)
			if err != nil {
				return nil, err
			}
		}
		r = RespDisk{Disks: disks}
	case tagRespNetIO:
		sent, err := d.u64()
		if err != nil {
			return nil, err
		}
		recv, err := d.u64()
		if err != nil {
			return nil, err
		}
		r = RespNetIO{Sent: sent, Recv: recv}
	case tagRespProcesses:
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		procs := make([]ProcessInfo, n)
		for i := range procs {
			procs[i], err = decodeProcessInfo(d)
			if err != nil {
				return nil, err
			}
		}
		r = RespProcesses{Processes: procs}
	case tagRespHost:
		hostname, err := d.str()
		if err != nil {
			return nil, err
		}
		nic, err := d.str()
		if err != nil {
			return nil, err
		}
		arch, err := d.str()
		if err != nil {
			return nil, err
		}
		uptime, err := d.u64()
		if err != nil {
			return nil, err
		}
		kernel, err := d.str()
		if err != nil {
			return nil, err
		}
		osVersion, err := d.str()
		if err != nil {
			return nil, err
		}
		dpVersion, err := d.str()
		if err != nil {
			return nil, err
		}
		numPkgs, err := d.u32()
		if err != nil {
			return nil, err
		}
		r = RespHost{
			Hostname: hostname, NIC: nic, Arch: arch, Uptime: uptime,
			Kernel: kernel, OSVersion: osVersion, DPVersion: dpVersion, NumPkgs: numPkgs,
		}
	case tagRespSoftware:
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		installed := make([]SoftwareInfo, n)
		for i := range installed {
			installed[i], err = decodeSoftwareInfo(d)
			if err != nil {
				return nil, err
			}
		}
		n2, err := d.varuint()
		if err != nil {
			return nil, err
		}
		uninstalled := make([]SoftwareInfo, n2)
		for i := range uninstalled {
			uninstalled[i], err = decodeSoftwareInfo(d)
			if err != nil {
				return nil, err
			}
		}
		r = RespSoftware{Installed: installed, Uninstalled: uninstalled}
	case tagRespCommand:
		out, err := d.bytesField()
		if err != nil {
			return nil, err
		}
		r = RespCommand{Output: out}
	case tagRespServices:
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		services := make([]ServiceInfo, n)
		for i := range services {
			services[i], err = decodeServiceInfo(d)
			if err != nil {
				return nil, err
			}
		}
		r = RespServices{Services: services}
	case tagRespDirectory:
		n, err := d.varuint()
		if err != nil {
			return nil, err
		}
		items := make([]DirectoryItemInfo, n)
		for i := range items {
			items[i], err = decodeDirectoryItemInfo(d)
			if err != nil {
				return nil, err
			}
		}
		r = RespDirectory{DirList: items}
	case tagRespDownload:
		data, err := d.bytesField()
		if err != nil {
			return nil, err
		}
		errStr, err := d.str()
		if err != nil {
			return nil, err
		}
		r = RespDownload{Data: data, Err: errStr}
	default:
		return nil, ErrUnknownVariant
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
