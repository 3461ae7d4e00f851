// Package probe implements the agent-side system probes that answer
// RequestKind queries (spec.md §4.2, SPEC_FULL.md §4.11) and the action
// handlers that carry out ActionKind commands (SPEC_FULL.md §4.12).
// Every probe reads host state directly; none of it is cached here — that
// is the frontend's job (internal/cache).
package probe

import (
	"bufio"
	"context"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dalkeith-r/fleetdash/internal/config"
	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// DefaultDownloadThreshold is the application-level cap on a Download
// response's payload, leaving headroom under the 65,535-byte frame ceiling
// without widening the wire length prefix (SPEC_FULL.md §4.11).
const DefaultDownloadThreshold = 32 * 1024

// Set groups the host-level configuration a probe needs — the list of
// mount points to report disk usage for, and the download size cap.
type Set struct {
	Disks             []string
	DownloadThreshold int
}

// FromConfig builds a Set from the agent's loaded configuration.
func FromConfig(cfg *config.AgentConfig) Set {
	return Set{Disks: cfg.Disks, DownloadThreshold: DefaultDownloadThreshold}
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// Handle dispatches a single RequestKind to its probe and returns the
// matching ResponseKind. It never blocks on the socket — callers run it on
// a worker goroutine (internal/agentsession).
func (s Set) Handle(ctx context.Context, req wire.RequestKind) wire.ResponseKind {
	switch r := req.(type) {
	case wire.ReqCpu:
		return cpuProbe()
	case wire.ReqTemp:
		return tempProbe()
	case wire.ReqMem:
		return memProbe()
	case wire.ReqDisk:
		return diskProbe(s.Disks)
	case wire.ReqNetIO:
		return netIOProbe()
	case wire.ReqProcesses:
		return processesProbe()
	case wire.ReqHost:
		return hostProbe()
	case wire.ReqSoftware:
		return softwareProbe(ctx)
	case wire.ReqCommand:
		return commandProbe(ctx, r)
	case wire.ReqServices:
		return servicesProbe(ctx)
	case wire.ReqDirectory:
		return directoryProbe(r.Path)
	case wire.ReqDownload:
		return downloadProbe(r.Path, s.DownloadThreshold)
	default:
		logging.Warn("probe: unhandled request kind", "req", wire.RequestKindName(req))
		return nil
	}
}

func hostProbe() wire.ResponseKind {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	uptime := uint64(0)
	if data, err := os.ReadFile("/proc/uptime"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) > 0 {
			if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
				uptime = uint64(f)
			}
		}
	}

	kernel := "unknown"
	if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		kernel = strings.TrimSpace(string(data))
	}

	numPkgs := uint32(0)
	if out, err := exec.Command("dpkg", "--get-selections").Output(); err == nil {
		for _, b := range out {
			if b == '\n' {
				numPkgs++
			}
		}
	}

	dpVersion := "unknown"
	if data, err := os.ReadFile("/boot/dietpi/.version"); err == nil {
		fields := strings.FieldsFunc(string(data), func(r rune) bool { return r == '=' || r == '\n' })
		if len(fields) >= 6 {
			dpVersion = fields[1] + "." + fields[3] + "." + fields[5]
		}
	}

	return wire.RespHost{
		Hostname:  hostname,
		NIC:       primaryNIC(),
		Arch:      runtime.GOARCH,
		Uptime:    uptime,
		Kernel:    kernel,
		OSVersion: "unknown",
		DPVersion: dpVersion,
		NumPkgs:   numPkgs,
	}
}

func directoryProbe(path string) wire.ResponseKind {
	entries, err := os.ReadDir(path)
	if err != nil {
		logging.Warn("probe: list_directory failed", "path", path, "err", err)
		return wire.RespDirectory{DirList: nil}
	}
	items := make([]wire.DirectoryItemInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		kind := wire.FileSpecial
		var size *uint64
		if err == nil {
			switch {
			case e.IsDir():
				kind = wire.FileDirectory
			case info.Mode().IsRegular():
				kind = guessFileKind(e.Name())
				s := uint64(info.Size())
				size = &s
			default:
				kind = wire.FileSpecial
			}
		}
		items = append(items, wire.DirectoryItemInfo{Path: e.Name(), Kind: kind, Size: size})
	}
	return wire.RespDirectory{DirList: items}
}

// guessFileKind classifies a regular file as text or binary by extension,
// the same MIME-guess heuristic as the original agent (systemdata.rs):
// text/*, application/json and application/javascript count as text;
// everything else (including an unrecognized extension, which defaults to
// application/octet-stream) is binary (spec.md §4.2).
func guessFileKind(name string) wire.FileKind {
	typ := mime.TypeByExtension(filepath.Ext(name))
	if typ == "" {
		return wire.FileBinary
	}
	if media, _, err := mime.ParseMediaType(typ); err == nil {
		if strings.HasPrefix(media, "text/") || media == "application/json" || media == "application/javascript" {
			return wire.FileText
		}
	}
	return wire.FileBinary
}

func downloadProbe(path string, threshold int) wire.ResponseKind {
	info, err := os.Stat(path)
	if err != nil {
		return wire.RespDownload{Err: "stat failed: " + err.Error()}
	}
	if threshold > 0 && info.Size() > int64(threshold) {
		return wire.RespDownload{Err: "file exceeds download threshold of " + strconv.Itoa(threshold) + " bytes"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return wire.RespDownload{Err: "read failed: " + err.Error()}
	}
	return wire.RespDownload{Data: data}
}

func commandProbe(ctx context.Context, r wire.ReqCommand) wire.ResponseKind {
	out, err := exec.CommandContext(ctx, r.Cmd, r.Args...).Output()
	if err != nil {
		return wire.RespCommand{Output: []byte("command execution failed: " + err.Error())}
	}
	return wire.RespCommand{Output: stripEscapeCodes(out)}
}

// stripEscapeCodes drops ANSI escape sequences from shell-out output,
// matching the original agent's scanner (getters.rs' remove_escape_codes).
func stripEscapeCodes(in []byte) []byte {
	out := make([]byte, 0, len(in))
	inEscape := false
	for _, c := range in {
		if inEscape {
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				inEscape = false
			}
			continue
		}
		if c == 0x1b {
			inEscape = true
			continue
		}
		out = append(out, c)
	}
	return out
}

func softwareProbe(ctx context.Context) wire.ResponseKind {
	out, err := exec.CommandContext(ctx, "/boot/dietpi/dietpi-software", "list", "--machine-readable").Output()
	resp := wire.RespSoftware{}
	if err != nil {
		logging.Debug("probe: dietpi-software unavailable", "err", err)
		return resp
	}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		info, installed, ok := parseSoftwareLine(scanner.Text())
		if !ok {
			continue
		}
		if installed {
			resp.Installed = append(resp.Installed, info)
		} else {
			resp.Uninstalled = append(resp.Uninstalled, info)
		}
	}
	return resp
}

func parseSoftwareLine(line string) (wire.SoftwareInfo, bool, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < 6 {
		return wire.SoftwareInfo{}, false, false
	}
	if strings.Contains(fields[0], "DISABLED") {
		return wire.SoftwareInfo{}, false, false
	}
	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return wire.SoftwareInfo{}, false, false
	}
	installedFlag, err := strconv.Atoi(fields[1])
	if err != nil {
		return wire.SoftwareInfo{}, false, false
	}
	info := wire.SoftwareInfo{
		ID:   uint32(id),
		Name: fields[2],
		Desc: fields[3],
		Deps: strings.Split(fields[4], ","),
		Docs: fields[5],
	}
	return info, installedFlag > 0, true
}

func servicesProbe(ctx context.Context) wire.ResponseKind {
	out, err := exec.CommandContext(ctx, "/boot/dietpi/dietpi-services", "status").CombinedOutput()
	if err != nil {
		logging.Debug("probe: dietpi-services unavailable", "err", err)
		return wire.RespServices{}
	}
	clean := string(stripEscapeCodes(out))
	var services []wire.ServiceInfo
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimPrefix(line, "[  OK  ]")
		line = strings.TrimPrefix(line, "[ INFO ]")
		line = strings.TrimPrefix(line, " DietPi-Services |")
		name, statusDate, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		statusDate = strings.TrimSpace(statusDate)
		status, date, hasDate := strings.Cut(statusDate, " since ")
		if !hasDate {
			status, date = statusDate, ""
		}
		kind := wire.ServiceUnknown
		switch status {
		case "active (running)", "active (exited)":
			kind = wire.ServiceActive
		case "inactive (dead)":
			kind = wire.ServiceInactive
		}
		services = append(services, wire.ServiceInfo{Name: strings.TrimSpace(name), Status: kind, Start: date})
	}
	return wire.RespServices{Services: services}
}
