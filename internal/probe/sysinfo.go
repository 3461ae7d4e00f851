package probe

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// cpuTotals holds the /proc/stat jiffy counters needed to compute a usage
// percentage between two samples.
type cpuTotals struct {
	idle, total uint64
}

func readCPUTotals() (overall cpuTotals, perCPU []cpuTotals, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuTotals{}, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		var vals [10]uint64
		for i, f := range fields[1:] {
			if i >= len(vals) {
				break
			}
			vals[i], _ = strconv.ParseUint(f, 10, 64)
		}
		var total uint64
		for _, v := range vals {
			total += v
		}
		idle := vals[3] + vals[4] // idle + iowait
		t := cpuTotals{idle: idle, total: total}
		if fields[0] == "cpu" {
			overall = t
		} else {
			perCPU = append(perCPU, t)
		}
	}
	return overall, perCPU, scanner.Err()
}

func usagePercent(prev, cur cpuTotals) float64 {
	totalDelta := cur.total - prev.total
	if totalDelta == 0 {
		return 0
	}
	idleDelta := cur.idle - prev.idle
	return round2(float64(totalDelta-idleDelta) / float64(totalDelta) * 100)
}

// cpuProbe samples /proc/stat twice 100ms apart to compute instantaneous
// usage — the jiffy counters it reads are cumulative since boot.
func cpuProbe() wire.ResponseKind {
	before, beforeCPUs, err := readCPUTotals()
	if err != nil {
		logging.Warn("cpu probe failed", "err", err)
		return wire.RespCpu{}
	}
	time.Sleep(100 * time.Millisecond)
	after, afterCPUs, err := readCPUTotals()
	if err != nil {
		return wire.RespCpu{}
	}

	cpus := make([]float64, 0, len(afterCPUs))
	for i := range afterCPUs {
		if i < len(beforeCPUs) {
			cpus = append(cpus, usagePercent(beforeCPUs[i], afterCPUs[i]))
		}
	}
	return wire.RespCpu{GlobalCPU: usagePercent(before, after), CPUs: cpus}
}

// knownSensorNames mirrors the original agent's preference order when more
// than one thermal zone is present (getters.rs' known_sensor_names).
var knownSensorNames = []string{"coretemp Package", "tdie", "cpu-thermal", "soc-thermal"}

func tempProbe() wire.ResponseKind {
	base := "/sys/class/thermal"
	entries, err := os.ReadDir(base)
	if err != nil {
		return wire.RespTemp{}
	}

	type zone struct {
		label string
		milli int64
	}
	var zones []zone
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "thermal_zone") {
			continue
		}
		dir := filepath.Join(base, e.Name())
		typeData, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		tempData, err := os.ReadFile(filepath.Join(dir, "temp"))
		if err != nil {
			continue
		}
		milli, err := strconv.ParseInt(strings.TrimSpace(string(tempData)), 10, 64)
		if err != nil {
			continue
		}
		zones = append(zones, zone{label: strings.TrimSpace(string(typeData)), milli: milli})
	}
	if len(zones) == 0 {
		return wire.RespTemp{}
	}

	pick := zones[0]
	for _, known := range knownSensorNames {
		found := false
		for _, z := range zones {
			if strings.Contains(z.label, known) {
				pick = z
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	t := round2(float64(pick.milli) / 1000.0)
	return wire.RespTemp{Temp: &t}
}

func memProbe() wire.ResponseKind {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return wire.RespMem{}
	}
	defer f.Close()

	fields := map[string]uint64{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		valueField := strings.Fields(rest)
		if len(valueField) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(valueField[0], 10, 64)
		if err != nil {
			continue
		}
		fields[key] = kb * 1024
	}

	total := fields["MemTotal"]
	avail, ok := fields["MemAvailable"]
	if !ok {
		avail = fields["MemFree"]
	}
	used := uint64(0)
	if total > avail {
		used = total - avail
	}

	swapTotal := fields["SwapTotal"]
	swapFree := fields["SwapFree"]
	swapUsed := uint64(0)
	if swapTotal > swapFree {
		swapUsed = swapTotal - swapFree
	}

	return wire.RespMem{
		Ram:  wire.UsageData{Used: used, Total: total},
		Swap: wire.UsageData{Used: swapUsed, Total: swapTotal},
	}
}

func diskProbe(mountPoints []string) wire.ResponseKind {
	wanted := make(map[string]bool, len(mountPoints))
	for _, m := range mountPoints {
		wanted[m] = true
	}

	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return wire.RespDisk{}
	}
	defer f.Close()

	var disks []wire.DiskInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		mnt := fields[4]
		if len(wanted) > 0 && !wanted[mnt] {
			continue
		}
		var stat statfsResult
		if err := statfs(mnt, &stat); err != nil {
			continue
		}
		total := stat.Blocks * uint64(stat.Bsize)
		free := stat.Bfree * uint64(stat.Bsize)
		used := uint64(0)
		if total > free {
			used = total - free
		}
		disks = append(disks, wire.DiskInfo{
			Name:     filepath.Base(mnt),
			MntPoint: mnt,
			Usage:    wire.UsageData{Used: used, Total: total},
		})
	}
	return wire.RespDisk{Disks: disks}
}

func netIOProbe() wire.ResponseKind {
	f, err := os.Open("/proc/net/dev")
	if err != nil {
		return wire.RespNetIO{}
	}
	defer f.Close()

	var sent, recv uint64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue // two header lines
		}
		iface, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(iface) == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			continue
		}
		rx, _ := strconv.ParseUint(fields[0], 10, 64)
		tx, _ := strconv.ParseUint(fields[8], 10, 64)
		recv += rx
		sent += tx
	}
	return wire.RespNetIO{Sent: sent, Recv: recv}
}

func primaryNIC() string {
	f, err := os.Open("/proc/net/dev")
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	best, bestBytes := "unknown", uint64(0)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue
		}
		iface, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		iface = strings.TrimSpace(iface)
		if iface == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			continue
		}
		tx, _ := strconv.ParseUint(fields[8], 10, 64)
		if tx > bestBytes {
			bestBytes, best = tx, iface
		}
	}
	return best
}

func processesProbe() wire.ResponseKind {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return wire.RespProcesses{}
	}
	var procs []wire.ProcessInfo
	for _, e := range entries {
		pid, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		statData, err := os.ReadFile(filepath.Join("/proc", e.Name(), "stat"))
		if err != nil {
			continue
		}
		status := parseProcStatus(string(statData))
		procs = append(procs, wire.ProcessInfo{
			PID:    int32(pid),
			Name:   strings.TrimSpace(string(comm)),
			CPU:    0, // jiffy-delta CPU% needs a prior sample; out of scope for a single-shot probe
			Mem:    0,
			Status: status,
		})
	}
	return wire.RespProcesses{Processes: procs}
}

func parseProcStatus(stat string) wire.ProcessStatus {
	// Format: "pid (name) state ...". The name can contain spaces/parens, so
	// find the last ')' to locate the state field reliably.
	idx := strings.LastIndexByte(stat, ')')
	if idx < 0 || idx+2 >= len(stat) {
		return wire.ProcessOther
	}
	switch stat[idx+2] {
	case 'R':
		return wire.ProcessRunning
	case 'S', 'D':
		return wire.ProcessSleeping
	case 'T', 't':
		return wire.ProcessPaused
	default:
		return wire.ProcessOther
	}
}
