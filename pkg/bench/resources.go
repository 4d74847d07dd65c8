package bench

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ResourceSample captures process memory usage at a point in time.
// RSS figures come from /proc/self/status on Linux and are zero on
// platforms without procfs; the runtime figures are always present.
type ResourceSample struct {
	RSSBytes     uint64
	PeakRSSBytes uint64
	HeapAlloc    uint64
	HeapSys      uint64
	TotalAlloc   uint64
	NumGC        uint32
	Goroutines   int
}

func (r ResourceSample) String() string {
	return fmt.Sprintf("rss=%s peak=%s heap=%s/%s gc=%d goroutines=%d",
		formatBytes(r.RSSBytes), formatBytes(r.PeakRSSBytes),
		formatBytes(r.HeapAlloc), formatBytes(r.HeapSys),
		r.NumGC, r.Goroutines)
}

// SampleResources reads the current process resource usage.
func SampleResources() ResourceSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := ResourceSample{
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		TotalAlloc: ms.TotalAlloc,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	sample.RSSBytes, sample.PeakRSSBytes = readProcRSS()
	return sample
}

// readProcRSS parses VmRSS and VmHWM from /proc/self/status. Both are
// zero when the file is unavailable.
func readProcRSS() (rss, peak uint64) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "VmRSS:"):
			rss = parseKBLine(line)
		case strings.HasPrefix(line, "VmHWM:"):
			peak = parseKBLine(line)
		}
	}
	return rss, peak
}

// parseKBLine extracts the value from a "Name:  1234 kB" status line,
// returned in bytes.
func parseKBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
