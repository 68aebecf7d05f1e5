package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this value when memory is unrestricted.
const unrestrictedMemoryLimit = 9223372036854771712

var cgroupMemoryLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroup v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroup v1
}

// GetTotalMemory returns the total available memory size. The call is
// container-aware.
func GetTotalMemory() uint64 {
	totalMemory := memory.TotalMemory()

	for _, path := range cgroupMemoryLimitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if limit, ok := parseMemoryLimit(string(raw)); ok && limit < totalMemory {
			return limit
		}
	}
	return totalMemory
}

// parseMemoryLimit parses a cgroup memory limit. Unlimited values are not ok.
func parseMemoryLimit(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 || limit == unrestrictedMemoryLimit {
		return 0, false
	}
	return limit, true
}
