// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultProcRoot is where procfs is mounted.
const DefaultProcRoot = "/proc"

// LoadedModule is one line of /proc/modules.
type LoadedModule struct {
	Name     string `json:"name"`
	Size     uint64 `json:"size"`
	Refcount int    `json:"refcount"`
	// UsedBy lists the modules holding this one; nil when the kernel reports none.
	UsedBy []string `json:"used_by"`
	State  string   `json:"state"`
	// Offset is the load address; zero when it is hidden or not reported.
	Offset uint64 `json:"offset"`
}

// LoadedModules lists the modules currently loaded, as reported by
// <procRoot>/modules, in kernel order.
func LoadedModules(procRoot string) ([]LoadedModule, error) {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	f, err := os.Open(filepath.Join(procRoot, "modules"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mods []LoadedModule
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		m, err := parseProcModulesLine(text)
		if err != nil {
			return nil, fmt.Errorf("%s/modules:%d: %w", procRoot, line, err)
		}
		mods = append(mods, m)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mods, nil
}

func parseProcModulesLine(text string) (LoadedModule, error) {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		return LoadedModule{}, fmt.Errorf("malformed line %q", text)
	}
	size, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return LoadedModule{}, fmt.Errorf("invalid size %q: %w", fields[1], err)
	}
	refcnt, err := strconv.Atoi(fields[2])
	if err != nil {
		if fields[2] != "-" {
			return LoadedModule{}, fmt.Errorf("invalid refcount %q: %w", fields[2], err)
		}
		refcnt = RefcountUnsupported
	}

	m := LoadedModule{Name: fields[0], Size: size, Refcount: refcnt, State: fields[4]}
	if fields[3] != "-" {
		for holder := range strings.SplitSeq(fields[3], ",") {
			if holder != "" {
				m.UsedBy = append(m.UsedBy, holder)
			}
		}
	}
	if len(fields) > 5 {
		offset, err := strconv.ParseUint(strings.TrimPrefix(fields[5], "0x"), 16, 64)
		if err != nil {
			return LoadedModule{}, fmt.Errorf("invalid offset %q: %w", fields[5], err)
		}
		m.Offset = offset
	}
	return m, nil
}
