// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/host"
)

// modulesBaseDir is the module tree location relative to the root directory.
const modulesBaseDir = "lib/modules"

// runningRelease is swapped in tests.
var runningRelease = host.KernelVersion

// RunningRelease returns the release string of the running kernel, as `uname -r`
// prints it.
func RunningRelease() (string, error) {
	release, err := runningRelease()
	if err != nil {
		return "", fmt.Errorf("failed to determine running kernel release: %w", err)
	}
	return release, nil
}

// ModulesDir returns <rootDir>/lib/modules/<release>. An empty rootDir means "/".
func ModulesDir(rootDir, release string) string {
	if rootDir == "" {
		rootDir = "/"
	}
	return filepath.Join(rootDir, modulesBaseDir, release)
}
