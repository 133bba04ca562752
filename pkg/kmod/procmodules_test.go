// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"errors"
	"io/fs"
	"slices"
	"testing"

	"github.com/invowk/kmodule/internal/testutil/kmodtest"
)

func TestLoadedModules(t *testing.T) {
	t.Parallel()

	tree := kmodtest.NewTree(t, testRelease)
	tree.WriteProcModules(
		"ext4 999424 2 - Live 0xffffffffc0a00000",
		"jbd2 167936 1 ext4, Live 0xffffffffc09d0000",
		"crc16 16384 2 ext4,jbd2, Loading 0x0000000000000000",
		"",
		"vboxsf 45056 - - Live",
	)

	mods, err := LoadedModules(tree.ProcRoot())
	if err != nil {
		t.Fatalf("LoadedModules() error = %v", err)
	}
	if len(mods) != 4 {
		t.Fatalf("len = %d, want 4", len(mods))
	}

	if m := mods[0]; m.Name != "ext4" || m.Size != 999424 || m.Refcount != 2 || m.UsedBy != nil || m.State != "Live" || m.Offset != 0xffffffffc0a00000 {
		t.Errorf("mods[0] = %+v", m)
	}
	if !slices.Equal(mods[1].UsedBy, []string{"ext4"}) {
		t.Errorf("mods[1].UsedBy = %v", mods[1].UsedBy)
	}
	if !slices.Equal(mods[2].UsedBy, []string{"ext4", "jbd2"}) || mods[2].State != "Loading" || mods[2].Offset != 0 {
		t.Errorf("mods[2] = %+v", mods[2])
	}
	if m := mods[3]; m.Refcount != RefcountUnsupported || m.Offset != 0 {
		t.Errorf("mods[3] = %+v", m)
	}
}

func TestLoadedModules_Errors(t *testing.T) {
	t.Parallel()

	tree := kmodtest.NewTree(t, testRelease)
	if _, err := LoadedModules(tree.ProcRoot()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}

	tree.WriteProcModules("ext4 big 2 - Live 0x0")
	if _, err := LoadedModules(tree.ProcRoot()); err == nil {
		t.Error("error = nil for an invalid size")
	}

	tree.WriteProcModules("ext4 4096 0 - Live ffff:c0a0")
	if _, err := LoadedModules(tree.ProcRoot()); err == nil {
		t.Error("error = nil for an invalid offset")
	}

	tree.WriteProcModules("ext4 1")
	if _, err := LoadedModules(tree.ProcRoot()); err == nil {
		t.Error("error = nil for a truncated line")
	}
}
