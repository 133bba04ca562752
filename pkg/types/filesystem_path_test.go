// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestFilesystemPath_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path FilesystemPath
		want bool
	}{
		{"/lib/modules/6.1.0/kernel/fs/ext4/ext4.ko", true},
		{"ext4.ko.xz", true},
		{"/mnt/my root", true},
		{".", true},
		{"", false},
		{"   ", false},
		{"\t", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.path), func(t *testing.T) {
			t.Parallel()
			valid, errs := tt.path.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v, want %v", valid, tt.want)
			}
			if valid {
				if len(errs) > 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			var pathErr *InvalidFilesystemPathError
			if len(errs) != 1 || !errors.As(errs[0], &pathErr) || !errors.Is(errs[0], ErrInvalidFilesystemPath) {
				t.Fatalf("errs = %v, want one *InvalidFilesystemPathError", errs)
			}
			if pathErr.Value != tt.path {
				t.Errorf("error value = %q, want %q", pathErr.Value, tt.path)
			}
		})
	}
}

func TestFilesystemPath_JoinAndDir(t *testing.T) {
	t.Parallel()

	root := FilesystemPath("/mnt/sysroot")
	got := root.Join("lib", "modules", "6.1.0")
	if got != "/mnt/sysroot/lib/modules/6.1.0" {
		t.Errorf("Join() = %q", got)
	}
	if got.Dir() != "/mnt/sysroot/lib/modules" {
		t.Errorf("Dir() = %q", got.Dir())
	}
	if got.String() != string(got) {
		t.Errorf("String() = %q", got.String())
	}
	if FilesystemPath("config.cue").Dir() != "." {
		t.Errorf("Dir() of a bare name = %q, want .", FilesystemPath("config.cue").Dir())
	}
}
