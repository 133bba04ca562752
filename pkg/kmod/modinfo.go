// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"strings"
)

// modinfoSection is the ELF section holding a module's key=value metadata.
const modinfoSection = ".modinfo"

// errNoModinfo is returned for ELF files that carry no .modinfo section.
var errNoModinfo = errors.New("no " + modinfoSection + " section, not a kernel module")

// InfoEntry is one raw key/value pair from a module's metadata, in the order it
// appears in the image.
type InfoEntry struct {
	Key   string
	Value string
}

// String returns the entry in its on-disk "key=value" form.
func (e InfoEntry) String() string { return e.Key + "=" + e.Value }

// parseModinfo extracts the .modinfo entries from an uncompressed ELF image.
func parseModinfo(image []byte) ([]InfoEntry, error) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("invalid ELF image: %w", err)
	}
	defer f.Close()

	sec := f.Section(modinfoSection)
	if sec == nil {
		return nil, errNoModinfo
	}
	data, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", modinfoSection, err)
	}
	return splitModinfo(data), nil
}

// splitModinfo splits NUL-separated "key=value" strings. Alignment padding
// shows up as empty strings and is skipped, as are strings without '='.
func splitModinfo(data []byte) []InfoEntry {
	var entries []InfoEntry
	for _, raw := range bytes.Split(data, []byte{0}) {
		if len(raw) == 0 {
			continue
		}
		key, value, ok := strings.Cut(string(raw), "=")
		if !ok || key == "" {
			continue
		}
		entries = append(entries, InfoEntry{Key: key, Value: value})
	}
	return entries
}

// infoValue returns the last value recorded for key.
func infoValue(entries []InfoEntry, key string) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Key == key {
			return entries[i].Value, true
		}
	}
	return "", false
}
