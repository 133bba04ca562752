// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestOrderedMap(t *testing.T) {
	t.Parallel()

	var m OrderedMap[int]
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	if got, want := m.Keys(), []string{"b", "a"}; !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, ok := m.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := m.Get("c"); ok {
		t.Error("Get(c) found a missing key")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"b":3,"a":2}`; string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}

	var first string
	for k := range m.All() {
		first = k
		break
	}
	if first != "b" {
		t.Errorf("first key = %q, want b", first)
	}
}

func TestOrderedMap_ZeroValueJSON(t *testing.T) {
	t.Parallel()

	var m OrderedMap[string]
	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "{}" {
		t.Errorf("json = %s, want {}", out)
	}
}
