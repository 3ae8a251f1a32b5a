// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ports

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAssignIsStableAndSequential(t *testing.T) {
	m := Map{}

	first := m.Assign(Key("projects", "blog"), 50100)
	if first != 50100 {
		t.Fatalf("first port = %d", first)
	}
	second := m.Assign(Key("projects", "api"), 50100)
	if second != 50101 {
		t.Fatalf("second port = %d", second)
	}
	if again := m.Assign(Key("projects", "blog"), 50100); again != first {
		t.Fatalf("reassignment moved port: %d != %d", again, first)
	}
}

func TestAssignSkipsUsedPorts(t *testing.T) {
	m := Map{Ports: map[string]int{
		"projects/a": 50100,
		"projects/c": 50101,
	}}
	if port := m.Assign("projects/b", 50100); port != 50102 {
		t.Fatalf("port = %d", port)
	}
}

func TestReleaseFreesPortForReuse(t *testing.T) {
	m := Map{}
	m.Assign("projects/a", 50100)
	m.Assign("projects/b", 50100)

	if !m.Release("projects/a") {
		t.Fatalf("Release returned false")
	}
	if m.Release("projects/a") {
		t.Fatalf("expected second Release to return false")
	}
	if port := m.Assign("projects/c", 50100); port != 50100 {
		t.Fatalf("freed port not reused: %d", port)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darp", "portmap.json")

	m := Map{}
	m.Assign("projects/blog", 50100)
	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	port, ok := loaded.PortFor("projects/blog")
	if !ok || port != 50100 {
		t.Fatalf("PortFor = %d, %v", port, ok)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "portmap.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Ports) != 0 {
		t.Fatalf("expected empty map, got %v", m.Ports)
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portmap.json")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
