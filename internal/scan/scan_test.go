// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestProjectsSortedAndFiltered(t *testing.T) {
	tmp := t.TempDir()
	for _, dir := range []string{"zebra", "api", ".git", "blog"} {
		if err := os.Mkdir(filepath.Join(tmp, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmp, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	projects, err := Projects(tmp)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	want := []string{"api", "blog", "zebra"}
	if len(projects) != len(want) {
		t.Fatalf("projects = %v, want %v", projects, want)
	}
	for i := range want {
		if projects[i] != want[i] {
			t.Fatalf("projects = %v, want %v", projects, want)
		}
	}
}

func TestProjectsEmptyDomain(t *testing.T) {
	projects, err := Projects(t.TempDir())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %v", projects)
	}
}

func TestProjectsUnreadableLocation(t *testing.T) {
	_, err := Projects(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrDomainUnreadable) {
		t.Fatalf("expected ErrDomainUnreadable, got %v", err)
	}
}
