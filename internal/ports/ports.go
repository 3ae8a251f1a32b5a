// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ports persists the host port assigned to each project so a
// project keeps its URL-backing port across deploys. Keys have the
// form "domain/project".
package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Map tracks persisted port assignments.
type Map struct {
	Ports map[string]int `json:"ports"`
}

// Key builds the assignment key for one project of a domain.
func Key(domainName, project string) string {
	return domainName + "/" + project
}

// Load reads the port map. A missing file yields an empty map; a
// corrupt file is an error so assignments are never silently reset.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Map{Ports: map[string]int{}}, nil
		}
		return Map{}, err
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return Map{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.Ports == nil {
		m.Ports = map[string]int{}
	}
	return m, nil
}

// Save writes the port map back.
func Save(path string, m Map) error {
	if m.Ports == nil {
		m.Ports = map[string]int{}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PortFor reports the port already assigned to a key.
func (m *Map) PortFor(key string) (int, bool) {
	if m.Ports == nil {
		return 0, false
	}
	port, ok := m.Ports[key]
	return port, ok
}

// Assign returns the existing port for a key, or hands out the lowest
// free port at or above base. Existing assignments never move.
func (m *Map) Assign(key string, base int) int {
	if m.Ports == nil {
		m.Ports = map[string]int{}
	}
	if port, ok := m.Ports[key]; ok {
		return port
	}

	used := make(map[int]bool, len(m.Ports))
	for _, port := range m.Ports {
		used[port] = true
	}

	port := base
	for used[port] {
		port++
	}

	m.Ports[key] = port
	return port
}

// Release drops the assignment for a key, freeing its port for reuse.
func (m *Map) Release(key string) bool {
	if m.Ports == nil {
		return false
	}
	if _, ok := m.Ports[key]; !ok {
		return false
	}
	delete(m.Ports, key)
	return true
}
