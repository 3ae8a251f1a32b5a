// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scan discovers the projects of a domain: the immediate
// subdirectories of its registered location.
package scan

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrDomainUnreadable marks a domain whose location is missing or not
// listable. Callers treat it as a per-domain failure.
var ErrDomainUnreadable = errors.New("domain location is not readable")

// Projects lists the project names under a domain location in
// lexicographic order. Hidden directories and plain files are skipped.
func Projects(location string) ([]string, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDomainUnreadable, location, err)
	}

	var projects []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		projects = append(projects, name)
	}
	// os.ReadDir already sorts by name.
	return projects, nil
}
