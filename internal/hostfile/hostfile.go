// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostfile splices darp's hostname entries into the system
// hosts file, inside a marker-delimited block that is rewritten as a
// whole on every sync. Text outside the markers is never touched.
package hostfile

import (
	"os"
	"strings"

	"github.com/darpdev/darp/internal/hostcmd"
)

const (
	Header = "# --- DARP HOSTS START ---"
	Footer = "# --- DARP HOSTS END ---"

	hostsPath = "/etc/hosts"
)

// Splice removes any existing marker block from the hosts file content
// and appends a fresh one holding the given entries. An empty entry
// list removes the block entirely.
func Splice(existing []byte, entries []string) []byte {
	lines := strings.Split(string(existing), "\n")

	kept := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == Header:
			inBlock = true
		case trimmed == Footer:
			inBlock = false
		case !inBlock:
			kept = append(kept, line)
		}
	}

	// Drop trailing blank lines so the block always sits after exactly
	// one newline.
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}

	out := strings.Join(kept, "\n")
	if len(entries) > 0 {
		if out != "" {
			out += "\n"
		}
		out += Header + "\n"
		out += strings.Join(entries, "\n") + "\n"
		out += Footer + "\n"
	} else if out != "" {
		out += "\n"
	}
	return []byte(out)
}

// Sync rewrites the system hosts block. The file is world-readable,
// so the read needs no elevation; only a changed write goes through
// sudo tee. Passing no entries clears a previously written block,
// making that case a silent no-op on systems darp never touched.
func Sync(entries []string) error {
	current, err := os.ReadFile(hostsPath)
	if err != nil {
		captured, capErr := hostcmd.RunCapture("cat", hostsPath)
		if capErr != nil {
			return err
		}
		current = []byte(captured)
	}
	if len(entries) == 0 && !strings.Contains(string(current), Header) {
		return nil
	}
	updated := Splice(current, entries)
	if string(updated) == string(current) {
		return nil
	}
	return hostcmd.RunInput(updated, "tee", hostsPath)
}
