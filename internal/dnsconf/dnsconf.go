// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dnsconf renders the name resolution artifacts: dnsmasq zone
// files served by the dns container, the hosts-format file mounted
// into the reverse proxy, and the entries optionally spliced into the
// system hosts file.
package dnsconf

import (
	"bytes"
	"sort"
)

// Wildcard answers every *.test name with loopback. Written once at
// install time so new projects need no per-host records.
const Wildcard = "address=/.test/127.0.0.1\n"

// RenderDNSMasq produces the per-domain zone file regenerated on every
// deploy. When hosts mode is active it renders empty, neutralizing any
// lines left over from dnsmasq mode.
func RenderDNSMasq(domainNames []string, hostsMode bool) []byte {
	if hostsMode {
		return []byte{}
	}
	var b bytes.Buffer
	for _, name := range sortedCopy(domainNames) {
		b.WriteString("address=/")
		b.WriteString(name)
		b.WriteString(".test/127.0.0.1\n")
	}
	return b.Bytes()
}

// RenderHostsContainer produces the hosts file mounted into the proxy
// container. Names resolve to 0.0.0.0 there; the proxy only needs the
// names to exist.
func RenderHostsContainer(hosts []string) []byte {
	var b bytes.Buffer
	for _, h := range sortedCopy(hosts) {
		b.WriteString("0.0.0.0   ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// SystemHostsEntries produces the lines spliced into the system hosts
// file when urls_in_hosts is enabled. On the host the names must point
// at loopback, where the proxy listens. When hosts mode is off it
// returns nothing, which clears a previously written block.
func SystemHostsEntries(hosts []string, hostsMode bool) []string {
	if !hostsMode {
		return nil
	}
	sorted := sortedCopy(hosts)
	lines := make([]string, 0, len(sorted))
	for _, h := range sorted {
		lines = append(lines, "127.0.0.1   "+h)
	}
	return lines
}

func sortedCopy(values []string) []string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return sorted
}
