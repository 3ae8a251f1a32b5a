// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vhost renders the nginx server blocks that route project
// hostnames to their assigned host ports.
package vhost

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Suffix is the DNS zone every project hostname lives under.
const Suffix = "test"

// ErrInvalidHostLabel marks a project or domain name that cannot form
// a DNS label.
var ErrInvalidHostLabel = errors.New("invalid hostname label")

// Unit is one routable project: a hostname and the host port its
// traffic is proxied to.
type Unit struct {
	Host string
	Port int
}

// Hostname builds "project.domain.test" after validating both labels.
func Hostname(project, domainName string) (string, error) {
	for _, label := range []string{project, domainName} {
		if err := checkLabel(label); err != nil {
			return "", err
		}
	}
	return project + "." + domainName + "." + Suffix, nil
}

func checkLabel(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: label is empty", ErrInvalidHostLabel)
	}
	if len(raw) > 63 {
		return fmt.Errorf("%w: label %q is too long", ErrInvalidHostLabel, raw)
	}
	if strings.HasPrefix(raw, "-") || strings.HasSuffix(raw, "-") {
		return fmt.Errorf("%w: label %q must not start or end with '-'", ErrInvalidHostLabel, raw)
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return fmt.Errorf("%w: label %q has invalid character %q", ErrInvalidHostLabel, raw, r)
		}
	}
	return nil
}

// Render produces the full vhost file for a set of units. Output is
// sorted by hostname so identical inputs always produce identical
// bytes, letting the deployer diff instead of restarting.
func Render(units []Unit, hostGateway string) []byte {
	sorted := make([]Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Host < sorted[j].Host })

	var b bytes.Buffer
	for _, u := range sorted {
		if u.Port <= 0 {
			continue
		}
		b.WriteString("server {\n")
		b.WriteString("    listen 80;\n")
		b.WriteString("    server_name " + u.Host + ";\n")
		b.WriteString("    location / {\n")
		b.WriteString("        proxy_pass http://" + hostGateway + ":" + strconv.Itoa(u.Port) + "/;\n")
		b.WriteString("        proxy_set_header Host $host;\n")
		b.WriteString("    }\n")
		b.WriteString("}\n")
	}
	return b.Bytes()
}
