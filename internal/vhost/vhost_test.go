// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vhost

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHostname(t *testing.T) {
	host, err := Hostname("hello-world", "projects")
	if err != nil {
		t.Fatalf("Hostname: %v", err)
	}
	if host != "hello-world.projects.test" {
		t.Fatalf("host = %q", host)
	}
}

func TestHostnameRejectsBadLabels(t *testing.T) {
	for _, bad := range []string{"", "has space", "Upper", "trailing-", "-leading", "dot.ted", strings.Repeat("a", 64)} {
		if _, err := Hostname(bad, "projects"); !errors.Is(err, ErrInvalidHostLabel) {
			t.Fatalf("Hostname(%q): expected ErrInvalidHostLabel, got %v", bad, err)
		}
	}
}

func TestRenderServerBlock(t *testing.T) {
	out := Render([]Unit{{Host: "blog.projects.test", Port: 50100}}, "host.docker.internal")
	want := "server {\n" +
		"    listen 80;\n" +
		"    server_name blog.projects.test;\n" +
		"    location / {\n" +
		"        proxy_pass http://host.docker.internal:50100/;\n" +
		"        proxy_set_header Host $host;\n" +
		"    }\n" +
		"}\n"
	if string(out) != want {
		t.Fatalf("unexpected render:\n%s", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a := Render([]Unit{
		{Host: "z.projects.test", Port: 50101},
		{Host: "a.projects.test", Port: 50100},
	}, "host.containers.internal")
	b := Render([]Unit{
		{Host: "a.projects.test", Port: 50100},
		{Host: "z.projects.test", Port: 50101},
	}, "host.containers.internal")
	if !bytes.Equal(a, b) {
		t.Fatalf("render differs for same unit set")
	}
	if !strings.HasPrefix(string(a), "server {\n    listen 80;\n    server_name a.projects.test;") {
		t.Fatalf("blocks not sorted by host:\n%s", a)
	}
}

func TestRenderSkipsUnassignedPorts(t *testing.T) {
	out := Render([]Unit{{Host: "blog.projects.test", Port: 0}}, "host.docker.internal")
	if len(out) != 0 {
		t.Fatalf("expected empty output, got:\n%s", out)
	}
}
