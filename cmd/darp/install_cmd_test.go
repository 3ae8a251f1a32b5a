// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"github.com/darpdev/darp/internal/engine"
)

func TestNginxConfForDocker(t *testing.T) {
	conf := nginxConfFor(engine.Docker)
	if !strings.Contains(conf, "inotify events; native file watching works") {
		t.Fatalf("expected docker watch comment, got:\n%s", conf)
	}
	if !strings.Contains(conf, "include /etc/nginx/http.d/*.conf;") {
		t.Fatalf("expected http.d include, got:\n%s", conf)
	}
}

func TestNginxConfForPodman(t *testing.T) {
	conf := nginxConfFor(engine.Podman)
	if !strings.Contains(conf, "polling-based") {
		t.Fatalf("expected podman polling comment, got:\n%s", conf)
	}
	if strings.Contains(conf, "native file watching works") {
		t.Fatalf("docker comment leaked into podman template:\n%s", conf)
	}
}
