// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"testing"

	"github.com/darpdev/darp/internal/config"
)

func testWorkspace(t *testing.T) *workspace {
	t.Helper()
	return &workspace{paths: config.PathsAt(t.TempDir())}
}

func TestParseField(t *testing.T) {
	cases := map[string]config.Field{
		"serve-command":           config.FieldServeCommand,
		"shell-command":           config.FieldShellCommand,
		"image-repository":        config.FieldImageRepository,
		"platform":                config.FieldPlatform,
		"default-container-image": config.FieldDefaultContainerImage,
	}
	for name, want := range cases {
		got, err := parseField(name)
		if err != nil {
			t.Fatalf("parseField(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("parseField(%q)=%q want %q", name, got, want)
		}
	}
	if _, err := parseField("bogus"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestConfigSetEngineRoundTrip(t *testing.T) {
	ws := testWorkspace(t)
	if err := handleConfigSet(ws, []string{"engine", "podman"}); err != nil {
		t.Fatalf("set engine: %v", err)
	}
	loaded, err := config.Load(ws.paths.ConfigPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Engine != "podman" {
		t.Fatalf("expected podman, got %q", loaded.Engine)
	}
}

func TestConfigSetEnvField(t *testing.T) {
	ws := testWorkspace(t)
	ws.cfg.Environments = map[string]config.Environment{"rails": {}}
	if err := handleConfigSet(ws, []string{"env", "serve-command", "rails", "bin/rails s"}); err != nil {
		t.Fatalf("set env field: %v", err)
	}
	loaded, err := config.Load(ws.paths.ConfigPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := loaded.Environments["rails"].ServeCommand; got != "bin/rails s" {
		t.Fatalf("expected serve command, got %q", got)
	}
}

func TestConfigSetUsageErrors(t *testing.T) {
	ws := testWorkspace(t)
	cases := [][]string{
		nil,
		{"engine"},
		{"base-port", "notaport"},
		{"domain", "wrong-verb", "projects", "rails"},
		{"bogus", "x"},
	}
	for _, args := range cases {
		err := handleConfigSet(ws, args)
		var usageErr usageError
		if !errors.As(err, &usageErr) {
			t.Fatalf("expected usage error for %v, got %v", args, err)
		}
	}
}

func TestConfigAddEnvPortmap(t *testing.T) {
	ws := testWorkspace(t)
	if err := handleConfigAdd(ws, []string{"env", "portmap", "rails", "5432", "5432"}); err != nil {
		t.Fatalf("add portmap: %v", err)
	}
	loaded, err := config.Load(ws.paths.ConfigPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := loaded.Environments["rails"].HostPortMappings["5432"]; got != "5432" {
		t.Fatalf("expected mapping, got %q", got)
	}
}

func TestConfigRmUnknownTarget(t *testing.T) {
	ws := testWorkspace(t)
	err := handleConfigRm(ws, []string{"bogus"})
	var usageErr usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
