// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"reflect"
	"testing"
)

func TestNormalizeArgsVersionFlag(t *testing.T) {
	got := normalizeArgs([]string{"--version"})
	want := []string{"version"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeArgsHelp(t *testing.T) {
	got := normalizeArgs([]string{"help"})
	want := []string{"--help"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeArgsHelpSubcommand(t *testing.T) {
	got := normalizeArgs([]string{"help", "deploy"})
	want := []string{"deploy", "--help"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeArgsHelpUnknown(t *testing.T) {
	got := normalizeArgs([]string{"help", "bogus"})
	want := []string{"--help"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeArgsPassthrough(t *testing.T) {
	args := []string{"deploy", "--watch"}
	got := normalizeArgs(args)
	if !reflect.DeepEqual(got, args) {
		t.Fatalf("expected %v, got %v", args, got)
	}
}

func TestIsKnownCommand(t *testing.T) {
	for _, name := range []string{"install", "uninstall", "config", "deploy", "urls", "mkdir", "shell", "serve", "version"} {
		if !isKnownCommand(name) {
			t.Fatalf("expected %q to be known", name)
		}
	}
	if isKnownCommand("bogus") {
		t.Fatal("expected bogus to be unknown")
	}
}

func TestVersionString(t *testing.T) {
	origVersion, origCommit := version, commit
	defer func() { version, commit = origVersion, origCommit }()

	version, commit = "1.2.3", ""
	if got := versionString(); got != "1.2.3" {
		t.Fatalf("expected 1.2.3, got %q", got)
	}
	version, commit = "1.2.3", "abc123"
	if got := versionString(); got != "1.2.3 (abc123)" {
		t.Fatalf("expected commit suffix, got %q", got)
	}
	version, commit = "", ""
	if got := versionString(); got != "dev" {
		t.Fatalf("expected dev fallback, got %q", got)
	}
}
