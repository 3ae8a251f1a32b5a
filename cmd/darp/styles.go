// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type outputStyler struct {
	enabled     bool
	domainStyle lipgloss.Style
	linkStyle   lipgloss.Style
	valueStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	okStyle     lipgloss.Style
	failStyle   lipgloss.Style
}

func newOutputStyler(out io.Writer) outputStyler {
	if !wantPrettyOutput(out) {
		return outputStyler{}
	}
	return outputStyler{
		enabled:     true,
		domainStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1F7A1F", Dark: "#7EE787"}),
		linkStyle:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0B61C5", Dark: "#6CB6FF"}).Underline(true),
		valueStyle:  lipgloss.NewStyle().Bold(true),
		mutedStyle:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6E6E6E", Dark: "#9CA3AF"}),
		okStyle:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F7A1F", Dark: "#7EE787"}),
		failStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B42318", Dark: "#FF7B72"}),
	}
}

func (s outputStyler) domain(text string) string {
	if !s.enabled {
		return text
	}
	return s.domainStyle.Render(text)
}

func (s outputStyler) link(text string) string {
	if !s.enabled {
		return text
	}
	return s.linkStyle.Render(text)
}

func (s outputStyler) value(text string) string {
	if !s.enabled {
		return text
	}
	return s.valueStyle.Render(text)
}

func (s outputStyler) muted(text string) string {
	if !s.enabled {
		return text
	}
	return s.mutedStyle.Render(text)
}

func (s outputStyler) ok(text string) string {
	if !s.enabled {
		return text
	}
	return s.okStyle.Render(text)
}

func (s outputStyler) fail(text string) string {
	if !s.enabled {
		return text
	}
	return s.failStyle.Render(text)
}

func wantPrettyOutput(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termValue := os.Getenv("TERM")
	if termValue == "" || termValue == "dumb" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
