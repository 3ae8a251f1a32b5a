// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution failures. Callers match these with errors.Is; each is
// fatal to the single project being resolved, never to a whole deploy.
var (
	ErrUnknownDomain      = errors.New("domain is not registered")
	ErrUnknownEnvironment = errors.New("environment is not defined")
	ErrMissingImage       = errors.New("no container image configured")
)

// DefaultShellCommand is used when no layer supplies a shell.
const DefaultShellCommand = "/bin/sh"

// ExpandContext carries the values substituted for the {home} and
// {pwd} placeholders in volume host paths.
type ExpandContext struct {
	Home       string
	ProjectDir string
}

// Request controls a single resolution pass.
type Request struct {
	// Image is an explicit image from the command line. It wins over
	// every configured layer.
	Image string
	// RequireImage makes resolution fail with ErrMissingImage when no
	// layer supplies an image. Commands that run project containers set
	// it; deploy does not, since routing needs no image.
	RequireImage bool
	// Environment names an environment to resolve against instead of
	// the one configured for the service or domain.
	Environment string

	Context ExpandContext
}

// Settings is the fully merged view of one project: command line over
// service over environment over builtin defaults.
type Settings struct {
	Image            string
	ServeCommand     string
	ShellCommand     string
	Platform         string
	HostPortMappings map[string]string
	Volumes          []Volume // host paths already expanded
}

// Resolve merges the settings layers for one project of a domain. The
// domain is identified by its canonical path key in Domains.
func (c *Config) Resolve(domainKey, project string, req Request) (Settings, error) {
	domain, ok := c.Domains[domainKey]
	if !ok {
		return Settings{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domainKey)
	}

	svc := domain.Services[project]

	var env Environment
	envName := req.Environment
	if envName == "" {
		envName = svc.Environment
	}
	if envName == "" {
		envName = domain.DefaultEnvironment
	}
	if envName != "" {
		env, ok = c.Environments[envName]
		if !ok {
			return Settings{}, fmt.Errorf("%w: %q (referenced by %s/%s)",
				ErrUnknownEnvironment, envName, domain.Name, project)
		}
	}

	s := Settings{
		ServeCommand: firstNonEmpty(svc.ServeCommand, env.ServeCommand),
		ShellCommand: firstNonEmpty(svc.ShellCommand, env.ShellCommand, DefaultShellCommand),
		Platform:     firstNonEmpty(svc.Platform, env.Platform),
	}

	base := firstNonEmpty(req.Image, svc.DefaultContainerImage, env.DefaultContainerImage)
	if base == "" && req.RequireImage {
		return Settings{}, fmt.Errorf("%w for %s/%s", ErrMissingImage, domain.Name, project)
	}
	// A configured repository turns the image value into a tag under it.
	if repo := firstNonEmpty(svc.ImageRepository, env.ImageRepository); repo != "" && base != "" {
		s.Image = repo + ":" + base
	} else {
		s.Image = base
	}

	// Port mappings and volumes override wholesale, not entry by entry.
	if len(svc.HostPortMappings) > 0 {
		s.HostPortMappings = svc.HostPortMappings
	} else {
		s.HostPortMappings = env.HostPortMappings
	}
	src := svc.Volumes
	if len(src) == 0 {
		src = env.Volumes
	}
	for _, v := range src {
		s.Volumes = append(s.Volumes, Volume{
			Container: v.Container,
			Host:      ExpandHostPath(v.Host, req.Context),
		})
	}
	return s, nil
}

// ExpandHostPath substitutes {home} and {pwd} in a volume host path.
// Unknown placeholders are left untouched.
func ExpandHostPath(path string, ctx ExpandContext) string {
	path = strings.ReplaceAll(path, "{home}", ctx.Home)
	path = strings.ReplaceAll(path, "{pwd}", ctx.ProjectDir)
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
