// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shayne/yargs"

	"github.com/darpdev/darp/internal/config"
	"github.com/darpdev/darp/internal/vhost"
)

type mkdirArgs struct {
	First  string `pos:"0" help:"project name, or domain name when a project follows"`
	Second string `pos:"1?" help:"project name"`
}

func handleMkdirCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, struct{}, mkdirArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	var domain config.Domain
	var location, project string
	if result.Args.Second != "" {
		d, key, ok := ws.cfg.DomainByName(result.Args.First)
		if !ok {
			return newUsageError(fmt.Sprintf("domain %q is not registered", result.Args.First))
		}
		domain, location, project = d, key, result.Args.Second
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		key := cwd
		if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
			key = resolved
		}
		d, ok := ws.cfg.Domains[key]
		if !ok {
			return newUsageError("current directory is not a registered domain; use 'darp mkdir <domain> <project>'")
		}
		domain, location, project = d, key, result.Args.First
	}

	// The directory name becomes a hostname label, so reject anything
	// that could not be routed.
	host, err := vhost.Hostname(project, domain.Name)
	if err != nil {
		return newUsageError(fmt.Sprintf("%q is not a valid project name: %v", project, err))
	}

	dir := filepath.Join(location, project)
	if _, err := os.Stat(dir); err == nil {
		return newUsageError(fmt.Sprintf("%s already exists", dir))
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "created %s\nrun 'darp deploy' to route http://%s\n", dir, host)
	return nil
}
