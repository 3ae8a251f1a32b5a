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
	"github.com/darpdev/darp/internal/engine"
	"github.com/darpdev/darp/internal/ports"
)

type runFlags struct {
	Environment string `flag:"environment" short:"e" help:"resolve settings against this environment"`
}

type runArgs struct {
	Image string `pos:"0?" help:"container image (optional if default_container_image is configured)"`
}

const innerPrelude = `if command -v nginx >/dev/null 2>&1; then
    echo "Starting nginx..."; nginx;
else
    echo "nginx not found, skipping";
fi;
`

func shellScript(shellCommand string) string {
	return innerPrelude + `echo "";
echo "To leave this shell and stop the container, type: $(printf '\033[33m')exit$(printf '\033[0m')"
echo "";
cd /app; exec ` + shellCommand
}

func serveScript(serveCommand string) string {
	return innerPrelude + "cd /app; " + serveCommand
}

func handleShellCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, runFlags, runArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	return runProject(ctx, result.SubCommandFlags, result.Args, true)
}

func handleServeCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, runFlags, runArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	return runProject(ctx, result.SubCommandFlags, result.Args, false)
}

// located identifies the project the current directory belongs to.
type located struct {
	domain     config.Domain
	domainKey  string
	project    string
	projectDir string
}

func locateProject(cfg *config.Config) (located, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return located{}, err
	}
	parent := filepath.Dir(cwd)
	parentKey := parent
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		parentKey = resolved
	}
	domain, ok := cfg.Domains[parentKey]
	if !ok {
		return located{}, newUsageError(fmt.Sprintf(
			"domain location %q does not exist in darp's domain configuration", parentKey))
	}
	return located{
		domain:     domain,
		domainKey:  parentKey,
		project:    filepath.Base(cwd),
		projectDir: cwd,
	}, nil
}

func runProject(ctx context.Context, flags runFlags, args runArgs, shell bool) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	loc, err := locateProject(&ws.cfg)
	if err != nil {
		return err
	}

	eng, err := engineFor(&ws.cfg)
	if err != nil {
		return err
	}
	if err := eng.Ready(ctx); err != nil {
		return err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	settings, err := ws.cfg.Resolve(loc.domainKey, loc.project, config.Request{
		Image:        args.Image,
		RequireImage: true,
		Environment:  flags.Environment,
		Context:      config.ExpandContext{Home: home, ProjectDir: loc.projectDir},
	})
	if errors.Is(err, config.ErrMissingImage) {
		return newUsageError(fmt.Sprintf(
			"no container image configured for %s/%s; pass an image or set one with\n"+
				"  darp config set svc default-container-image %s %s <image>\n"+
				"  darp config set env default-container-image <env> <image>",
			loc.domain.Name, loc.project, loc.domain.Name, loc.project))
	}
	if err != nil {
		return err
	}

	command := []string{"sh", "-c", shellScript(settings.ShellCommand)}
	if !shell {
		if settings.ServeCommand == "" {
			return newUsageError(fmt.Sprintf(
				"no serve_command configured for %s/%s; set one with\n"+
					"  darp config set svc serve-command %s %s <cmd>\n"+
					"  darp config set env serve-command <env> <cmd>",
				loc.domain.Name, loc.project, loc.domain.Name, loc.project))
		}
		command = []string{"sh", "-c", serveScript(settings.ServeCommand)}
	}

	portmap, err := ports.Load(ws.paths.PortmapPath)
	if err != nil {
		return err
	}
	port, ok := portmap.PortFor(ports.Key(loc.domain.Name, loc.project))
	if !ok {
		return newUsageError(fmt.Sprintf("port not yet assigned to %s, run 'darp deploy'", loc.project))
	}

	mounts := make([]engine.Mount, 0, len(settings.Volumes))
	for _, v := range settings.Volumes {
		if _, err := os.Stat(v.Host); err != nil {
			return newUsageError(fmt.Sprintf("volume %s does not appear to exist", v.Host))
		}
		mounts = append(mounts, engine.Mount{Host: v.Host, Container: v.Container})
	}

	spec := engine.ProjectRunSpec{
		Name:         engine.ProjectContainerName(loc.domain.Name, loc.project),
		Interactive:  shell,
		ProjectDir:   loc.projectDir,
		HostsPath:    ws.paths.HostsContainerPath,
		NginxConf:    ws.paths.NginxConfPath,
		VhostPath:    ws.paths.VhostContainerConf,
		Mounts:       mounts,
		PortMappings: settings.HostPortMappings,
		Platform:     settings.Platform,
		ProxyPort:    port,
		Image:        settings.Image,
		Command:      command,
	}

	if !shell && eng.Kind.FileWatchMode() == "poll" {
		fmt.Fprintln(os.Stderr, "note: podman file events do not cross the VM boundary; enable polling in your dev server (e.g. CHOKIDAR_USEPOLLING=1)")
	}

	cmd := eng.InteractiveCommand(eng.Kind.ProjectRunArgs(spec)...)
	if err := cmd.Run(); err != nil {
		// The container's own output already explained the failure.
		return newSilentError(err)
	}
	return nil
}
