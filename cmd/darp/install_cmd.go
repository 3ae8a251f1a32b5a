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

	"github.com/charmbracelet/huh"
	"github.com/shayne/yargs"
	"golang.org/x/term"

	"github.com/darpdev/darp/internal/dnsconf"
	"github.com/darpdev/darp/internal/engine"
	"github.com/darpdev/darp/internal/hostcmd"
	"github.com/darpdev/darp/internal/hostfile"
	"github.com/darpdev/darp/internal/support"
)

const resolverFile = "/etc/resolver/test"

// defaultNginxConf is mounted into project containers so an in-container
// nginx picks up the shared vhost file.
const defaultNginxConf = `worker_processes 1;

events {
    worker_connections 1024;
}

http {
    include /etc/nginx/http.d/*.conf;
}
`

// nginxConfFor prefixes the template with the file-watch behavior of
// the configured engine so dev servers in the container know which
// mode to use.
func nginxConfFor(kind engine.Kind) string {
	comment := "# docker bind mounts deliver inotify events; native file watching works.\n"
	if kind.FileWatchMode() == "poll" {
		comment = "# podman bind mounts do not deliver inotify events; use polling-based\n" +
			"# file watching in dev servers (e.g. CHOKIDAR_USEPOLLING=1).\n"
	}
	return comment + defaultNginxConf
}

func handleInstallCommand(_ context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
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
	if err := ws.paths.EnsureRoot(); err != nil {
		return fmt.Errorf("failed to create %s: %w", ws.paths.Root, err)
	}

	if ws.cfg.Engine == "" {
		choice, err := promptEngine()
		if err != nil {
			return err
		}
		if err := ws.cfg.SetEngine(choice); err != nil {
			return err
		}
		if err := ws.save(); err != nil {
			return err
		}
	}

	kind, err := engine.ParseKind(ws.cfg.Engine)
	if err != nil {
		return err
	}
	sup, err := support.Load(ws.paths.SupportPath)
	if err != nil {
		return err
	}

	if kind.NeedsPrivilegedPorts(sup.DNS.Port) {
		ok, err := confirmInstallStep(
			"Privileged port",
			fmt.Sprintf("podman needs net.ipv4.ip_unprivileged_port_start lowered to bind port %d. Continue anyway?", sup.DNS.Port),
		)
		if err != nil {
			return err
		}
		if !ok {
			return newUsageError("installation cancelled")
		}
	}

	// Wildcard .test resolution: the OS resolver points at the dnsmasq
	// container, which answers for every .test name.
	ok, err := confirmInstallStep(
		"System resolver",
		fmt.Sprintf("darp needs sudo to write %s. Continue?", resolverFile),
	)
	if err != nil {
		return err
	}
	if !ok {
		return newUsageError("installation cancelled")
	}
	if err := hostcmd.RunOutput("mkdir", "-p", filepath.Dir(resolverFile)); err != nil {
		return err
	}
	if err := hostcmd.RunInput([]byte("nameserver 127.0.0.1\n"), "tee", resolverFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s created\n", resolverFile)

	testConf := filepath.Join(ws.paths.DNSMasqDir, "test.conf")
	if err := os.WriteFile(testConf, []byte(dnsconf.Wildcard), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s created\n", testConf)

	if _, err := os.Stat(ws.paths.NginxConfPath); os.IsNotExist(err) {
		if err := os.WriteFile(ws.paths.NginxConfPath, []byte(nginxConfFor(kind)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s created\n", ws.paths.NginxConfPath)
	}

	// Writing the scaffold back fills in any defaulted values so the
	// file documents what will run.
	if err := support.Save(ws.paths.SupportPath, sup); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "installation complete; add a domain and run 'darp deploy'")
	return nil
}

// confirmInstallStep asks before a step that changes system state.
// Non-interactive runs proceed, matching the original installer.
func confirmInstallStep(title, description string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return true, nil
	}
	confirmed := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, newSilentError(err)
	}
	return confirmed, nil
}

func promptEngine() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return "", newUsageError("no container engine configured; run 'darp config set engine <docker|podman>'")
	}
	choice := "docker"
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Container engine").
			Description("Which engine should darp use to run containers?").
			Options(
				huh.NewOption("Docker", "docker"),
				huh.NewOption("Podman", "podman"),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", newSilentError(err)
	}
	return choice, nil
}

func handleUninstallCommand(ctx context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
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

	// Container cleanup is best effort; a stopped engine should not
	// block removing the host integration.
	if eng, err := engineFor(&ws.cfg); err == nil {
		if names, err := eng.RunningProjectContainers(ctx); err == nil {
			for _, name := range names {
				if err := eng.StopContainer(ctx, name); err != nil {
					fmt.Fprintf(os.Stderr, "failed to stop %s: %v\n", name, err)
				}
			}
		}
		sup, err := support.Load(ws.paths.SupportPath)
		if err == nil {
			for _, name := range []string{sup.Proxy.Container, sup.DNS.Container} {
				if err := eng.StopContainer(ctx, name); err != nil {
					fmt.Fprintf(os.Stderr, "failed to stop %s: %v\n", name, err)
				}
			}
		}
	}

	if err := hostfile.Sync(nil); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clean /etc/hosts: %v\n", err)
	}
	if err := hostcmd.RunOutput("rm", "-f", resolverFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s removed\n", resolverFile)
	fmt.Fprintf(os.Stdout, "uninstall complete; %s was left on disk\n", ws.paths.Root)
	return nil
}
