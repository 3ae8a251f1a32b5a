// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shayne/yargs"

	"github.com/darpdev/darp/internal/deploy"
	"github.com/darpdev/darp/internal/support"
)

type deployFlags struct {
	Watch bool `flag:"watch" short:"w" help:"redeploy whenever a domain directory changes"`
}

const watchDebounce = 500 * time.Millisecond

func handleDeployCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, deployFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}

	if result.SubCommandFlags.Watch {
		return watchAndDeploy(ctx)
	}
	return runDeploy(ctx)
}

func runDeploy(ctx context.Context) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	if len(ws.cfg.Domains) == 0 {
		return newUsageError("no domains configured; run 'darp config add domain <location>' first")
	}
	if err := ws.paths.EnsureRoot(); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", ws.paths.Root, err)
	}

	eng, err := engineFor(&ws.cfg)
	if err != nil {
		return err
	}
	if err := eng.Ready(ctx); err != nil {
		return err
	}

	sup, err := support.Load(ws.paths.SupportPath)
	if err != nil {
		return err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	d := deploy.New(ws.paths, sup, eng, home)
	report, err := d.Run(ctx, &ws.cfg)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	if report.Failed() {
		return newSilentError(errors.New("deploy finished with errors"))
	}
	return nil
}

func printReport(out io.Writer, report deploy.Report) {
	styler := newOutputStyler(out)
	for _, d := range report.Domains {
		fmt.Fprintf(out, "%s (%s)\n", styler.domain(d.Name), styler.muted(d.Location))
		if d.Err != nil {
			fmt.Fprintf(out, "  %s %v\n", styler.fail("error:"), d.Err)
			continue
		}
		for _, p := range d.Projects {
			if p.Err != nil {
				fmt.Fprintf(out, "  %s: %s %v\n", p.Project, styler.fail("error:"), p.Err)
				continue
			}
			url := fmt.Sprintf("http://%s", p.Host)
			fmt.Fprintf(out, "  %s %s\n", styler.link(url), styler.muted(fmt.Sprintf("(%d)", p.Port)))
		}
	}
	for _, key := range report.Released {
		fmt.Fprintf(out, "released %s\n", styler.muted(key))
	}
	for _, err := range []error{report.ProxyErr, report.DNSErr, report.HostsErr} {
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", styler.fail("error:"), err)
		}
	}
	if !report.VhostChanged && !report.DNSChanged {
		fmt.Fprintln(out, styler.ok("routing unchanged"))
	}
}

// watchAndDeploy reruns the reconciler whenever a domain directory
// changes. Events are debounced so a burst of filesystem activity
// produces one deploy.
func watchAndDeploy(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runDeploy(ctx); err != nil {
		reportCLIError(err)
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	for location := range ws.cfg.Domains {
		if err := watcher.Add(location); err != nil {
			fmt.Fprintf(os.Stderr, "cannot watch %s: %v\n", location, err)
		}
	}
	fmt.Fprintf(os.Stdout, "watching %d domain(s) for changes, press ctrl-c to stop\n", len(ws.cfg.Domains))

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-timerC:
			timer = nil
			timerC = nil
			if err := runDeploy(ctx); err != nil {
				reportCLIError(err)
			}
		}
	}
}
