// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shayne/yargs"

	"github.com/darpdev/darp/internal/config"
	"github.com/darpdev/darp/internal/engine"
)

func main() {
	if err := runCLI(); err != nil {
		reportCLIError(err)
		os.Exit(1)
	}
}

type usageError struct {
	message string
}

func (e usageError) Error() string {
	return e.message
}

type silentError struct {
	err error
}

func (e silentError) Error() string {
	return e.err.Error()
}

func (e silentError) Unwrap() error {
	return e.err
}

func reportCLIError(err error) {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(os.Stderr, usageErr.message)
		return
	}
	var quietErr silentError
	if errors.As(err, &quietErr) {
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

func newUsageError(message string) error {
	return usageError{message: message}
}

func newSilentError(err error) error {
	if err == nil {
		return nil
	}
	return silentError{err: err}
}

var (
	version = "dev"
	commit  = ""
)

func runCLI() error {
	args := normalizeArgs(os.Args[1:])
	handlers := map[string]yargs.SubcommandHandler{
		"install":   handleInstallCommand,
		"uninstall": handleUninstallCommand,
		"config":    handleConfigCommand,
		"deploy":    handleDeployCommand,
		"urls":      handleURLsCommand,
		"mkdir":     handleMkdirCommand,
		"shell":     handleShellCommand,
		"serve":     handleServeCommand,
		"version":   handleVersionCommand,
	}
	if err := yargs.RunSubcommands(context.Background(), args, helpConfig, struct{}{}, handlers); err != nil {
		if errors.Is(err, yargs.ErrShown) {
			return nil
		}
		return err
	}
	return nil
}

var helpConfig = yargs.HelpConfig{
	Command: yargs.CommandInfo{
		Name:        "darp",
		Description: "Local .test domains for container development",
		Examples: []string{
			"darp --help",
			"darp install",
			"darp config add domain ~/projects",
			"darp deploy",
			"darp deploy --watch",
			"darp urls",
			"darp shell",
			"darp serve -e rails",
			"darp mkdir hello-world",
		},
	},
	SubCommands: map[string]yargs.SubCommandInfo{
		"install": {
			Name:        "install",
			Description: "Set up the system resolver and darp's working directory",
		},
		"uninstall": {
			Name:        "uninstall",
			Description: "Stop darp containers and remove the system resolver entry",
		},
		"config": {
			Name:        "config",
			Description: "Show or update the darp configuration",
			Usage:       "set|add|rm ...",
			Examples: []string{
				"darp config",
				"darp config set engine docker",
				"darp config set base-port 50100",
				"darp config set env serve-command rails 'bin/rails s -b 0.0.0.0'",
				"darp config add domain ~/projects",
				"darp config add env portmap rails 5432 5432",
				"darp config rm domain projects",
			},
		},
		"deploy": {
			Name:        "deploy",
			Description: "Reconcile routing for every registered domain",
			Usage:       "[--watch]",
		},
		"urls": {
			Name:        "urls",
			Description: "List the URLs and ports of deployed projects",
		},
		"mkdir": {
			Name:        "mkdir",
			Description: "Create a routable project directory",
			Usage:       "<name> | <domain> <project>",
		},
		"shell": {
			Name:        "shell",
			Description: "Open a shell in a container for the current project",
			Usage:       "[-e <env>] [<image>]",
		},
		"serve": {
			Name:        "serve",
			Description: "Run the configured serve command for the current project",
			Usage:       "[-e <env>] [<image>]",
		},
		"version": {
			Name:        "version",
			Description: "Show CLI version",
		},
	},
}

func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	if args[0] == "--version" {
		return append([]string{"version"}, args[1:]...)
	}
	if args[0] == "help" {
		return rewriteHelpArgs(args[1:])
	}
	return args
}

func rewriteHelpArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"--help"}
	}
	if isHelpFlag(args[0]) {
		return []string{"--help"}
	}
	if isKnownCommand(args[0]) {
		return []string{args[0], "--help"}
	}
	return []string{"--help"}
}

func isKnownCommand(value string) bool {
	switch value {
	case "install", "uninstall", "config", "deploy", "urls", "mkdir", "shell", "serve", "version":
		return true
	default:
		return false
	}
}

func isHelpFlag(value string) bool {
	switch strings.TrimSpace(value) {
	case "-h", "--help":
		return true
	default:
		return false
	}
}

func handleVersionCommand(_ context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, versionString())
	return nil
}

func versionString() string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		trimmed = "dev"
	}
	if strings.TrimSpace(commit) == "" {
		return trimmed
	}
	return fmt.Sprintf("%s (%s)", trimmed, strings.TrimSpace(commit))
}

// workspace bundles the on-disk state every subcommand starts from.
type workspace struct {
	paths config.Paths
	cfg   config.Config
}

func loadWorkspace() (workspace, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return workspace{}, fmt.Errorf("failed to locate darp root: %w", err)
	}
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return workspace{}, fmt.Errorf("failed to load config: %w", err)
	}
	return workspace{paths: paths, cfg: cfg}, nil
}

func (w *workspace) save() error {
	if err := config.Save(w.paths.ConfigPath, w.cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote config to %s\n", w.paths.ConfigPath)
	return nil
}

// engineFor builds the engine adapter from the configured kind. An
// unset engine is a setup problem the user has to fix first.
func engineFor(cfg *config.Config) (*engine.Engine, error) {
	if strings.TrimSpace(cfg.Engine) == "" {
		return nil, newUsageError("no container engine configured; run 'darp install' or 'darp config set engine <docker|podman>'")
	}
	kind, err := engine.ParseKind(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return engine.New(kind, cfg.PodmanMachine), nil
}
