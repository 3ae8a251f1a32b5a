// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/darpdev/darp/internal/config"
)

func handleConfigCommand(_ context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		printConfigHelp()
		return nil
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return showConfig(ws.cfg)
	}

	switch args[0] {
	case "set":
		return handleConfigSet(&ws, args[1:])
	case "add":
		return handleConfigAdd(&ws, args[1:])
	case "rm":
		return handleConfigRm(&ws, args[1:])
	default:
		return newUsageError(fmt.Sprintf("unknown config verb %q (expected set, add, or rm)", args[0]))
	}
}

func printConfigHelp() {
	fmt.Fprint(os.Stdout, `Show or update the darp configuration

Usage:
  darp config
  darp config set engine <docker|podman>
  darp config set podman-machine <name>
  darp config set urls-in-hosts <true|false>
  darp config set base-port <port>
  darp config set domain default-env <domain> <env>
  darp config set env <field> <env> <value>
  darp config set svc <field> <domain> <service> <value>
  darp config set svc environment <domain> <service> <env>
  darp config add domain <location>
  darp config add env portmap <env> <host-port> <container-port>
  darp config add env volume <env> <container-dir> <host-dir>
  darp config add svc portmap <domain> <service> <host-port> <container-port>
  darp config add svc volume <domain> <service> <container-dir> <host-dir>
  darp config rm domain <name>
  darp config rm domain default-env <domain>
  darp config rm podman-machine
  darp config rm env <field|portmap|volume> ...
  darp config rm svc <field|environment|portmap|volume> ...

Fields: serve-command, shell-command, image-repository, platform,
default-container-image
`)
}

func showConfig(cfg config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func handleConfigSet(ws *workspace, args []string) error {
	if len(args) == 0 {
		return newUsageError("usage: darp config set <engine|podman-machine|urls-in-hosts|base-port|domain|env|svc> ...")
	}
	switch args[0] {
	case "engine":
		if len(args) != 2 {
			return newUsageError("usage: darp config set engine <docker|podman>")
		}
		if err := ws.cfg.SetEngine(args[1]); err != nil {
			return err
		}
	case "podman-machine":
		if len(args) != 2 {
			return newUsageError("usage: darp config set podman-machine <name>")
		}
		ws.cfg.PodmanMachine = args[1]
	case "urls-in-hosts":
		if len(args) != 2 {
			return newUsageError("usage: darp config set urls-in-hosts <true|false>")
		}
		value, err := config.ParseBool(args[1])
		if err != nil {
			return newUsageError(err.Error())
		}
		ws.cfg.URLsInHosts = value
	case "base-port":
		if len(args) != 2 {
			return newUsageError("usage: darp config set base-port <port>")
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return newUsageError(fmt.Sprintf("invalid port %q", args[1]))
		}
		if err := ws.cfg.SetBasePort(port); err != nil {
			return err
		}
	case "domain":
		if len(args) != 4 || args[1] != "default-env" {
			return newUsageError("usage: darp config set domain default-env <domain> <env>")
		}
		if err := ws.cfg.SetDomainDefaultEnvironment(args[2], args[3]); err != nil {
			return err
		}
	case "env":
		if len(args) != 4 {
			return newUsageError("usage: darp config set env <field> <env> <value>")
		}
		field, err := parseField(args[1])
		if err != nil {
			return err
		}
		if err := ws.cfg.SetEnvironmentField(args[2], field, args[3]); err != nil {
			return err
		}
	case "svc":
		if len(args) < 2 {
			return newUsageError("usage: darp config set svc <field|environment> <domain> <service> <value>")
		}
		if args[1] == "environment" {
			if len(args) != 5 {
				return newUsageError("usage: darp config set svc environment <domain> <service> <env>")
			}
			if err := ws.cfg.SetServiceEnvironment(args[2], args[3], args[4]); err != nil {
				return err
			}
			break
		}
		if len(args) != 5 {
			return newUsageError("usage: darp config set svc <field> <domain> <service> <value>")
		}
		field, err := parseField(args[1])
		if err != nil {
			return err
		}
		if err := ws.cfg.SetServiceField(args[2], args[3], field, args[4]); err != nil {
			return err
		}
	default:
		return newUsageError(fmt.Sprintf("unknown config set target %q", args[0]))
	}
	return ws.save()
}

func handleConfigAdd(ws *workspace, args []string) error {
	if len(args) == 0 {
		return newUsageError("usage: darp config add <domain|env|svc> ...")
	}
	switch args[0] {
	case "domain":
		if len(args) != 2 {
			return newUsageError("usage: darp config add domain <location>")
		}
		name, key, err := ws.cfg.AddDomain(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "added domain %s (%s)\n", name, key)
	case "env":
		if len(args) < 2 {
			return newUsageError("usage: darp config add env <portmap|volume> ...")
		}
		switch args[1] {
		case "portmap":
			if len(args) != 5 {
				return newUsageError("usage: darp config add env portmap <env> <host-port> <container-port>")
			}
			if err := ws.cfg.AddEnvironmentPortMapping(args[2], args[3], args[4]); err != nil {
				return err
			}
		case "volume":
			if len(args) != 5 {
				return newUsageError("usage: darp config add env volume <env> <container-dir> <host-dir>")
			}
			if err := ws.cfg.AddEnvironmentVolume(args[2], args[3], args[4]); err != nil {
				return err
			}
		default:
			return newUsageError(fmt.Sprintf("unknown config add env target %q", args[1]))
		}
	case "svc":
		if len(args) < 2 {
			return newUsageError("usage: darp config add svc <portmap|volume> ...")
		}
		switch args[1] {
		case "portmap":
			if len(args) != 6 {
				return newUsageError("usage: darp config add svc portmap <domain> <service> <host-port> <container-port>")
			}
			if err := ws.cfg.AddServicePortMapping(args[2], args[3], args[4], args[5]); err != nil {
				return err
			}
		case "volume":
			if len(args) != 6 {
				return newUsageError("usage: darp config add svc volume <domain> <service> <container-dir> <host-dir>")
			}
			if err := ws.cfg.AddServiceVolume(args[2], args[3], args[4], args[5]); err != nil {
				return err
			}
		default:
			return newUsageError(fmt.Sprintf("unknown config add svc target %q", args[1]))
		}
	default:
		return newUsageError(fmt.Sprintf("unknown config add target %q", args[0]))
	}
	return ws.save()
}

func handleConfigRm(ws *workspace, args []string) error {
	if len(args) == 0 {
		return newUsageError("usage: darp config rm <domain|podman-machine|env|svc> ...")
	}
	switch args[0] {
	case "domain":
		if len(args) == 3 && args[1] == "default-env" {
			if err := ws.cfg.RemoveDomainDefaultEnvironment(args[2]); err != nil {
				return err
			}
			break
		}
		if len(args) != 2 {
			return newUsageError("usage: darp config rm domain <name>")
		}
		if err := ws.cfg.RemoveDomain(args[1]); err != nil {
			return err
		}
	case "podman-machine":
		ws.cfg.PodmanMachine = ""
	case "env":
		if len(args) < 2 {
			return newUsageError("usage: darp config rm env <field|portmap|volume> ...")
		}
		switch args[1] {
		case "portmap":
			if len(args) != 4 {
				return newUsageError("usage: darp config rm env portmap <env> <host-port>")
			}
			if err := ws.cfg.RemoveEnvironmentPortMapping(args[2], args[3]); err != nil {
				return err
			}
		case "volume":
			if len(args) != 5 {
				return newUsageError("usage: darp config rm env volume <env> <container-dir> <host-dir>")
			}
			if err := ws.cfg.RemoveEnvironmentVolume(args[2], args[3], args[4]); err != nil {
				return err
			}
		default:
			if len(args) != 3 {
				return newUsageError("usage: darp config rm env <field> <env>")
			}
			field, err := parseField(args[1])
			if err != nil {
				return err
			}
			if err := ws.cfg.ClearEnvironmentField(args[2], field); err != nil {
				return err
			}
		}
	case "svc":
		if len(args) < 2 {
			return newUsageError("usage: darp config rm svc <field|environment|portmap|volume> ...")
		}
		switch args[1] {
		case "environment":
			if len(args) != 4 {
				return newUsageError("usage: darp config rm svc environment <domain> <service>")
			}
			if err := ws.cfg.RemoveServiceEnvironment(args[2], args[3]); err != nil {
				return err
			}
		case "portmap":
			if len(args) != 5 {
				return newUsageError("usage: darp config rm svc portmap <domain> <service> <host-port>")
			}
			if err := ws.cfg.RemoveServicePortMapping(args[2], args[3], args[4]); err != nil {
				return err
			}
		case "volume":
			if len(args) != 6 {
				return newUsageError("usage: darp config rm svc volume <domain> <service> <container-dir> <host-dir>")
			}
			if err := ws.cfg.RemoveServiceVolume(args[2], args[3], args[4], args[5]); err != nil {
				return err
			}
		default:
			if len(args) != 4 {
				return newUsageError("usage: darp config rm svc <field> <domain> <service>")
			}
			field, err := parseField(args[1])
			if err != nil {
				return err
			}
			if err := ws.cfg.ClearServiceField(args[2], args[3], field); err != nil {
				return err
			}
		}
	default:
		return newUsageError(fmt.Sprintf("unknown config rm target %q", args[0]))
	}
	return ws.save()
}

func parseField(name string) (config.Field, error) {
	switch name {
	case "serve-command":
		return config.FieldServeCommand, nil
	case "shell-command":
		return config.FieldShellCommand, nil
	case "image-repository":
		return config.FieldImageRepository, nil
	case "platform":
		return config.FieldPlatform, nil
	case "default-container-image":
		return config.FieldDefaultContainerImage, nil
	default:
		return "", newUsageError(fmt.Sprintf("unknown field %q (expected serve-command, shell-command, image-repository, platform, or default-container-image)", name))
	}
}
