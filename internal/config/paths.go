// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
)

// Paths collects every file darp reads or writes under its root
// directory. The root defaults to ~/.darp and can be redirected with
// the DARP_ROOT environment variable.
type Paths struct {
	Root string

	ConfigPath  string // config.json
	PortmapPath string // portmap.json

	DNSMasqDir         string // dnsmasq.d/, mounted into the dns container
	DNSMasqConfPath    string // dnsmasq.d/darp.conf
	NginxConfPath      string // nginx.conf, mounted into the proxy container
	VhostContainerConf string // vhost_container.conf, per-project server blocks
	HostsContainerPath string // hosts_container, hosts-format names for the proxy
	SupportPath        string // support.toml, support container settings
}

// DefaultPaths derives the path set from DARP_ROOT or the home
// directory.
func DefaultPaths() (Paths, error) {
	root := os.Getenv("DARP_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		root = filepath.Join(home, ".darp")
	}
	return PathsAt(root), nil
}

// PathsAt derives the path set from an explicit root directory.
func PathsAt(root string) Paths {
	return Paths{
		Root:               root,
		ConfigPath:         filepath.Join(root, "config.json"),
		PortmapPath:        filepath.Join(root, "portmap.json"),
		DNSMasqDir:         filepath.Join(root, "dnsmasq.d"),
		DNSMasqConfPath:    filepath.Join(root, "dnsmasq.d", "darp.conf"),
		NginxConfPath:      filepath.Join(root, "nginx.conf"),
		VhostContainerConf: filepath.Join(root, "vhost_container.conf"),
		HostsContainerPath: filepath.Join(root, "hosts_container"),
		SupportPath:        filepath.Join(root, "support.toml"),
	}
}

// EnsureRoot creates the root layout if it does not exist yet.
func (p Paths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(p.DNSMasqDir, 0o755)
}
