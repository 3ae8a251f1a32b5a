// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploy reconciles the configured domains with the routing
// artifacts and support containers. A failing domain or project is
// reported and skipped; the rest of the fleet still converges.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/darpdev/darp/internal/config"
	"github.com/darpdev/darp/internal/dnsconf"
	"github.com/darpdev/darp/internal/engine"
	"github.com/darpdev/darp/internal/hostfile"
	"github.com/darpdev/darp/internal/ports"
	"github.com/darpdev/darp/internal/scan"
	"github.com/darpdev/darp/internal/support"
	"github.com/darpdev/darp/internal/vhost"
)

// ContainerSteps is the slice of the engine the reconciler drives.
type ContainerSteps interface {
	StartProxy(ctx context.Context, spec engine.ProxySpec) error
	CycleProxy(ctx context.Context, spec engine.ProxySpec) error
	StartDNS(ctx context.Context, spec engine.DNSSpec) error
	CycleDNS(ctx context.Context, spec engine.DNSSpec) error
}

// ProjectStatus is the outcome for one project of a domain.
type ProjectStatus struct {
	Project string
	Host    string
	Port    int
	Err     error
}

// DomainStatus is the outcome for one domain. Err is set when the
// whole domain failed (unreadable location); per-project errors live
// in Projects.
type DomainStatus struct {
	Name     string
	Location string
	Err      error
	Projects []ProjectStatus
}

// Report sums up one reconciliation pass.
type Report struct {
	Domains []DomainStatus

	VhostChanged bool
	DNSChanged   bool
	HostsSynced  bool
	Released     []string // assignment keys freed for vanished projects

	// Container and hosts steps that failed after the artifacts were
	// written. The assignments on disk stay valid; a retry restarts.
	ProxyErr error
	DNSErr   error
	HostsErr error
}

// Failed reports whether any domain, project, or support step failed.
func (r *Report) Failed() bool {
	if r.ProxyErr != nil || r.DNSErr != nil || r.HostsErr != nil {
		return true
	}
	for _, d := range r.Domains {
		if d.Err != nil {
			return true
		}
		for _, p := range d.Projects {
			if p.Err != nil {
				return true
			}
		}
	}
	return false
}

// Deployer holds everything one reconciliation pass needs.
type Deployer struct {
	Paths   config.Paths
	Support support.Config
	Kind    engine.Kind
	Steps   ContainerSteps
	Home    string

	// SyncHosts is swapped out in tests; the default edits /etc/hosts
	// with sudo.
	SyncHosts func(entries []string) error
}

// New builds a deployer around a live engine.
func New(paths config.Paths, sup support.Config, eng *engine.Engine, home string) *Deployer {
	return &Deployer{
		Paths:     paths,
		Support:   sup,
		Kind:      eng.Kind,
		Steps:     eng,
		Home:      home,
		SyncHosts: hostfile.Sync,
	}
}

// Run performs one pass: scan, allocate, render, diff, and restart
// only what changed. Only state-store problems are returned as errors;
// everything else lands in the report.
func (d *Deployer) Run(ctx context.Context, cfg *config.Config) (Report, error) {
	var report Report

	portmap, err := ports.Load(d.Paths.PortmapPath)
	if err != nil {
		return report, err
	}
	before := clonePorts(portmap.Ports)

	type domainEntry struct {
		key    string
		domain config.Domain
	}
	entries := make([]domainEntry, 0, len(cfg.Domains))
	for key, domain := range cfg.Domains {
		entries = append(entries, domainEntry{key: key, domain: domain})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].domain.Name < entries[j].domain.Name })

	var units []vhost.Unit
	var hosts []string
	var domainNames []string
	basePort := cfg.EffectiveBasePort()

	for _, entry := range entries {
		status := DomainStatus{Name: entry.domain.Name, Location: entry.key}
		domainNames = append(domainNames, entry.domain.Name)

		projects, err := scan.Projects(entry.key)
		if err != nil {
			status.Err = err
			report.Domains = append(report.Domains, status)
			continue
		}

		seen := make(map[string]bool, len(projects))
		for _, project := range projects {
			seen[project] = true
			ps := ProjectStatus{Project: project}

			host, err := vhost.Hostname(project, entry.domain.Name)
			if err != nil {
				ps.Err = err
				status.Projects = append(status.Projects, ps)
				continue
			}
			_, err = cfg.Resolve(entry.key, project, config.Request{
				Context: config.ExpandContext{
					Home:       d.Home,
					ProjectDir: entry.key + string(os.PathSeparator) + project,
				},
			})
			if err != nil {
				ps.Err = err
				status.Projects = append(status.Projects, ps)
				continue
			}

			port := portmap.Assign(ports.Key(entry.domain.Name, project), basePort)
			ps.Host = host
			ps.Port = port
			status.Projects = append(status.Projects, ps)

			units = append(units, vhost.Unit{Host: host, Port: port})
			hosts = append(hosts, host)
		}

		// Free assignments for projects that no longer exist. Only a
		// clean scan proves a project is really gone.
		prefix := entry.domain.Name + "/"
		for key := range portmap.Ports {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if !seen[strings.TrimPrefix(key, prefix)] {
				portmap.Release(key)
				report.Released = append(report.Released, key)
			}
		}

		report.Domains = append(report.Domains, status)
	}
	sort.Strings(report.Released)

	if !portsEqual(before, portmap.Ports) {
		if err := ports.Save(d.Paths.PortmapPath, portmap); err != nil {
			return report, err
		}
	}

	vhostData := vhost.Render(units, d.Kind.HostGateway())
	hostsData := dnsconf.RenderHostsContainer(hosts)
	dnsData := dnsconf.RenderDNSMasq(domainNames, cfg.URLsInHosts)

	vhostChanged, err := writeIfChanged(d.Paths.VhostContainerConf, vhostData)
	if err != nil {
		return report, err
	}
	hostsChanged, err := writeIfChanged(d.Paths.HostsContainerPath, hostsData)
	if err != nil {
		return report, err
	}
	dnsChanged, err := writeIfChanged(d.Paths.DNSMasqConfPath, dnsData)
	if err != nil {
		return report, err
	}
	report.VhostChanged = vhostChanged || hostsChanged
	report.DNSChanged = dnsChanged

	proxySpec := engine.ProxySpec{
		Container: d.Support.Proxy.Container,
		Image:     d.Support.Proxy.Image,
		HTTPPort:  d.Support.Proxy.HTTPPort,
		VhostPath: d.Paths.VhostContainerConf,
	}
	dnsSpec := engine.DNSSpec{
		Container: d.Support.DNS.Container,
		Image:     d.Support.DNS.Image,
		Port:      d.Support.DNS.Port,
		ConfDir:   d.Paths.DNSMasqDir,
	}

	// A failed container step is reported, not fatal: the artifacts are
	// already on disk, so a retry only has to restart containers.
	if report.VhostChanged {
		err = d.Steps.CycleProxy(ctx, proxySpec)
	} else {
		err = d.Steps.StartProxy(ctx, proxySpec)
	}
	if err != nil {
		report.ProxyErr = fmt.Errorf("reverse proxy: %w", err)
	}

	if report.DNSChanged {
		err = d.Steps.CycleDNS(ctx, dnsSpec)
	} else {
		err = d.Steps.StartDNS(ctx, dnsSpec)
	}
	if err != nil {
		report.DNSErr = fmt.Errorf("dns forwarder: %w", err)
	}

	// Always sync: with hosts mode off this clears any leftover block,
	// which is a no-op write when none exists.
	entriesHosts := dnsconf.SystemHostsEntries(hosts, cfg.URLsInHosts)
	if err := d.SyncHosts(entriesHosts); err != nil {
		report.HostsErr = fmt.Errorf("hosts file: %w", err)
	} else {
		report.HostsSynced = cfg.URLsInHosts
	}

	return report, nil
}

func writeIfChanged(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func clonePorts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func portsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
