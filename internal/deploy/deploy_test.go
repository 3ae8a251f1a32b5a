// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darpdev/darp/internal/config"
	"github.com/darpdev/darp/internal/engine"
	"github.com/darpdev/darp/internal/ports"
	"github.com/darpdev/darp/internal/support"
)

type fakeSteps struct {
	proxyStarts int
	proxyCycles int
	dnsStarts   int
	dnsCycles   int
	proxyErr    error
}

func (f *fakeSteps) StartProxy(context.Context, engine.ProxySpec) error {
	f.proxyStarts++
	return f.proxyErr
}

func (f *fakeSteps) CycleProxy(context.Context, engine.ProxySpec) error {
	f.proxyCycles++
	return f.proxyErr
}

func (f *fakeSteps) StartDNS(context.Context, engine.DNSSpec) error {
	f.dnsStarts++
	return nil
}

func (f *fakeSteps) CycleDNS(context.Context, engine.DNSSpec) error {
	f.dnsCycles++
	return nil
}

func testDeployer(t *testing.T) (*Deployer, *fakeSteps, config.Paths) {
	t.Helper()
	paths := config.PathsAt(filepath.Join(t.TempDir(), "darp"))
	if err := paths.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	steps := &fakeSteps{}
	d := &Deployer{
		Paths:     paths,
		Support:   support.Config{},
		Kind:      engine.Docker,
		Steps:     steps,
		Home:      "/home/me",
		SyncHosts: func([]string) error { return nil },
	}
	return d, steps, paths
}

func domainWithProjects(t *testing.T, projects ...string) (config.Config, string) {
	t.Helper()
	location := filepath.Join(t.TempDir(), "projects")
	if err := os.Mkdir(location, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range projects {
		if err := os.Mkdir(filepath.Join(location, p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
	}
	var cfg config.Config
	_, key, err := cfg.AddDomain(location)
	if err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	return cfg, key
}

func TestRunAssignsPortsAndWritesArtifacts(t *testing.T) {
	d, steps, paths := testDeployer(t)
	cfg, _ := domainWithProjects(t, "blog", "api")

	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report)
	}
	if !report.VhostChanged {
		t.Fatalf("expected first deploy to change vhost")
	}
	if steps.proxyCycles != 1 || steps.dnsCycles != 1 {
		t.Fatalf("expected first deploy to cycle containers: %+v", steps)
	}

	pm, err := ports.Load(paths.PortmapPath)
	if err != nil {
		t.Fatalf("Load portmap: %v", err)
	}
	apiPort, _ := pm.PortFor("projects/api")
	blogPort, _ := pm.PortFor("projects/blog")
	if apiPort != 50100 || blogPort != 50101 {
		t.Fatalf("ports = api:%d blog:%d", apiPort, blogPort)
	}

	vhostData, err := os.ReadFile(paths.VhostContainerConf)
	if err != nil {
		t.Fatalf("read vhost: %v", err)
	}
	if !strings.Contains(string(vhostData), "server_name api.projects.test;") ||
		!strings.Contains(string(vhostData), "proxy_pass http://host.docker.internal:50101/;") {
		t.Fatalf("vhost content:\n%s", vhostData)
	}

	hostsData, err := os.ReadFile(paths.HostsContainerPath)
	if err != nil {
		t.Fatalf("read hosts: %v", err)
	}
	if string(hostsData) != "0.0.0.0   api.projects.test\n0.0.0.0   blog.projects.test\n" {
		t.Fatalf("hosts content: %q", hostsData)
	}

	dnsData, err := os.ReadFile(paths.DNSMasqConfPath)
	if err != nil {
		t.Fatalf("read dnsmasq: %v", err)
	}
	if string(dnsData) != "address=/projects.test/127.0.0.1\n" {
		t.Fatalf("dnsmasq content: %q", dnsData)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	d, steps, _ := testDeployer(t)
	cfg, _ := domainWithProjects(t, "blog")

	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.VhostChanged || report.DNSChanged {
		t.Fatalf("second pass reported changes: %+v", report)
	}
	if steps.proxyCycles != 1 || steps.proxyStarts != 1 {
		t.Fatalf("expected unchanged pass to only ensure containers: %+v", steps)
	}
}

func TestRunKeepsPortsStableAcrossNewProjects(t *testing.T) {
	d, _, _ := testDeployer(t)
	cfg, key := domainWithProjects(t, "zebra")

	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// A lexicographically earlier project appears later; zebra keeps
	// its port.
	if err := os.Mkdir(filepath.Join(key, "alpha"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	pm, err := ports.Load(d.Paths.PortmapPath)
	if err != nil {
		t.Fatalf("Load portmap: %v", err)
	}
	zebraPort, _ := pm.PortFor("projects/zebra")
	alphaPort, _ := pm.PortFor("projects/alpha")
	if zebraPort != 50100 {
		t.Fatalf("zebra moved to %d", zebraPort)
	}
	if alphaPort != 50101 {
		t.Fatalf("alpha = %d", alphaPort)
	}
}

func TestRunReleasesVanishedProjects(t *testing.T) {
	d, _, _ := testDeployer(t)
	cfg, key := domainWithProjects(t, "blog", "api")

	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(key, "api")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(report.Released) != 1 || report.Released[0] != "projects/api" {
		t.Fatalf("released = %v", report.Released)
	}

	pm, err := ports.Load(d.Paths.PortmapPath)
	if err != nil {
		t.Fatalf("Load portmap: %v", err)
	}
	if _, ok := pm.PortFor("projects/api"); ok {
		t.Fatalf("vanished project still assigned")
	}
}

func TestRunUnreadableDomainKeepsAssignments(t *testing.T) {
	d, _, _ := testDeployer(t)
	cfg, key := domainWithProjects(t, "blog")

	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := os.RemoveAll(key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !report.Failed() {
		t.Fatalf("expected domain failure")
	}
	if len(report.Released) != 0 {
		t.Fatalf("released despite unreadable domain: %v", report.Released)
	}

	pm, err := ports.Load(d.Paths.PortmapPath)
	if err != nil {
		t.Fatalf("Load portmap: %v", err)
	}
	if port, ok := pm.PortFor("projects/blog"); !ok || port != 50100 {
		t.Fatalf("assignment lost: %d, %v", port, ok)
	}
}

func TestRunIsolatesResolutionFailures(t *testing.T) {
	d, _, _ := testDeployer(t)
	cfg, key := domainWithProjects(t, "blog", "api")
	if err := cfg.SetServiceField("projects", "api", config.FieldServeCommand, "npm start"); err != nil {
		t.Fatalf("SetServiceField: %v", err)
	}
	// Point one service at an environment that does not exist.
	d2 := cfg.Domains[key]
	svc := d2.Services["api"]
	svc.Environment = "missing"
	d2.Services["api"] = svc
	cfg.Domains[key] = d2

	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Failed() {
		t.Fatalf("expected a project failure")
	}

	var blogOK, apiFailed bool
	for _, ds := range report.Domains {
		for _, p := range ds.Projects {
			if p.Project == "blog" && p.Err == nil && p.Port > 0 {
				blogOK = true
			}
			if p.Project == "api" && errors.Is(p.Err, config.ErrUnknownEnvironment) {
				apiFailed = true
			}
		}
	}
	if !blogOK || !apiFailed {
		t.Fatalf("report: %+v", report.Domains)
	}

	vhostData, err := os.ReadFile(d.Paths.VhostContainerConf)
	if err != nil {
		t.Fatalf("read vhost: %v", err)
	}
	if strings.Contains(string(vhostData), "api.projects.test") {
		t.Fatalf("failed project rendered:\n%s", vhostData)
	}
	if !strings.Contains(string(vhostData), "blog.projects.test") {
		t.Fatalf("healthy project missing:\n%s", vhostData)
	}
}

func TestRunHostsModeNeutralizesDNS(t *testing.T) {
	d, _, _ := testDeployer(t)
	cfg, _ := domainWithProjects(t, "blog")

	var synced [][]string
	d.SyncHosts = func(entries []string) error {
		synced = append(synced, entries)
		return nil
	}

	cfg.URLsInHosts = true
	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	dnsData, err := os.ReadFile(d.Paths.DNSMasqConfPath)
	if err != nil {
		t.Fatalf("read dnsmasq: %v", err)
	}
	if len(dnsData) != 0 {
		t.Fatalf("dnsmasq artifact not neutral in hosts mode: %q", dnsData)
	}
	if len(synced) != 1 || len(synced[0]) != 1 || synced[0][0] != "127.0.0.1   blog.projects.test" {
		t.Fatalf("synced = %v", synced)
	}

	// Switching back clears the hosts block and restores dnsmasq lines.
	cfg.URLsInHosts = false
	if _, err := d.Run(context.Background(), &cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	dnsData, err = os.ReadFile(d.Paths.DNSMasqConfPath)
	if err != nil {
		t.Fatalf("read dnsmasq: %v", err)
	}
	if string(dnsData) != "address=/projects.test/127.0.0.1\n" {
		t.Fatalf("dnsmasq content: %q", dnsData)
	}
	if len(synced) != 2 || len(synced[1]) != 0 {
		t.Fatalf("expected clearing sync, got %v", synced)
	}
}

func TestRunProxyFailureReportedNotFatal(t *testing.T) {
	d, steps, paths := testDeployer(t)
	cfg, _ := domainWithProjects(t, "blog")
	steps.proxyErr = errors.New("daemon unreachable")

	report, err := d.Run(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ProxyErr == nil || !strings.Contains(report.ProxyErr.Error(), "daemon unreachable") {
		t.Fatalf("ProxyErr = %v", report.ProxyErr)
	}
	if !report.Failed() {
		t.Fatalf("expected failed report")
	}
	if report.DNSErr != nil {
		t.Fatalf("dns step should still run cleanly: %v", report.DNSErr)
	}

	// Artifacts and assignments were written before the restart attempt.
	pm, err := ports.Load(paths.PortmapPath)
	if err != nil {
		t.Fatalf("Load portmap: %v", err)
	}
	if _, ok := pm.PortFor("projects/blog"); !ok {
		t.Fatalf("port not persisted despite proxy failure")
	}
	if _, err := os.Stat(paths.VhostContainerConf); err != nil {
		t.Fatalf("vhost artifact missing: %v", err)
	}
}
