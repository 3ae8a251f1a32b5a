// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine adapts darp to a container engine. The two supported
// engines share one CLI surface but differ in host-gateway naming,
// platform flags, and readiness checks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Kind is the configured container engine.
type Kind string

const (
	Docker Kind = "docker"
	Podman Kind = "podman"
)

var (
	// ErrNoEngine means config has no engine set. The CLI turns it
	// into a hint to run 'darp config set engine'.
	ErrNoEngine = errors.New("no container engine is configured")
	// ErrEngineTimeout marks an engine command that hit its deadline.
	ErrEngineTimeout = errors.New("engine command timed out")
)

// DefaultPodmanMachine is assumed when podman_machine is not set.
const DefaultPodmanMachine = "podman-machine-default"

const defaultCommandTimeout = 30 * time.Second

// ParseKind validates an engine name from config.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docker":
		return Docker, nil
	case "podman":
		return Podman, nil
	case "":
		return "", ErrNoEngine
	default:
		return "", fmt.Errorf("unsupported engine %q", s)
	}
}

// Bin is the engine binary name.
func (k Kind) Bin() string {
	return string(k)
}

// HostGateway is the in-container name for the host, used by the
// reverse proxy to reach project ports.
func (k Kind) HostGateway() string {
	if k == Podman {
		return "host.containers.internal"
	}
	return "host.docker.internal"
}

// PlatformArgs translates an "os/arch" platform string into engine
// flags. Docker takes the string whole; podman wants it split.
func (k Kind) PlatformArgs(platform string) []string {
	if platform == "" {
		return nil
	}
	if k == Docker {
		return []string{"--platform", platform}
	}
	if osPart, arch, ok := strings.Cut(platform, "/"); ok {
		return []string{"--os", osPart, "--arch", arch}
	}
	return []string{"--arch", platform}
}

// NeedsPrivilegedPorts reports whether binding the given host port
// needs extra setup. Rootless podman cannot bind below 1024 without a
// sysctl override, so install warns before wiring port 53.
func (k Kind) NeedsPrivilegedPorts(port int) bool {
	return k == Podman && port < 1024
}

// FileWatchMode reports how file changes inside mounted project
// directories surface. The podman VM does not forward inotify events,
// so tooling inside the container should poll.
func (k Kind) FileWatchMode() string {
	if k == Podman {
		return "poll"
	}
	return "notify"
}

// Engine executes commands against one configured engine.
type Engine struct {
	Kind    Kind
	Machine string // podman machine name, empty means the default
	Timeout time.Duration

	// run is replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New builds an engine adapter around the real binary.
func New(kind Kind, machine string) *Engine {
	return &Engine{
		Kind:    kind,
		Machine: machine,
		Timeout: defaultCommandTimeout,
		run:     runCombined,
	}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Command runs one engine command under the configured deadline and
// returns its combined output.
func (e *Engine) Command(parent context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, e.Timeout)
	defer cancel()

	out, err := e.run(ctx, e.Kind.Bin(), args...)
	if err == nil {
		return out, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %s %s", ErrEngineTimeout, e.Kind.Bin(), strings.Join(args, " "))
	}
	output := strings.TrimSpace(string(out))
	if output == "" {
		return nil, fmt.Errorf("failed to run %s %s: %w", e.Kind.Bin(), strings.Join(args, " "), err)
	}
	return nil, fmt.Errorf("failed to run %s %s: %w: %s", e.Kind.Bin(), strings.Join(args, " "), err, output)
}

// Ready verifies the engine can accept work: a responding daemon for
// docker, a running machine for podman.
func (e *Engine) Ready(ctx context.Context) error {
	switch e.Kind {
	case Docker:
		if _, err := e.Command(ctx, "info"); err != nil {
			return fmt.Errorf("docker does not appear to be running: %w", err)
		}
		return nil
	case Podman:
		out, err := e.Command(ctx, "machine", "list", "--format", "{{.Name}} {{.Running}}")
		if err != nil {
			return err
		}
		machine := e.Machine
		if machine == "" {
			machine = DefaultPodmanMachine
		}
		for _, line := range strings.Split(string(out), "\n") {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			name := strings.TrimSuffix(fields[0], "*")
			if name == machine && strings.EqualFold(fields[1], "true") {
				return nil
			}
		}
		return fmt.Errorf("podman machine %q appears to be down (try 'podman machine start %s')", machine, machine)
	default:
		return ErrNoEngine
	}
}

// ContainerRunning reports whether a container with the exact name is
// up.
func (e *Engine) ContainerRunning(ctx context.Context, name string) (bool, error) {
	out, err := e.Command(ctx, "ps", "--format", "{{.Names}}")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// RunningProjectContainers lists running containers created for
// projects (the darp_ prefix).
func (e *Engine) RunningProjectContainers(ctx context.Context) ([]string, error) {
	out, err := e.Command(ctx, "ps", "--format", "{{.Names}}")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if strings.HasPrefix(name, ProjectContainerPrefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

// StopContainer stops a container by name. Stopping a container that
// already exited is not an error.
func (e *Engine) StopContainer(ctx context.Context, name string) error {
	running, err := e.ContainerRunning(ctx, name)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}
	_, err = e.Command(ctx, "stop", name)
	return err
}

// ProxySpec describes the reverse proxy support container.
type ProxySpec struct {
	Container string
	Image     string
	HTTPPort  int
	VhostPath string // host path of the rendered server blocks
}

// DNSSpec describes the dns support container.
type DNSSpec struct {
	Container string
	Image     string
	Port      int
	ConfDir   string // host path of the dnsmasq.d directory
}

// ProxyRunArgs builds the run invocation for the reverse proxy.
func ProxyRunArgs(spec ProxySpec) []string {
	return []string{
		"run", "-d", "--rm",
		"--name", spec.Container,
		"-p", strconv.Itoa(spec.HTTPPort) + ":80",
		"-v", spec.VhostPath + ":/etc/nginx/conf.d/vhost_container.conf",
		spec.Image,
	}
}

// DNSRunArgs builds the run invocation for the dns forwarder.
func DNSRunArgs(spec DNSSpec) []string {
	port := strconv.Itoa(spec.Port)
	return []string{
		"run", "-d", "--rm",
		"--name", spec.Container,
		"-p", port + ":53/udp",
		"-p", port + ":53/tcp",
		"-v", spec.ConfDir + ":/etc/dnsmasq.d",
		"--cap-add=NET_ADMIN",
		spec.Image,
	}
}

// StartProxy starts the reverse proxy if it is not already running.
func (e *Engine) StartProxy(ctx context.Context, spec ProxySpec) error {
	running, err := e.ContainerRunning(ctx, spec.Container)
	if err != nil {
		return err
	}
	if running {
		return nil
	}
	fmt.Printf("starting %s\n", spec.Container)
	_, err = e.Command(ctx, ProxyRunArgs(spec)...)
	return err
}

// StartDNS starts the dns forwarder if it is not already running.
func (e *Engine) StartDNS(ctx context.Context, spec DNSSpec) error {
	running, err := e.ContainerRunning(ctx, spec.Container)
	if err != nil {
		return err
	}
	if running {
		return nil
	}
	fmt.Printf("starting %s\n", spec.Container)
	_, err = e.Command(ctx, DNSRunArgs(spec)...)
	return err
}

// CycleProxy restarts the reverse proxy by stopping it first, so the
// replacement picks up a changed vhost file. Used only when the
// rendered config actually changed.
func (e *Engine) CycleProxy(ctx context.Context, spec ProxySpec) error {
	if err := e.StopContainer(ctx, spec.Container); err != nil {
		return err
	}
	// run --rm containers need a moment to release the name.
	if err := e.waitGone(ctx, spec.Container); err != nil {
		return err
	}
	return e.StartProxy(ctx, spec)
}

// CycleDNS restarts the dns forwarder the same way, since dnsmasq only
// reads its zone files at startup.
func (e *Engine) CycleDNS(ctx context.Context, spec DNSSpec) error {
	if err := e.StopContainer(ctx, spec.Container); err != nil {
		return err
	}
	if err := e.waitGone(ctx, spec.Container); err != nil {
		return err
	}
	return e.StartDNS(ctx, spec)
}

func (e *Engine) waitGone(ctx context.Context, name string) error {
	deadline := time.Now().Add(5 * time.Second)
	for {
		running, err := e.ContainerRunning(ctx, name)
		if err != nil {
			return err
		}
		if !running || time.Now().After(deadline) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// InteractiveCommand builds an engine command wired to the caller's
// terminal, for shell and serve runs.
func (e *Engine) InteractiveCommand(args ...string) *exec.Cmd {
	cmd := exec.Command(e.Kind.Bin(), args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}
