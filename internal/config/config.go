// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the persisted darp configuration: registered
// domains, per-service overrides, reusable environments, and global
// settings. The on-disk format is a single JSON document.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Volume maps a host directory into a container. Host may contain the
// {home} and {pwd} placeholders, expanded at resolve time only.
type Volume struct {
	Container string `json:"container"`
	Host      string `json:"host"`
}

// Overrides is the settings bag shared by services and environments.
// Empty fields fall through to the next layer.
type Overrides struct {
	ServeCommand          string            `json:"serve_command,omitempty"`
	ShellCommand          string            `json:"shell_command,omitempty"`
	ImageRepository       string            `json:"image_repository,omitempty"`
	Platform              string            `json:"platform,omitempty"`
	DefaultContainerImage string            `json:"default_container_image,omitempty"`
	HostPortMappings      map[string]string `json:"host_portmappings,omitempty"`
	Volumes               []Volume          `json:"volumes,omitempty"`
}

// Environment is a named, reusable settings template.
type Environment struct {
	Overrides
}

// Service is a per-project override within a domain, keyed by the
// project directory name.
type Service struct {
	Environment string `json:"environment,omitempty"`
	Overrides
}

// Domain is a registered host directory. The map key in Config.Domains
// is the canonical directory path; Name is the DNS zone label.
type Domain struct {
	Name               string             `json:"name"`
	Services           map[string]Service `json:"services,omitempty"`
	DefaultEnvironment string             `json:"default_environment,omitempty"`
}

// DefaultBasePort is the first port handed out when base_port is unset.
const DefaultBasePort = 50100

type Config struct {
	Engine        string                 `json:"engine,omitempty"`
	PodmanMachine string                 `json:"podman_machine,omitempty"`
	URLsInHosts   bool                   `json:"urls_in_hosts,omitempty"`
	BasePort      int                    `json:"base_port,omitempty"`
	Domains       map[string]Domain      `json:"domains,omitempty"`
	Environments  map[string]Environment `json:"environments,omitempty"`
}

// Load reads the config document. A missing file yields an empty config;
// a file that cannot be read or parsed is an error, since no command
// should proceed on corrupt state.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config document back, creating the parent directory
// when needed.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EffectiveBasePort returns the configured base port or the default.
func (c *Config) EffectiveBasePort() int {
	if c.BasePort > 0 {
		return c.BasePort
	}
	return DefaultBasePort
}

// DomainByName looks up a domain by its zone label and returns the
// canonical path key it is registered under.
func (c *Config) DomainByName(name string) (Domain, string, bool) {
	for key, d := range c.Domains {
		if d.Name == name {
			return d, key, true
		}
	}
	return Domain{}, "", false
}

// SetEngine records the container engine choice.
func (c *Config) SetEngine(engine string) error {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine != "docker" && engine != "podman" {
		return fmt.Errorf("engine must be 'docker' or 'podman'")
	}
	c.Engine = engine
	return nil
}

// SetBasePort sets the first port the allocator hands out.
func (c *Config) SetBasePort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("base port must be between 1024 and 65535")
	}
	c.BasePort = port
	return nil
}

// AddDomain registers a host directory. The zone label is slugified
// from the directory name and must be unique, as must the path.
func (c *Config) AddDomain(location string) (name string, key string, err error) {
	abs, err := canonicalPath(location)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve domain location %q: %w", location, err)
	}
	label := filepath.Base(abs)
	if label == "." || label == string(filepath.Separator) {
		return "", "", fmt.Errorf("could not determine domain name from %q", location)
	}
	name = SlugifyName(label)

	if c.Domains == nil {
		c.Domains = map[string]Domain{}
	}
	if _, ok := c.Domains[abs]; ok {
		return "", "", fmt.Errorf("domain with location %q already exists", abs)
	}
	for _, d := range c.Domains {
		if d.Name == name {
			return "", "", fmt.Errorf("domain name %q already exists; domain names must be unique", name)
		}
	}
	c.Domains[abs] = Domain{Name: name}
	return name, abs, nil
}

// RemoveDomain deletes a domain by zone label or exact location key.
func (c *Config) RemoveDomain(name string) error {
	for key, d := range c.Domains {
		if d.Name == name || key == name {
			delete(c.Domains, key)
			return nil
		}
	}
	return fmt.Errorf("domain %q does not exist", name)
}

// SetDomainDefaultEnvironment points a domain at a named environment.
// The environment must already be defined.
func (c *Config) SetDomainDefaultEnvironment(domainName, envName string) error {
	if _, ok := c.Environments[envName]; !ok {
		return fmt.Errorf("environment %q does not exist", envName)
	}
	return c.updateDomain(domainName, func(d *Domain) error {
		d.DefaultEnvironment = envName
		return nil
	})
}

// RemoveDomainDefaultEnvironment clears a domain's default environment.
func (c *Config) RemoveDomainDefaultEnvironment(domainName string) error {
	return c.updateDomain(domainName, func(d *Domain) error {
		if d.DefaultEnvironment == "" {
			return fmt.Errorf("domain %q has no default environment", domainName)
		}
		d.DefaultEnvironment = ""
		return nil
	})
}

// SetServiceEnvironment points a service at a named environment,
// overriding the domain default.
func (c *Config) SetServiceEnvironment(domainName, serviceName, envName string) error {
	if _, ok := c.Environments[envName]; !ok {
		return fmt.Errorf("environment %q does not exist", envName)
	}
	return c.updateService(domainName, serviceName, true, func(s *Service) error {
		s.Environment = envName
		return nil
	})
}

// RemoveServiceEnvironment clears a service's environment reference.
func (c *Config) RemoveServiceEnvironment(domainName, serviceName string) error {
	return c.updateService(domainName, serviceName, false, func(s *Service) error {
		if s.Environment == "" {
			return fmt.Errorf("service '%s.%s' has no environment reference", domainName, serviceName)
		}
		s.Environment = ""
		return nil
	})
}

// Field identifies one scalar override that config set/rm can target.
type Field string

const (
	FieldServeCommand          Field = "serve_command"
	FieldShellCommand          Field = "shell_command"
	FieldImageRepository       Field = "image_repository"
	FieldPlatform              Field = "platform"
	FieldDefaultContainerImage Field = "default_container_image"
)

func (o *Overrides) fieldRef(field Field) (*string, error) {
	switch field {
	case FieldServeCommand:
		return &o.ServeCommand, nil
	case FieldShellCommand:
		return &o.ShellCommand, nil
	case FieldImageRepository:
		return &o.ImageRepository, nil
	case FieldPlatform:
		return &o.Platform, nil
	case FieldDefaultContainerImage:
		return &o.DefaultContainerImage, nil
	default:
		return nil, fmt.Errorf("unknown setting %q", string(field))
	}
}

// SetEnvironmentField sets a scalar override on an existing environment.
func (c *Config) SetEnvironmentField(envName string, field Field, value string) error {
	return c.updateEnvironment(envName, false, func(e *Environment) error {
		ref, err := e.fieldRef(field)
		if err != nil {
			return err
		}
		*ref = value
		return nil
	})
}

// ClearEnvironmentField removes a scalar override from an environment.
func (c *Config) ClearEnvironmentField(envName string, field Field) error {
	return c.updateEnvironment(envName, false, func(e *Environment) error {
		ref, err := e.fieldRef(field)
		if err != nil {
			return err
		}
		if *ref == "" {
			return fmt.Errorf("environment %q has no custom %s", envName, field)
		}
		*ref = ""
		return nil
	})
}

// SetServiceField sets a scalar override on a service, creating the
// service entry under an existing domain when needed.
func (c *Config) SetServiceField(domainName, serviceName string, field Field, value string) error {
	return c.updateService(domainName, serviceName, true, func(s *Service) error {
		ref, err := s.fieldRef(field)
		if err != nil {
			return err
		}
		*ref = value
		return nil
	})
}

// ClearServiceField removes a scalar override from a service.
func (c *Config) ClearServiceField(domainName, serviceName string, field Field) error {
	return c.updateService(domainName, serviceName, false, func(s *Service) error {
		ref, err := s.fieldRef(field)
		if err != nil {
			return err
		}
		if *ref == "" {
			return fmt.Errorf("service '%s.%s' has no custom %s", domainName, serviceName, field)
		}
		*ref = ""
		return nil
	})
}

// AddEnvironmentPortMapping records an extra host:container port pair on
// an environment, creating the environment when needed.
func (c *Config) AddEnvironmentPortMapping(envName, hostPort, containerPort string) error {
	return c.updateEnvironment(envName, true, func(e *Environment) error {
		return addPortMapping(&e.HostPortMappings, hostPort, containerPort,
			fmt.Sprintf("environment %q", envName))
	})
}

// RemoveEnvironmentPortMapping deletes a port pair from an environment.
func (c *Config) RemoveEnvironmentPortMapping(envName, hostPort string) error {
	return c.updateEnvironment(envName, false, func(e *Environment) error {
		return removePortMapping(e.HostPortMappings, hostPort,
			fmt.Sprintf("environment %q", envName))
	})
}

// AddServicePortMapping records an extra host:container port pair on a
// service.
func (c *Config) AddServicePortMapping(domainName, serviceName, hostPort, containerPort string) error {
	return c.updateService(domainName, serviceName, true, func(s *Service) error {
		return addPortMapping(&s.HostPortMappings, hostPort, containerPort,
			fmt.Sprintf("service '%s.%s'", domainName, serviceName))
	})
}

// RemoveServicePortMapping deletes a port pair from a service.
func (c *Config) RemoveServicePortMapping(domainName, serviceName, hostPort string) error {
	return c.updateService(domainName, serviceName, false, func(s *Service) error {
		return removePortMapping(s.HostPortMappings, hostPort,
			fmt.Sprintf("service '%s.%s'", domainName, serviceName))
	})
}

// AddEnvironmentVolume records a mount on an environment, creating the
// environment when needed.
func (c *Config) AddEnvironmentVolume(envName, containerDir, hostDir string) error {
	return c.updateEnvironment(envName, true, func(e *Environment) error {
		return addVolume(&e.Volumes, containerDir, hostDir,
			fmt.Sprintf("environment %q", envName))
	})
}

// RemoveEnvironmentVolume deletes a mount from an environment.
func (c *Config) RemoveEnvironmentVolume(envName, containerDir, hostDir string) error {
	return c.updateEnvironment(envName, false, func(e *Environment) error {
		return removeVolume(&e.Volumes, containerDir, hostDir,
			fmt.Sprintf("environment %q", envName))
	})
}

// AddServiceVolume records a mount on a service.
func (c *Config) AddServiceVolume(domainName, serviceName, containerDir, hostDir string) error {
	return c.updateService(domainName, serviceName, true, func(s *Service) error {
		return addVolume(&s.Volumes, containerDir, hostDir,
			fmt.Sprintf("service '%s.%s'", domainName, serviceName))
	})
}

// RemoveServiceVolume deletes a mount from a service.
func (c *Config) RemoveServiceVolume(domainName, serviceName, containerDir, hostDir string) error {
	return c.updateService(domainName, serviceName, false, func(s *Service) error {
		return removeVolume(&s.Volumes, containerDir, hostDir,
			fmt.Sprintf("service '%s.%s'", domainName, serviceName))
	})
}

func (c *Config) updateDomain(name string, fn func(*Domain) error) error {
	for key, d := range c.Domains {
		if d.Name == name {
			if err := fn(&d); err != nil {
				return err
			}
			c.Domains[key] = d
			return nil
		}
	}
	return fmt.Errorf("domain %q does not exist", name)
}

func (c *Config) updateEnvironment(name string, create bool, fn func(*Environment) error) error {
	env, ok := c.Environments[name]
	if !ok {
		if !create {
			return fmt.Errorf("environment %q does not exist", name)
		}
		if c.Environments == nil {
			c.Environments = map[string]Environment{}
		}
	}
	if err := fn(&env); err != nil {
		return err
	}
	c.Environments[name] = env
	return nil
}

func (c *Config) updateService(domainName, serviceName string, create bool, fn func(*Service) error) error {
	return c.updateDomain(domainName, func(d *Domain) error {
		svc, ok := d.Services[serviceName]
		if !ok && !create {
			return fmt.Errorf("service %q does not exist", serviceName)
		}
		if err := fn(&svc); err != nil {
			return err
		}
		if d.Services == nil {
			d.Services = map[string]Service{}
		}
		d.Services[serviceName] = svc
		return nil
	})
}

func addPortMapping(m *map[string]string, hostPort, containerPort, owner string) error {
	if *m == nil {
		*m = map[string]string{}
	}
	if _, ok := (*m)[hostPort]; ok {
		return fmt.Errorf("port mapping for %s on host port %s already exists", owner, hostPort)
	}
	(*m)[hostPort] = containerPort
	return nil
}

func removePortMapping(m map[string]string, hostPort, owner string) error {
	if _, ok := m[hostPort]; !ok {
		return fmt.Errorf("port mapping for %s on host port %s does not exist", owner, hostPort)
	}
	delete(m, hostPort)
	return nil
}

func addVolume(volumes *[]Volume, containerDir, hostDir, owner string) error {
	for _, v := range *volumes {
		if v.Container == containerDir && v.Host == hostDir {
			return fmt.Errorf("volume mapping already exists for %s: %s -> %s", owner, hostDir, containerDir)
		}
	}
	*volumes = append(*volumes, Volume{Container: containerDir, Host: hostDir})
	return nil
}

func removeVolume(volumes *[]Volume, containerDir, hostDir, owner string) error {
	for i, v := range *volumes {
		if v.Container == containerDir && v.Host == hostDir {
			*volumes = append((*volumes)[:i], (*volumes)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no matching volume in %s for host %q -> container %q", owner, hostDir, containerDir)
}

func canonicalPath(location string) (string, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// SlugifyName lowercases a directory name into a DNS-safe zone label:
// alphanumerics kept, runs of spaces/underscores/dashes collapsed to a
// single dash, other punctuation dropped.
func SlugifyName(input string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(input) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastDash = false
		case r == ' ' || r == '\t' || r == '_' || r == '-':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "domain"
	}
	return out
}

// ParseBool parses the human-friendly boolean forms the CLI accepts.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q (expected true/false/yes/no/1/0)", s)
	}
}
