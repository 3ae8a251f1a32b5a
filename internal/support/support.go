// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package support holds the tunable settings for the two long-lived
// support containers: the reverse proxy and the dns forwarder. The
// file is optional; missing values fall back to defaults.
package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultProxyContainer = "darp-reverse-proxy"
	defaultProxyImage     = "nginx"
	defaultProxyHTTPPort  = 80
	defaultDNSContainer   = "darp-masq"
	defaultDNSImage       = "dockurr/dnsmasq"
	defaultDNSPort        = 53
)

type ProxyConfig struct {
	Container string `toml:"container"`
	Image     string `toml:"image"`
	HTTPPort  int    `toml:"http_port"`
}

type DNSConfig struct {
	Container string `toml:"container"`
	Image     string `toml:"image"`
	Port      int    `toml:"port"`
}

type Config struct {
	Proxy ProxyConfig `toml:"proxy"`
	DNS   DNSConfig   `toml:"dns"`
}

// Load reads support.toml, returning defaults when the file is absent.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyDefaults(Config{}), nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return applyDefaults(cfg), nil
}

// Save writes support.toml with defaults filled in, so users see the
// knobs they can turn.
func Save(path string, cfg Config) error {
	cfg = applyDefaults(cfg)
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg Config) Config {
	if strings.TrimSpace(cfg.Proxy.Container) == "" {
		cfg.Proxy.Container = defaultProxyContainer
	}
	if strings.TrimSpace(cfg.Proxy.Image) == "" {
		cfg.Proxy.Image = defaultProxyImage
	}
	if cfg.Proxy.HTTPPort <= 0 {
		cfg.Proxy.HTTPPort = defaultProxyHTTPPort
	}
	if strings.TrimSpace(cfg.DNS.Container) == "" {
		cfg.DNS.Container = defaultDNSContainer
	}
	if strings.TrimSpace(cfg.DNS.Image) == "" {
		cfg.DNS.Image = defaultDNSImage
	}
	if cfg.DNS.Port <= 0 {
		cfg.DNS.Port = defaultDNSPort
	}
	cfg.Proxy.Container = strings.TrimSpace(cfg.Proxy.Container)
	cfg.Proxy.Image = strings.TrimSpace(cfg.Proxy.Image)
	cfg.DNS.Container = strings.TrimSpace(cfg.DNS.Container)
	cfg.DNS.Image = strings.TrimSpace(cfg.DNS.Image)
	return cfg
}
