// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"sort"
	"strconv"
)

// ProjectContainerPrefix namespaces every container darp starts for a
// project.
const ProjectContainerPrefix = "darp_"

// ProjectContainerName builds the container name for one project.
func ProjectContainerName(domainName, project string) string {
	return ProjectContainerPrefix + domainName + "_" + project
}

// Mount is a resolved host-to-container bind mount.
type Mount struct {
	Host      string
	Container string
}

// ProjectRunSpec describes a shell or serve container for one project.
type ProjectRunSpec struct {
	Name        string
	Interactive bool

	ProjectDir string // mounted at /app
	HostsPath  string // hosts_container, mounted at /etc/hosts
	NginxConf  string // mounted at /etc/nginx/nginx.conf
	VhostPath  string // mounted at /etc/nginx/http.d/vhost_container.conf

	Mounts       []Mount
	PortMappings map[string]string // host port -> container port
	Platform     string
	ProxyPort    int // assigned host port, forwarded to container port 8000

	Image   string
	Command []string
}

// ProjectRunArgs builds the full run invocation for a project
// container. Port mappings are emitted in sorted order so the same
// spec always yields the same argv.
func (k Kind) ProjectRunArgs(spec ProjectRunSpec) []string {
	args := []string{"run", "--rm"}
	if spec.Interactive {
		args = append(args, "-it")
	}
	args = append(args, "--name", spec.Name,
		"-v", spec.ProjectDir+":/app",
		"-v", spec.HostsPath+":/etc/hosts",
		"-v", spec.NginxConf+":/etc/nginx/nginx.conf",
		"-v", spec.VhostPath+":/etc/nginx/http.d/vhost_container.conf",
	)
	for _, m := range spec.Mounts {
		args = append(args, "-v", m.Host+":"+m.Container)
	}

	hostPorts := make([]string, 0, len(spec.PortMappings))
	for hostPort := range spec.PortMappings {
		hostPorts = append(hostPorts, hostPort)
	}
	sort.Strings(hostPorts)
	for _, hostPort := range hostPorts {
		args = append(args, "-p", hostPort+":"+spec.PortMappings[hostPort])
	}

	args = append(args, k.PlatformArgs(spec.Platform)...)
	args = append(args, "-p", strconv.Itoa(spec.ProxyPort)+":8000")
	args = append(args, spec.Image)
	args = append(args, spec.Command...)
	return args
}
