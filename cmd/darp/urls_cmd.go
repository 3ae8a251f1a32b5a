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
	"sort"
	"strings"

	"github.com/shayne/yargs"

	"github.com/darpdev/darp/internal/ports"
	"github.com/darpdev/darp/internal/vhost"
)

func handleURLsCommand(_ context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	portmap, err := ports.Load(ws.paths.PortmapPath)
	if err != nil {
		return err
	}
	printURLs(os.Stdout, portmap)
	return nil
}

func printURLs(out io.Writer, portmap ports.Map) {
	styler := newOutputStyler(out)
	byDomain := map[string][]string{}
	for key := range portmap.Ports {
		domainName, _, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		byDomain[domainName] = append(byDomain[domainName], key)
	}
	if len(byDomain) == 0 {
		fmt.Fprintln(out, "no projects deployed; run 'darp deploy'")
		return
	}

	domainNames := make([]string, 0, len(byDomain))
	for name := range byDomain {
		domainNames = append(domainNames, name)
	}
	sort.Strings(domainNames)

	fmt.Fprintln(out)
	for _, domainName := range domainNames {
		fmt.Fprintln(out, styler.domain(domainName))
		keys := byDomain[domainName]
		sort.Strings(keys)
		for _, key := range keys {
			_, project, _ := strings.Cut(key, "/")
			url := fmt.Sprintf("http://%s.%s.%s", project, domainName, vhost.Suffix)
			fmt.Fprintf(out, "  %s %s\n", styler.link(url), styler.muted(fmt.Sprintf("(%d)", portmap.Ports[key])))
		}
		fmt.Fprintln(out)
	}
}
