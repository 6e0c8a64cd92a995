// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/antgroup/whence/pkg/version"
	"github.com/antgroup/whence/pkg/whence"
)

type App struct {
	whence.App `embed:""`
	Version    kong.VersionFlag `short:"v" name:"version" help:"Show version number and quit"`
}

func main() {
	var app App
	kong.Parse(&app,
		kong.Name("whence"),
		kong.Description("whence - find the commits whose trees contain a blob"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.GetVersionString(),
		},
	)
	now := time.Now()
	err := app.App.Run(context.Background())
	if app.Verbose {
		app.DbgPrint("time spent: %v", time.Since(now))
	}
	if err == nil {
		return
	}
	if e, ok := err.(*whence.ErrExitCode); ok {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", e.Message)
		os.Exit(e.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	os.Exit(127)
}
