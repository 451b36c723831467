// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/export"
	"cirello.io/foreshell/internal/portalloc"
	"cirello.io/foreshell/internal/procfile"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "render the formation as runit service directories",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "formation", Aliases: []string{"m"}, Value: "all=1", Usage: "procType=N,procType=N,..."},
			&cli.StringFlag{Name: "env", Aliases: []string{"e"}, Value: ".env", Usage: "environment file to load"},
			&cli.StringFlag{Name: "procfile", Aliases: []string{"f"}, Value: "Procfile", Usage: "Procfile to load"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "explicit base port"},
			&cli.StringFlag{Name: "location", Value: "/etc/service", Usage: "directory to write service directories under"},
			&cli.StringFlag{Name: "run-path", Usage: "directory the target supervisor watches, if different from --location"},
			&cli.StringFlag{Name: "log-path", Usage: "directory log output is written under, if different from each service's own log dir"},
			&cli.StringFlag{Name: "user", Value: "root", Usage: "user the exported services run as"},
			&cli.StringFlag{Name: "app", Value: "app", Usage: "service name prefix"},
		},
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	pf, err := procfile.Read(c.String("procfile"))
	if err != nil {
		return err
	}
	pf.SetConcurrency(c.String("formation"))

	env, err := envfile.Read(c.String("env"))
	if err != nil {
		return fmt.Errorf("cannot read env file: %w", err)
	}
	basePort, err := portalloc.Base(env, c.String("port"))
	if err != nil {
		return fmt.Errorf("cannot resolve base port: %w", err)
	}

	opts := export.Options{
		Procfile: pf,
		Env:      env,
		App:      c.String("app"),
		Location: c.String("location"),
		RunPath:  c.String("run-path"),
		LogPath:  c.String("log-path"),
		User:     c.String("user"),
		BasePort: basePort,
	}
	return export.RunitExporter{}.Export(opts)
}
