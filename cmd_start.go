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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/output"
	"cirello.io/foreshell/internal/portalloc"
	"cirello.io/foreshell/internal/procfile"
	"cirello.io/foreshell/internal/statusweb"
	"cirello.io/foreshell/internal/supervisor"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "run the supervisor over a Procfile formation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "formation", Aliases: []string{"m"}, Value: "all=1", Usage: "procType=N,procType=N,..."},
			&cli.StringFlag{Name: "env", Aliases: []string{"e"}, Value: ".env", Usage: "environment file to load"},
			&cli.StringFlag{Name: "procfile", Aliases: []string{"f"}, Value: "Procfile", Usage: "Procfile to load"},
			&cli.IntFlag{Name: "timeout", Aliases: []string{"t"}, Value: 5, Usage: "SIGTERM to SIGKILL grace period, in seconds"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "explicit base port"},
			&cli.BoolFlag{Name: "no-timestamp", Aliases: []string{"n"}, Usage: "omit timestamps from output"},
			&cli.StringFlag{Name: "only", Usage: "space-separated process types to run exclusively"},
			&cli.StringFlag{Name: "skip", Usage: "space-separated process types to exclude"},
			&cli.StringFlag{Name: "optional", Usage: "space-separated optional process types to force-enable"},
			&cli.StringFlag{Name: "status-addr", Usage: "bind address for the status web; empty disables it"},
		},
		Action: runStart,
	}
}

func runStart(c *cli.Context) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return errors.New("SHELL is not set")
	}

	pf, err := procfile.Read(c.String("procfile"))
	if err != nil {
		return err
	}
	applyFilters(pf, c.String("only"), c.String("skip"), c.String("optional"))
	pf.SetConcurrency(c.String("formation"))

	env, err := envfile.Read(c.String("env"))
	if err != nil {
		return fmt.Errorf("cannot read env file: %w", err)
	}
	basePort, err := portalloc.Base(env, c.String("port"))
	if err != nil {
		return fmt.Errorf("cannot resolve base port: %w", err)
	}

	mux := output.New(os.Stdout, pf.Padding(), !c.Bool("no-timestamp"))
	registry := supervisor.NewRegistry()

	if addr := c.String("status-addr"); addr != "" {
		srv := statusweb.New(registry, mux)
		l, err := srv.Listen(addr)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ServeListener(l); err != nil {
				mux.System(fmt.Sprintf("status web stopped: %v", err))
			}
		}()
	}

	code, err := supervisor.RunWithRegistry(registry, pf, supervisor.Formation{
		Shell:    shell,
		ShellArg: "-c",
		BaseEnv:  os.Environ(),
		EnvFile:  env,
		BasePort: basePort,
		Timeout:  time.Duration(c.Int("timeout")) * time.Second,
		Mux:      mux,
	})
	if err != nil {
		return err
	}
	os.Exit(code)
	return nil
}
