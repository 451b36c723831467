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
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/portalloc"
	"cirello.io/foreshell/internal/procfile"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "execute a single named Procfile entry in the foreground",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Aliases: []string{"e"}, Value: ".env", Usage: "environment file to load"},
			&cli.StringFlag{Name: "procfile", Aliases: []string{"f"}, Value: "Procfile", Usage: "Procfile to load"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "explicit base port"},
		},
		Action: runSingle,
	}
}

func runSingle(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("run requires a process type name")
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		return errors.New("SHELL is not set")
	}

	pf, err := procfile.Read(c.String("procfile"))
	if err != nil {
		return err
	}
	entry, ok := pf.Get(name)
	if !ok {
		return fmt.Errorf("no such process type: %q", name)
	}

	env, err := envfile.Read(c.String("env"))
	if err != nil {
		return fmt.Errorf("cannot read env file: %w", err)
	}
	basePort, err := portalloc.Base(env, c.String("port"))
	if err != nil {
		return fmt.Errorf("cannot resolve base port: %w", err)
	}
	port := portalloc.For(basePort, 0, 1)
	env.Set("PORT", strconv.Itoa(port))
	env.Set("PS", procfile.DisplayName(name, 1))

	cmd := exec.Command(shell, "-c", entry.Command)
	cmd.Env = env.Merge(os.Environ())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot start %q: %w", name, err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		osSig, _ := sig.(syscall.Signal)
		_ = syscall.Kill(-cmd.Process.Pid, osSig)
	}()

	err = cmd.Wait()
	signal.Stop(sigs)
	if exitErr, ok := err.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		return err
	}
	return nil
}
