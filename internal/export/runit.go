// Copyright 2024 github.com/ucirello, cirello.io, U. Cirello
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

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"cirello.io/foreshell/internal/envfile"
)

// RunitExporter writes one runit service directory per replica: a run
// script that execs the process type's command under the target user, a
// log/run script that pipes its output to svlogd, and an envdir-style env
// directory holding one file per environment variable.
type RunitExporter struct{}

var runTmpl = template.Must(template.New("run").Parse(`#!/bin/sh
exec 2>&1
cd {{.WorkDir}}
exec chpst -u {{.User}} envdir {{.EnvDirPath}} {{.Command}}
`))

var logRunTmpl = template.Must(template.New("log-run").Parse(`#!/bin/sh
exec chpst -u {{.User}} svlogd -tt {{.LogPath}}
`))

type runParams struct {
	WorkDir    string
	User       string
	EnvDirPath string
	Command    string
}

type logRunParams struct {
	LogPath string
	User    string
}

// Export writes every replica's service directory under opts.Location,
// grounded on original_source's runit exporter (run.hbs / log/run.hbs
// rendered per ProcfileEntry), expressed here with text/template instead
// of Handlebars and one Go struct instead of a dynamic JSON map. The env
// and default log paths rendered into the scripts point under
// opts.RunPath (opts.Location when RunPath is empty).
func (RunitExporter) Export(opts Options) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	for _, r := range replicasOf(opts) {
		svcDir := filepath.Join(opts.Location, r.ServiceName)
		envDir := filepath.Join(svcDir, "env")
		logDir := filepath.Join(svcDir, "log")
		runSvcDir := filepath.Join(opts.runPath(), r.ServiceName)
		if err := os.MkdirAll(envDir, 0o755); err != nil {
			return fmt.Errorf("export %s: %w", r.ServiceName, err)
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("export %s: %w", r.ServiceName, err)
		}

		if err := writeTemplate(runTmpl, filepath.Join(svcDir, "run"), runParams{
			WorkDir:    workDir,
			User:       opts.userName(),
			EnvDirPath: filepath.Join(runSvcDir, "env"),
			Command:    r.Command,
		}, 0o755); err != nil {
			return err
		}

		logPath := opts.LogPath
		if logPath == "" {
			logPath = filepath.Join(runSvcDir, "log")
		}
		if err := writeTemplate(logRunTmpl, filepath.Join(logDir, "run"), logRunParams{
			LogPath: filepath.Join(logPath, r.ProcessName),
			User:    opts.userName(),
		}, 0o755); err != nil {
			return err
		}

		if err := writeEnvDir(envDir, r.envWithPort(opts.Env)); err != nil {
			return fmt.Errorf("export %s: %w", r.ServiceName, err)
		}
	}
	return nil
}

func writeTemplate(tmpl *template.Template, path string, data any, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("export: render %s: %w", path, err)
	}
	return nil
}

func writeEnvDir(dir string, env envfile.Env) error {
	for _, pair := range env {
		path := filepath.Join(dir, pair.Key)
		if err := os.WriteFile(path, []byte(pair.Value+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
