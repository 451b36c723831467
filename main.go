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

// Command foreshell runs a Procfile-declared formation of processes,
// multiplexing their output and tearing the whole group down the moment
// any one of them dies or the program is asked to stop.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("foreshell: ")

	app := &cli.App{
		Name:                 "foreshell",
		Usage:                "run, inspect, and export a Procfile formation",
		HideVersion:          true,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			startCommand(),
			runCommand(),
			exportCommand(),
			logsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
