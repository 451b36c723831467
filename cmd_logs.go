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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"nhooyr.io/websocket"
)

type logMessage struct {
	Name string `json:"name"`
	Line string `json:"line"`
}

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:      "logs",
		Usage:     "stream the multiplexed output of a running start --status-addr instance",
		ArgsUsage: "<addr>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Usage: "substring used to filter which lines are shown"},
		},
		Action: runLogs,
	}
}

func runLogs(c *cli.Context) error {
	addr := c.Args().First()
	if addr == "" {
		return errors.New("logs requires the status web address, e.g. localhost:9090")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u := url.URL{Scheme: "ws", Host: addr, Path: "/logs"}
	if filter := c.String("filter"); filter != "" {
		q := u.Query()
		q.Set("filter", filter)
		u.RawQuery = q.Encode()
	}
	log.Printf("connecting to %s", u.String())

	ws, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("cannot dial status web: %w", err)
	}
	defer ws.CloseNow()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := ws.Read(ctx)
			if err != nil {
				return
			}
			var msg logMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Println("decode:", err)
				continue
			}
			fmt.Println(msg.Name+":", msg.Line)
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ws.Close(websocket.StatusNormalClosure, "")
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}
