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

// Package statusweb serves an optional HTTP+WebSocket introspection
// endpoint over a running formation's Registry and multiplexed output.
package statusweb

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	terminal "github.com/buildkite/terminal-to-html/v3"
	"github.com/gorilla/websocket"

	"cirello.io/foreshell/internal/output"
	"cirello.io/foreshell/internal/supervisor"
)

// Server exposes a Registry and Multiplexer over HTTP.
type Server struct {
	Registry *supervisor.Registry
	Mux      *output.Multiplexer
}

// New returns a Server backed by registry and mux.
func New(registry *supervisor.Registry, mux *output.Multiplexer) *Server {
	return &Server{Registry: registry, Mux: mux}
}

// Handler builds the mux serving "/", "/status", and "/logs".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/status", s.serveStatus)
	mux.HandleFunc("/logs", s.serveLogs)
	return mux
}

// Listen binds addr, returning the listener so a caller can detect a
// bind failure before committing to starting the rest of the formation.
func (s *Server) Listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status web: %w", err)
	}
	return l, nil
}

// ServeListener serves the status web over an already-bound listener
// until it errors or is closed.
func (s *Server) ServeListener(l net.Listener) error {
	log.Println("status web listening on", l.Addr())
	return http.Serve(l, s.Handler())
}

// Serve binds addr and blocks serving the status web until the listener
// errors (typically because the process is shutting down).
func (s *Server) Serve(addr string) error {
	l, err := s.Listen(addr)
	if err != nil {
		return err
	}
	return s.ServeListener(l)
}

func (s *Server) serveIndex(w http.ResponseWriter, req *http.Request) {
	wsURL := url.URL{Scheme: "ws", Host: req.Host, Path: "/logs"}
	query := wsURL.Query()
	filter := req.URL.Query().Get("filter")
	if filter != "" {
		query.Set("filter", filter)
	}
	wsURL.RawQuery = query.Encode()
	logsPage.Execute(w, struct {
		URL    string
		Filter string
	}{wsURL.String(), filter})
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.Registry.Snapshot()); err != nil {
		log.Println("status web: encode status:", err)
	}
}

var upgrader = websocket.Upgrader{}

func (s *Server) serveLogs(w http.ResponseWriter, req *http.Request) {
	filter := req.URL.Query().Get("filter")
	html := req.URL.Query().Get("mode") == "html"

	ch := s.Mux.Subscribe()
	defer s.Mux.Unsubscribe(ch)

	c, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("status web: upgrade:", err)
		return
	}
	defer c.Close()

	for line := range ch {
		if filter != "" && !strings.Contains(line.Name, filter) && !strings.Contains(line.Text, filter) {
			continue
		}
		text := line.Text
		if html {
			text = string(terminal.Render([]byte(text)))
		}
		b, err := json.Marshal(struct {
			Name string `json:"name"`
			Line string `json:"line"`
		}{line.Name, text})
		if err != nil {
			log.Println("status web: encode:", err)
			break
		}
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Println("status web: write:", err)
			break
		}
	}
}

var logsPage = template.Must(template.New("logs").Parse(`<html>
<head>
<style>
* { margin: 0; padding: 0; }
#controlBar {
	background: white;
	border-bottom: #c0c0c0 1pt solid;
	color: black;
	padding: 5px;
	position: fixed;
	top: 0;
	width: 100%;
}
#output {
	font-family: monospace;
	margin-top: 36px;
	padding-bottom: 10px;
	padding-left: 5px;
	white-space: pre;
}
</style>
</head>
<body>
<div id="controlBar">
	<form>
		<label><input type="checkbox" id="autoScroll" checked> automatic scroll to bottom</label>
		|
		<label><input type="text" id="filter" name="filter" placeholder="filter" value="{{.Filter}}"></label>
		<input type="submit" style="display: none">
	</form>
</div>
<div id="output"></div>
<script>
function print(message) {
	var d = document.createElement("div");
	d.innerText = message;
	document.getElementById("output").appendChild(d);
}
function dial() {
	var ws = new WebSocket("{{.URL}}");
	ws.onclose = function() {
		setTimeout(function() { print("reconnecting..."); dial(); }, 1000);
	};
	ws.onmessage = function(evt) {
		var msg = JSON.parse(evt.data);
		print(msg.name + ": " + msg.line);
		if (document.getElementById("autoScroll").checked) {
			window.scrollTo(0, document.body.scrollHeight);
		}
	};
}
window.addEventListener("load", dial);
</script>
</body>
</html>`))
