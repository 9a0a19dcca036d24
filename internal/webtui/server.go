// Package webtui serves the terminal board in a browser. Every websocket
// session runs its own `questboard board` process on a PTY.
package webtui

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const xtermVersion = "5.3.0"

var terminalTmpl = template.Must(template.New("terminal").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/xterm@{{.XtermVersion}}/css/xterm.css">
<style>html,body,#term{margin:0;height:100%;background:#1b1410}</style>
</head>
<body>
<div id="term" data-server="{{.Server}}"></div>
<script src="https://cdn.jsdelivr.net/npm/xterm@{{.XtermVersion}}/lib/xterm.js"></script>
<script src="https://cdn.jsdelivr.net/npm/xterm-addon-fit@0.8.0/lib/xterm-addon-fit.js"></script>
<script>
const term = new Terminal({cursorBlink: true});
const fit = new FitAddon.FitAddon();
term.loadAddon(fit);
term.open(document.getElementById("term"));
fit.fit();
const proto = location.protocol === "https:" ? "wss://" : "ws://";
const ws = new WebSocket(proto + location.host + "/ws");
ws.binaryType = "arraybuffer";
const resize = () => {
  fit.fit();
  if (ws.readyState === 1) ws.send(JSON.stringify({type: "resize", cols: term.cols, rows: term.rows}));
};
ws.onopen = resize;
ws.onmessage = (e) => term.write(typeof e.data === "string" ? e.data : new Uint8Array(e.data));
ws.onclose = () => term.write("\r\n[session closed]\r\n");
term.onData((d) => ws.readyState === 1 && ws.send(d));
window.addEventListener("resize", resize);
</script>
</body>
</html>
`))

type ServerConfig struct {
	Addr string
	// Server is the board API the spawned viewers talk to.
	Server string
	Player string
	Title  string
	Logger log.FieldLogger
	// Command overrides the executable started per session (tests).
	Command string
}

type Server struct {
	cfg ServerConfig
	log log.FieldLogger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("webtui: missing board server url")
	}
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = "Quest Board"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{cfg: cfg, log: logger.WithField("component", "webtui")}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

type terminalVM struct {
	Title        string
	Server       string
	XtermVersion string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	vm := terminalVM{
		Title:        s.cfg.Title,
		Server:       strings.TrimSpace(s.cfg.Server),
		XtermVersion: xtermVersion,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := terminalTmpl.Execute(w, vm); err != nil {
		s.log.WithError(err).Error("render terminal page")
	}
}
