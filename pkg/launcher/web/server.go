// Package web exposes a small local HTTP API for evaluating SuperCollider
// code and controlling the audio server, for tools that are not LSP clients.
package web

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/flowerornament/zed-supercollider/pkg/bridge"
	"github.com/flowerornament/zed-supercollider/pkg/logutil"
)

var logger = logutil.GetLogger("[web] ")

// CommandSender queues executeCommand requests for the language server.
// Satisfied by *bridge.Bridge.
type CommandSender interface {
	ExecuteCommand(command string, args ...any) (jsonrpc2.ID, error)
}

// Server serves the eval API on loopback.
type Server struct {
	sender CommandSender
	srv    *http.Server
	port   int
}

func NewServer(port int, sender CommandSender) *Server {
	s := &Server{sender: sender, port: port}
	s.srv = &http.Server{Handler: s.handler(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/eval", s.handleEval)
	mux.HandleFunc("/stop", s.commandHandler(bridge.CmdCmdPeriod))
	mux.HandleFunc("/boot", s.commandHandler(bridge.CmdBootServer))
	mux.HandleFunc("/recompile", s.commandHandler(bridge.CmdRecompile))
	mux.HandleFunc("/quit", s.commandHandler(bridge.CmdQuitServer))
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

// Serve blocks until Close. Failure to bind is logged, not fatal: the bridge
// keeps working without the HTTP API.
func (s *Server) Serve() {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port)))
	if err != nil {
		logger.Println("http server:", err)
		return
	}
	logger.Printf("http eval server listening on http://%v", ln.Addr())
	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.Println("http server:", err)
	}
}

func (s *Server) Close() { s.srv.Close() }

// Requests may come from browser-based tools, so every response carries CORS
// headers and OPTIONS preflights are answered.
func corsHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	corsHeaders(w)
	w.WriteHeader(http.StatusNoContent)
	return true
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, fmt.Sprintf(`{"error":%q}`, msg))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

// handleEval queues the POST body as code for supercollider.eval. The LSP
// response is not awaited; results show up in the post window.
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		s.handleNotFound(w, r)
		return
	}
	code, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	id, err := s.sender.ExecuteCommand(bridge.CmdEval, string(code))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to send to sclang: "+err.Error())
		return
	}
	logger.Printf("/eval queued %d bytes (id=%v)", len(code), id)
	writeJSON(w, http.StatusAccepted, fmt.Sprintf(
		`{"status":"sent","request_id":%v,"code_length":%d}`, id, len(code)))
}

func (s *Server) commandHandler(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if preflight(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			s.handleNotFound(w, r)
			return
		}
		id, err := s.sender.ExecuteCommand(command)
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to send to sclang: "+err.Error())
			return
		}
		logger.Printf("%s queued %s (id=%v)", r.URL.Path, command, id)
		writeJSON(w, http.StatusAccepted, fmt.Sprintf(
			`{"status":"sent","command":%q,"request_id":%v}`, command, id))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	writeJSON(w, http.StatusNotFound,
		`{"error":"not found","endpoints":["/eval","/health","/stop","/boot","/recompile","/quit"]}`)
}
