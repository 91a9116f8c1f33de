// Package api provides the HTTP API server for remote run control.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/slimemax/keyboardsim/internal/config"
	"github.com/slimemax/keyboardsim/internal/journal"
	"github.com/slimemax/keyboardsim/internal/lines"
	"github.com/slimemax/keyboardsim/internal/protocol"
	"github.com/slimemax/keyboardsim/internal/runner"
)

// maxBodyBytes bounds request bodies; scripts are limited far below this
const maxBodyBytes = 1 << 20

// Server provides HTTP API for remote control
type Server struct {
	configMgr *config.Manager
	ctrl      *runner.Controller
	journal   *journal.Journal
	table     *lines.Table
	wsMgr     *WSManager

	hubOnce sync.Once
	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer creates a new API server. Journal lines and controller status
// changes are pushed to websocket clients.
func NewServer(configMgr *config.Manager, ctrl *runner.Controller, j *journal.Journal, table *lines.Table) *Server {
	s := &Server{
		configMgr: configMgr,
		ctrl:      ctrl,
		journal:   j,
		table:     table,
	}
	s.wsMgr = newWSManager(s)
	j.Subscribe(s.wsMgr.BroadcastLog)
	ctrl.OnChange(s.wsMgr.BroadcastStatus)
	return s
}

// Handler returns the routed, authenticated handler
func (s *Server) Handler() http.Handler {
	s.hubOnce.Do(func() { go s.wsMgr.start() })

	mux := http.NewServeMux()
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves on addr until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	log.Printf("API: Listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the websocket hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	s.wsMgr.stop()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if token := s.configMgr.Get().General.APIToken; token != "" {
			authorized := r.Header.Get("Authorization") == "Bearer "+token
			// Browsers cannot set headers on a websocket upgrade.
			if !authorized && r.URL.Path == "/ws" {
				authorized = r.URL.Query().Get("token") == token
			}
			if !authorized {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// startRun applies a request body to the configured defaults and starts it
func (s *Server) startRun(payload gjson.Result) (runner.RunConfig, error) {
	req, err := protocol.ParseRunRequest(payload)
	if err != nil {
		return runner.RunConfig{}, &requestError{err}
	}
	cfg := req.Apply(s.configMgr.Get().Run.RunConfig())
	if err := s.ctrl.Start(cfg); err != nil {
		if errors.Is(err, runner.ErrBusy) {
			return cfg, err
		}
		return cfg, &requestError{err}
	}
	return cfg, nil
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// handleRun handles POST /api/run
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 && !gjson.ValidBytes(body) {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	cfg, err := s.startRun(gjson.ParseBytes(body))
	var reqErr *requestError
	switch {
	case errors.Is(err, runner.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	log.Printf("API: Run started from %s (loops=%d)", r.RemoteAddr, cfg.Loops)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"config": cfg,
	})
}

// handleStop handles POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stop requested"})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// handleLogs handles GET /api/logs[?n=<count>]
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := s.journal.Lines()
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid n parameter", http.StatusBadRequest)
			return
		}
		entries = s.journal.Last(n)
	}
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": entries})
}

// handleMessages handles GET /api/messages
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	all := s.table.All()
	if all == nil {
		all = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":  s.table.Source(),
		"count":   s.table.Len(),
		"dropped": s.table.Dropped(),
		"lines":   all,
	})
}

// handleConfig handles GET (read) and POST (update) for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		cfg := s.configMgr.Get()
		if cfg.General.APIToken != "" {
			cfg.General.APIToken = "********"
		}
		writeJSON(w, http.StatusOK, cfg)

	case "POST":
		current := s.configMgr.Get()
		newCfg := *current
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&newCfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}
		if newCfg.General.APIToken == "********" {
			newCfg.General.APIToken = current.General.APIToken
		}

		log.Printf("API: Receiving configuration update from %s", r.RemoteAddr)
		if err := s.configMgr.Set(&newCfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := s.configMgr.Save(); err != nil {
			log.Printf("API: Failed to save received config: %v", err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
