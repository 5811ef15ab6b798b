// Package api provides the HTTP status server: health, relay status,
// Prometheus metrics and a websocket that pushes status changes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inputrelay/internal/network"
	"inputrelay/internal/protocol"
)

// StatusFunc reports the current relay status.
type StatusFunc func() protocol.StatusPayload

// Server provides the HTTP status API
type Server struct {
	token    string
	status   StatusFunc
	gatherer prometheus.Gatherer
	wsMgr    *WSManager

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer creates a new API server. A nil gatherer uses the default
// Prometheus registry.
func NewServer(token string, status StatusFunc, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		token:    token,
		status:   status,
		gatherer: gatherer,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Handler returns the routed handler with auth and panic recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start starts the API server on the specified port and blocks until it is
// shut down.
func (s *Server) Start(port int) error {
	go s.wsMgr.start()

	addr := fmt.Sprintf("0.0.0.0:%d", port)

	log.Printf("--- Diagnostic: Network Interfaces ---")
	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			log.Printf("  Found Local IPv4: %s", ip)
		}
	}
	log.Printf("--------------------------------------")

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("API: Failed to listen on %s: %v", addr, err)
		log.Printf("API: Receiver will continue running without the status server.")
		return err
	}
	log.Printf("API: Status server listening on %s", addr)

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = server
	s.mu.Unlock()

	// This is blocking
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the websocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.stop()

	s.mu.Lock()
	server := s.httpSrv
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// BroadcastStatus pushes a status update to every websocket client. It never
// blocks the caller.
func (s *Server) BroadcastStatus(status protocol.StatusPayload) {
	s.wsMgr.BroadcastStatus(status)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: Recovered from panic: %v", err)
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

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.currentStatus())
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) currentStatus() protocol.StatusPayload {
	if s.status == nil {
		return protocol.StatusPayload{}
	}
	return s.status()
}
