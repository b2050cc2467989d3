// Package api exposes thot's pipeline over HTTP: one-shot assemble and
// lint endpoints, no session state. This core never executes what it
// assembles, so there is no running state to hold a session open for,
// and every request is independent.
package api

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// Server is the stateless HTTP front end over internal/service.
type Server struct {
	mux            *http.ServeMux
	server         *http.Server
	addr           string
	maxBodyBytes   int64
	allowedOrigins string
}

// NewServer creates a Server listening on addr. maxBodyBytes bounds request
// body size (a tablet submitted for assembly); allowedOrigins is "*" or a
// comma-separated origin allowlist.
func NewServer(addr string, maxBodyBytes int64, allowedOrigins string) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		addr:           addr,
		maxBodyBytes:   maxBodyBytes,
		allowedOrigins: allowedOrigins,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/assemble", s.handleAssemble)
	s.mux.HandleFunc("/api/v1/lint", s.handleLint)
}

// Handler returns the HTTP handler with CORS middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("thot API listening on %s", s.addr)
	return s.server.ListenAndServe()
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if s.allowedOrigins == "*" || origin == "" {
		return true
	}
	for _, allowed := range strings.Split(s.allowedOrigins, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}
	return false
}
