package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/bryanchriswhite/RenderWatch/internal/output"
	"github.com/bryanchriswhite/RenderWatch/internal/watch"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by /api/health
const Version = "0.1.0"

// Loop is the part of the orchestrator the server observes
type Loop interface {
	Last() *watch.Report
	Subscribe() chan watch.Report
	Unsubscribe(ch chan watch.Report)
}

// Resetter queues a manual reset for the next tick
type Resetter interface {
	Request()
}

// Server represents the HTTP status server
type Server struct {
	router   *mux.Router
	loop     Loop
	resetter Resetter
	cfg      *config.Config
	stream   *output.MJPEGOutput
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates a new status server. stream may be nil.
func NewServer(cfg *config.Config, loop Loop, resetter Resetter, stream *output.MJPEGOutput) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		loop:     loop,
		resetter: resetter,
		cfg:      cfg,
		stream:   stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.stream != nil {
		s.router.HandleFunc("/stream", s.stream.GetHTTPHandler())
		s.router.HandleFunc("/snapshot.jpg", s.stream.GetSnapshotHandler())
	}
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logger.WithComponent("api")
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msgf("Status server listening on http://%s", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{
		Artifact: s.cfg.Artifact.Path,
		Mode:     string(s.cfg.Artifact.Mode),
		Image:    s.cfg.Image.Path,
		Policy:   string(s.cfg.Watch.InvalidPolicy),
		Interval: s.cfg.Watch.PollInterval.String(),
	}
	if last := s.loop.Last(); last != nil {
		view := NewReportView(*last)
		status.Last = &view
	}
	if s.stream != nil {
		stats := s.stream.Stats()
		status.Stream = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.resetter.Request()
	logger.WithComponent("api").Info().Str("remote", r.RemoteAddr).Msg("Reset requested")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.loop.Subscribe()
	defer s.loop.Unsubscribe(updates)

	// Reader goroutine notices when the client goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the last report that did something
	if last := s.loop.Last(); last != nil && last.Outcome != nil {
		if err := conn.WriteJSON(NewReportView(*last)); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case rep, ok := <-updates:
			if !ok {
				return
			}
			if rep.Outcome == nil && !rep.Reset {
				continue
			}
			if err := conn.WriteJSON(NewReportView(rep)); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
