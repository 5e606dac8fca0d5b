// Package api exposes the agent over REST/JSON plus a WebSocket event
// stream for the dashboard.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/config"
	"github.com/voltix/agent/internal/diag"
	"github.com/voltix/agent/internal/events"
	"github.com/voltix/agent/internal/heal"
	"github.com/voltix/agent/internal/intent"
	"github.com/voltix/agent/internal/netdrv"
	"github.com/voltix/agent/internal/sim"
)

// Server wires the agent's components behind the HTTP surface.
type Server struct {
	cfg       *config.Config
	driver    netdrv.Driver
	alerts    *alerts.Store
	pipeline  *intent.Pipeline
	healer    *heal.Engine
	simulator *sim.Simulator
	diag      *diag.Collector
	bus       *events.Bus
	stream    *Stream
}

// NewServer builds the server and its WebSocket stream.
func NewServer(cfg *config.Config, driver netdrv.Driver, alertStore *alerts.Store,
	pipeline *intent.Pipeline, healer *heal.Engine, simulator *sim.Simulator, bus *events.Bus) *Server {
	return &Server{
		cfg:       cfg,
		driver:    driver,
		alerts:    alertStore,
		pipeline:  pipeline,
		healer:    healer,
		simulator: simulator,
		diag:      diag.NewCollector(driver),
		bus:       bus,
		stream:    NewStream(bus),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// CORS Middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "X-API-Key, Content-Type")
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Use(s.authMiddleware)

	// Open endpoints
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/ws", s.stream.HandleWebSocket)

	// Observation
	r.HandleFunc("/diagnostics", s.handleDiagnostics).Methods("GET")
	r.HandleFunc("/alerts", s.handleAlerts).Methods("GET")
	r.HandleFunc("/adapter", s.handleAdapter).Methods("GET")
	r.HandleFunc("/intent-logs", s.handleIntentLogs).Methods("GET")
	r.HandleFunc("/trust-status", s.handleTrustStatus).Methods("GET")

	// Remediation
	r.HandleFunc("/auto-heal", s.handleAutoHeal).Methods("POST")
	r.HandleFunc("/flush-dns", s.handleFlushDNS).Methods("POST")
	r.HandleFunc("/enable-wifi", s.handleEnableWiFi).Methods("POST")
	r.HandleFunc("/restart-network", s.handleRestartNetwork).Methods("POST")
	r.HandleFunc("/alerts/clear", s.handleAlertsClear).Methods("POST")
	r.HandleFunc("/intent-logs/clear", s.handleIntentLogsClear).Methods("POST")

	// Demo / simulation
	r.HandleFunc("/simulate-wifi-failure", s.handleSimulateFailure).Methods("POST")
	r.HandleFunc("/unsafe-action", s.handleUnsafeAction).Methods("POST")

	return r
}

// Start runs the HTTP server until ctx is cancelled, then drains with a
// short shutdown grace.
func (s *Server) Start(ctx context.Context) error {
	go s.stream.Run(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("Voltix agent v%s listening on %s", config.Version, addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
