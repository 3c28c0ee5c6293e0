// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/poller"
	"github.com/smartdevs17/eth-activity-monitor/internal/registry"
	"github.com/smartdevs17/eth-activity-monitor/internal/store"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer exposes health, metrics and read-only watch listings.
type HTTPServer struct {
	config   *ServerConfig
	server   *http.Server
	router   *mux.Router
	store    store.Store
	poller   *poller.ActivityPoller
	registry *registry.Registry
	logger   *logrus.Logger
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(config *ServerConfig, s store.Store, p *poller.ActivityPoller, r *registry.Registry) *HTTPServer {
	srv := &HTTPServer{
		config:   config,
		store:    s,
		poller:   p,
		registry: r,
		logger:   utils.GetLogger(),
	}

	srv.setupRouter()

	srv.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	api.HandleFunc("/subscribers/{id}/watches", s.listWatchesHandler).Methods("GET")
}

// Start serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return utils.NewAppError(utils.ErrCodeInternal, "HTTP server failed", err.Error())
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{
		"store":  s.store.Ping() == nil,
		"poller": s.poller.IsRunning(),
	}

	healthy := true
	for _, ok := range components {
		if !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, &healthResponse{
		Healthy:    healthy,
		Components: components,
		Timestamp:  time.Now().UTC(),
	})
}

func (s *HTTPServer) listWatchesHandler(w http.ResponseWriter, r *http.Request) {
	subscriberID := mux.Vars(r)["id"]

	watches, err := s.registry.List(r.Context(), subscriberID)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscriber_id": subscriberID,
		"watches":       watches,
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}
