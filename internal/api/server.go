// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/quota"
	"github.com/scan-gateway/internal/sendflow"
	"github.com/scan-gateway/internal/service"
)

// Service interfaces for dependency injection and testing

// ScanServiceInterface defines the interface for scan pipeline operations
type ScanServiceInterface interface {
	Scan(ctx context.Context, input *service.ScanInput) (*service.ScanOutcome, error)
	Classify(payload string) *service.ScanOutcome
}

// DraftStoreInterface defines the interface for send draft access
type DraftStoreInterface interface {
	Get(ctx context.Context, sessionID string) (*sendflow.Draft, error)
	Clear(ctx context.Context, sessionID string) error
}

// ScanHistoryInterface defines the interface for scan history queries
type ScanHistoryInterface interface {
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*models.ScanEvent, error)
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	scanService ScanServiceInterface
	drafts      DraftStoreInterface
	history     ScanHistoryInterface
	quota       *quota.Tracker
	config      *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int // Requests per second for free tier
	PaidTierRPS     int // Requests per second for paid tier
	HistoryPageSize int // Default page size for scan history
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	scanService ScanServiceInterface,
	drafts DraftStoreInterface,
	history ScanHistoryInterface,
	scanQuota *quota.Tracker,
) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		scanService: scanService,
		drafts:      drafts,
		history:     history,
		quota:       scanQuota,
		config:      config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.FreeTierRPS, s.config.PaidTierRPS)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter)) // Rate limiting after CORS
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Scan pipeline endpoints; only /scan consumes quota, classification is free
	api.Handle("/scan", ScanQuotaMiddleware(s.quota)(http.HandlerFunc(s.handleScan))).Methods("POST")
	api.HandleFunc("/classify", s.handleClassify).Methods("POST")

	// Session endpoints
	api.HandleFunc("/sessions/{id}/draft", s.handleGetDraft).Methods("GET")
	api.HandleFunc("/sessions/{id}/draft", s.handleClearDraft).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/scans", s.handleListScans).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "scan-gateway",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
