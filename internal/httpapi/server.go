// Package httpapi exposes the factoring operations over HTTP and streams
// transaction transitions over WebSocket.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/metrics"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// Syncer refreshes cached wallet records on demand.
type Syncer interface {
	RunOnce(ctx context.Context) error
}

// WithCORS allows cross-origin requests, and stream subscriptions, from
// origins. "*" allows any.
func WithCORS(origins []string) Option {
	return func(srv *Server) { srv.origins = origins }
}

// WithRateLimit throttles each client IP to rps requests per second with the
// given burst. Zero rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(srv *Server) {
		if rps > 0 {
			srv.limiter = newRateLimiter(rps, burst)
		}
	}
}

// Option configures a Server.
type Option func(*Server)

// WithSyncer routes POST /api/sync through s instead of the service.
func WithSyncer(s Syncer) Option {
	return func(srv *Server) { srv.syncer = s }
}

// WithLogger sets the server logger.
func WithLogger(l *logger.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.log = l
		}
	}
}

// Server is the HTTP front of a factoring.Service.
type Server struct {
	svc    *factoring.Service
	hub    *Hub
	syncer Syncer
	router *mux.Router
	log    *logger.Logger

	origins []string
	limiter *rateLimiter
}

// New builds the router and subscribes the stream hub to the service's
// coordinator.
func New(svc *factoring.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "httpapi")
	s.hub = NewHub(s.log, s.origins)
	svc.Coordinator().OnTransition(s.hub.Publish)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/ws/transactions", s.handleStream).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/invoices", s.handleListInvoices).Methods("GET")
	api.HandleFunc("/invoices", s.handleCreateInvoice).Methods("POST")
	api.HandleFunc("/invoices/{hash}/factor", s.handleFactorInvoice).Methods("POST")
	api.HandleFunc("/invoices/{hash}/settle", s.handleSettleInvoice).Methods("POST")
	api.HandleFunc("/factored", s.handleListFactored).Methods("GET")
	api.HandleFunc("/factors/register", s.handleRegisterFactor).Methods("POST")
	api.HandleFunc("/factors/deregister", s.handleDeregisterFactor).Methods("POST")
	api.HandleFunc("/factors/{address}/status", s.handleFactorStatus).Methods("GET")
	api.HandleFunc("/tx", s.handleTxStatus).Methods("GET")
	api.HandleFunc("/tx/wait", s.handleTxWait).Methods("GET")
	api.HandleFunc("/tx/reset", s.handleTxReset).Methods("POST")
	api.HandleFunc("/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/history/{id}", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sync", s.handleSync).Methods("POST")
}

// Router returns the bare router.
func (s *Server) Router() *mux.Router { return s.router }

// Handler returns the router wrapped with request logging, CORS, throttling
// and request metrics.
func (s *Server) Handler() http.Handler {
	var h http.Handler = metrics.InstrumentHandler(s.router)
	if s.limiter != nil {
		h = s.limiter.middleware(h)
	}
	if len(s.origins) > 0 {
		h = cors(newOriginSet(s.origins))(h)
	}
	return requestLogger(s.log)(h)
}

// Hub returns the transaction stream hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close disconnects stream subscribers.
func (s *Server) Close() { s.hub.Close() }
