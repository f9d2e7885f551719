package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dwrignell/homesynth/internal/audit"
	"github.com/dwrignell/homesynth/internal/deploy"
	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/infrastructure/config"
	"github.com/dwrignell/homesynth/internal/infrastructure/logging"
	"github.com/dwrignell/homesynth/internal/suggest"
	"github.com/dwrignell/homesynth/internal/synth"
	"github.com/dwrignell/homesynth/internal/validate"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EntityDirectory is the slice of the entity store the API reads from.
type EntityDirectory interface {
	Get(ctx context.Context, entityID string) (*entity.Record, error)
	List(ctx context.Context) ([]entity.Record, error)
	ListDomain(ctx context.Context, domain string) ([]entity.Record, error)
	Count() int
}

// Deployer runs the stage/check/promote cycle for one document.
type Deployer interface {
	Test(ctx context.Context, doc *document.Document) (deploy.Outcome, error)
}

// SuggestionService is the suggestion lifecycle the API exposes.
type SuggestionService interface {
	Refresh(ctx context.Context) ([]suggest.Candidate, error)
	List(ctx context.Context) ([]suggest.Candidate, error)
	Accept(ctx context.Context, id string) (*document.Document, error)
	Dismiss(ctx context.Context, id string) error
}

// EventPublisher pushes pipeline events onto the MQTT bus.
// Optional: a nil publisher disables notifications.
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Entities    EntityDirectory
	Documents   document.Repository
	Synth       *synth.Synthesizer
	Validator   *validate.Validator
	Tester      Deployer
	Suggestions SuggestionService
	AuditRepo   audit.Repository
	Events      EventPublisher // optional
	Version     string
}

// Server is the HTTP API server for the synthesis pipeline.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	entities    EntityDirectory
	documents   document.Repository
	synth       *synth.Synthesizer
	validator   *validate.Validator
	tester      Deployer
	suggestions SuggestionService
	auditRepo   audit.Repository
	events      EventPublisher
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, pipeline components)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity directory is required")
	}
	if deps.Documents == nil {
		return nil, fmt.Errorf("document repository is required")
	}
	if deps.Synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if deps.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	// Tester, Suggestions, AuditRepo, and Events are optional — their
	// endpoints return 503 when absent so partial deployments still serve
	// the synthesis and read paths.

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		entities:    deps.Entities,
		documents:   deps.Documents,
		synth:       deps.Synth,
		validator:   deps.Validator,
		tester:      deps.Tester,
		suggestions: deps.Suggestions,
		auditRepo:   deps.AuditRepo,
		events:      deps.Events,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
