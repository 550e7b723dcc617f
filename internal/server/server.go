package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"demo-bank/internal/config"
	"demo-bank/internal/domain"
	"demo-bank/internal/events"
	"demo-bank/internal/handler"
	"demo-bank/internal/repository"
	"demo-bank/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	db      *sql.DB
	redis   *redis.Client
	logger  *slog.Logger
	port    string
}

// NewServer wires the ledger store, services and routes described by cfg.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := &Server{logger: logger}

	store, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := repository.Seed(ctx, store, cfg.BcryptCost); err != nil {
		s.close()
		return nil, fmt.Errorf("seed ledger: %w", err)
	}

	publisher, err := s.openPublisher(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	// Initialize services
	authService, err := service.NewAuthService(store, cfg.JWTSecret, cfg.SessionTTL, cfg.BcryptCost, logger)
	if err != nil {
		s.close()
		return nil, err
	}
	queryService := service.NewQueryService(store, logger)
	transferService := service.NewTransferService(store, publisher, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(queryService)
	transactionHandler := handler.NewTransactionHandler(queryService, transferService)

	// Setup router
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(handler.Authenticate(authService))
	protected.HandleFunc("/accounts", accountHandler.ListAccounts).Methods(http.MethodGet)
	protected.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods(http.MethodGet)
	protected.HandleFunc("/transfer", transactionHandler.Transfer).Methods(http.MethodPost)

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	s.router = router
	s.handler = corsMiddleware(cfg.CORSOrigins, router)
	return s, nil
}

func (s *Server) openStore(ctx context.Context, cfg *config.Config) (domain.LedgerStore, error) {
	if cfg.StoreDriver != config.StorePostgres {
		s.logger.Info("Using in-memory ledger store")
		return repository.NewMemoryStore(s.logger), nil
	}

	db, err := repository.OpenPostgres(ctx, cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("Successfully connected to database")

	if err := repository.Migrate(ctx, db, s.logger); err != nil {
		s.close()
		return nil, err
	}
	return repository.NewPostgresStore(db, s.logger), nil
}

func (s *Server) openPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.RedisAddr == "" {
		return events.NopPublisher{}, nil
	}

	client, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	s.redis = client
	s.logger.Info("Publishing transfer events to redis", "addr", cfg.RedisAddr, "stream", events.TransferEventsStream)
	return events.NewRedisPublisher(client), nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// Handler returns the full middleware chain, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// StartServer builds the server from cfg and starts listening on cfg.ServerPort.
func StartServer(cfg *config.Config, logger *slog.Logger) (*Server, string, error) {
	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.close()
		return nil, "", err
	}

	return server, port, nil
}
