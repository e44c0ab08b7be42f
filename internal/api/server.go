// Package api exposes the ledger engine over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/spice-ledger/internal/engine"
)

const shutdownTimeout = 30 * time.Second

// NewRouter registers every route and wraps them in the middleware chain.
func NewRouter(e *engine.Engine, logger *slog.Logger) http.Handler {
	h := NewHandler(e, logger)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/me", h.Me)

	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/transactions", h.CreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.DeleteTransaction)

	mux.HandleFunc("GET /api/budgets", h.ListBudgets)
	mux.HandleFunc("PUT /api/budgets", h.PutBudget)

	mux.HandleFunc("GET /api/analytics", h.Analytics)
	mux.HandleFunc("POST /api/ask", h.Ask)

	mux.HandleFunc("GET /api/intake/{surface}", h.IntakeState)
	mux.HandleFunc("POST /api/intake/{surface}/text", h.IntakeText)
	mux.HandleFunc("POST /api/intake/{surface}/image", h.IntakeImage)
	mux.HandleFunc("POST /api/intake/{surface}/confirm", h.IntakeConfirm)
	mux.HandleFunc("POST /api/intake/{surface}/cancel", h.IntakeCancel)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return Recovery(logger)(
		Logger(logger)(
			RequestID(
				CORS(mux),
			),
		),
	)
}

// Server is the HTTP front end of the ledger.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, e *engine.Engine, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(e, logger),
			ReadHeaderTimeout: 15 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// WithTLS serves HTTPS with cert instead of plain HTTP.
func (s *Server) WithTLS(cert tls.Certificate) *Server {
	s.http.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.http.TLSConfig != nil {
			s.logger.Info("Starting API server", "addr", s.http.Addr, "tls", true)
			err = s.http.ListenAndServeTLS("", "")
		} else {
			s.logger.Info("Starting API server", "addr", s.http.Addr)
			err = s.http.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, open := <-errCh:
		if open {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
