package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/STTM-NSU/market-sync/internal/logger"
)

const _shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	s      *http.Server
	logger logger.Logger
}

func NewHTTPServer(ctx context.Context, port string, handler http.Handler, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		s: &http.Server{
			Handler:           handler,
			Addr:              ":" + port,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(listener net.Listener) context.Context {
				return ctx
			},
		},
		logger: logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Infof("http server listening on %s", s.s.Addr)
	if err := s.s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.s.Shutdown(ctx)
}

// Run serves until ctx is done and then shuts down gracefully. Open event
// streams end with the base context, so shutdown does not wait on them.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownTimeout)
		defer cancel()
		s.logger.Infof("http server shutting down")
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
