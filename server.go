package bywhen

import (
	"context"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	serverTimeout   = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// A Server exposes the bot over HTTP: Slack's requests on /slack/events, a health check on /healthz
// and Prometheus metrics on /metrics.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer returns a Server listening on port. Requests to /slack/events are verified with signingSecret
// and passed to processor. Metrics are served from gatherer.
func NewServer(port int, signingSecret string, processor EventProcessor, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           newRouter(signingSecret, processor, gatherer, logger),
			ReadHeaderTimeout: serverTimeout,
			ReadTimeout:       serverTimeout,
			WriteTimeout:      serverTimeout,
		},
		logger: logger,
	}
}

func newRouter(signingSecret string, processor EventProcessor, gatherer prometheus.Gatherer, logger *slog.Logger) *mux.Router {
	filter := NewSignatureVerificationFilter(signingSecret).WithLogger(logger)
	router := mux.NewRouter()
	router.StrictSlash(true)
	// all methods: the event handler answers anything but POST with a 404
	router.Handle("/slack/events", filter.Decorate(NewEventHandler(processor, logger).ServeHTTP))
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Run starts the Server. It returns when ctx is cancelled or the server fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return <-errCh
}
