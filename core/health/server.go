// Package health serves the liveness endpoints that keep the process
// reachable on its listen port.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/funnelbot/core/buildinfo"
	"github.com/m3rciful/funnelbot/core/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Options configure the listener.
type Options struct {
	Listen string
	Port   int
	// Checks are run by /healthz; any failure turns the response into 503.
	Checks map[string]Pinger
}

// Server is a running health listener.
type Server struct {
	srv  *http.Server
	addr string
	done chan struct{}
}

type report struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewHandler builds the chi router serving / and /healthz.
func NewHandler(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		rep := report{Status: "ok", Version: buildinfo.Version}
		code := http.StatusOK
		if len(opts.Checks) > 0 {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			rep.Checks = make(map[string]string, len(opts.Checks))
			for name, check := range opts.Checks {
				if err := check(ctx); err != nil {
					rep.Checks[name] = err.Error()
					rep.Status = "fail"
					code = http.StatusServiceUnavailable
					continue
				}
				rep.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(rep)
	})
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug(r.Context(), "http", "request",
			slog.String("handler", r.URL.Path),
			slog.Int("http_code", ww.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// Start binds the listener and serves in the background. A zero port means
// the listener is disabled and Start returns nil, nil.
func Start(ctx context.Context, opts Options) (*Server, error) {
	if opts.Port <= 0 {
		return nil, nil
	}
	addr := net.JoinHostPort(opts.Listen, fmt.Sprint(opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health: listen %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           NewHandler(opts),
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: ln.Addr().String(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http", "serve.failed", slog.String("err", err.Error()))
		}
	}()

	logger.Info(ctx, "http", "listen",
		slog.String("status", "ok"),
		slog.String("listen", s.addr),
	)
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.addr }

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
