// Package status serves a read-only HTTP view of a bootstrapped process.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/bootstrap"
	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// Source is the run the server reports on. *bootstrap.Handle satisfies it.
type Source interface {
	Modules() []*bootstrap.ModuleDescriptor
	State() lifecycle.State
	Kernel() *bootstrap.KernelModule
}

// Module is the JSON form of a module descriptor.
type Module struct {
	Name         string   `json:"name"`
	Position     int      `json:"position"`
	PlugIn       bool     `json:"plugin"`
	Dependencies []string `json:"dependencies"`
	Assembly     string   `json:"assembly,omitempty"`
}

// Job is the JSON form of a kernel background job.
type Job struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitzero"`
}

type health struct {
	State lifecycle.State `json:"state"`
}

// NewRouter returns the status routes:
//
//	GET /healthz          200 while running, 503 otherwise
//	GET /modules          modules in execution order
//	GET /modules/{name}   one module
//	GET /jobs             kernel background jobs
//	GET /metrics          Prometheus metrics from gatherer
func NewRouter(src Source, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := src.State()
		code := http.StatusOK
		if state != lifecycle.StateRunning {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health{State: state})
	})

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, modules(src))
		})
		r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			for _, m := range modules(src) {
				if m.Name == name {
					writeJSON(w, http.StatusOK, m)
					return
				}
			}
			http.Error(w, "module not found", http.StatusNotFound)
		})
	})

	r.Get("/jobs", func(w http.ResponseWriter, _ *http.Request) {
		jobs := []Job{}
		if k := src.Kernel(); k != nil {
			for _, j := range k.Jobs() {
				jobs = append(jobs, Job{Name: j.Name, Spec: j.Spec, Next: j.Next})
			}
		}
		writeJSON(w, http.StatusOK, jobs)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func modules(src Source) []Module {
	descs := src.Modules()
	out := make([]Module, 0, len(descs))
	for i, d := range descs {
		m := Module{
			Name:         d.Name,
			Position:     i,
			PlugIn:       d.IsPlugIn,
			Dependencies: d.DependencyNames(),
		}
		if d.Definition != nil && d.Definition.Assembly != nil {
			m.Assembly = d.Definition.Assembly.Name
		}
		out = append(out, m)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the status router until its context is done.
type Server struct {
	srv    *http.Server
	logger bootstrap.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, src Source, gatherer prometheus.Gatherer, logger bootstrap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(src, gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve listens until ctx is done, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
