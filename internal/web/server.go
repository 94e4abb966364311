package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
)

// defaults for ranked endpoints
const (
	defaultTop     = 20
	maxImpactNodes = 3
	shutdownGrace  = 5 * time.Second
)

// Server exposes the query engine as a read-only JSON API
type Server struct {
	a      *impact.Analyzer
	addr   string
	logger *slog.Logger
}

// NewServer creates a new web server
func NewServer(a *impact.Analyzer, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{a: a, addr: addr, logger: logger}
}

type errorData struct {
	Error string `json:"error"`
}

// ComponentsData is the body of /api/components
type ComponentsData struct {
	Components int `json:"components"`
	Visible    int `json:"visible_nodes"`
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/node/{id}", s.handleNode)
	mux.HandleFunc("GET /api/impact", s.handleImpact)
	mux.HandleFunc("GET /api/path", s.handlePath)
	mux.HandleFunc("GET /api/risky", s.handleRisky)
	mux.HandleFunc("GET /api/hubs", s.handleHubs)
	mux.HandleFunc("GET /api/dead-code", s.handleDeadCode)
	mux.HandleFunc("GET /api/components", s.handleComponents)

	return s.logRequests(mux)
}

// Run serves the API until ctx is canceled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is canceled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("query API listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}

// handleGraph returns the complete snapshot
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.a.Index().Snapshot())
}

// handleStats returns the project summary, components counted under the
// filter given by types, edges and q
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.a.Stats(filterFrom(r)))
}

// handleSearch searches nodes by label or file
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, []impact.Hub{})
		return
	}
	writeJSON(w, s.a.Describe(s.a.Index().Search(q)))
}

// handleNode returns a single node with its connections
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.a.Index().Has(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: id %q", impact.ErrNoMatch, id))
		return
	}
	writeJSON(w, s.a.File(id))
}

// handleImpact returns impact reports for the first matches of q
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r, "depth", impact.DefaultImpactDepth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	nodes, ok := s.find(w, r.URL.Query().Get("q"))
	if !ok {
		return
	}
	if len(nodes) > maxImpactNodes {
		nodes = nodes[:maxImpactNodes]
	}
	reports := make([]*impact.ImpactReport, 0, len(nodes))
	for _, n := range nodes {
		reports = append(reports, s.a.Impact(n.ID, depth))
	}
	writeJSON(w, reports)
}

// handlePath returns the shortest path from the first match of from to any
// match of to
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from, ok := s.find(w, r.URL.Query().Get("from"))
	if !ok {
		return
	}
	to, ok := s.find(w, r.URL.Query().Get("to"))
	if !ok {
		return
	}
	targets := make([]string, 0, len(to))
	for _, n := range to {
		targets = append(targets, n.ID)
	}
	writeJSON(w, s.a.Path(from[0].ID, targets))
}

func (s *Server) handleRisky(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", defaultTop)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, s.a.RiskyFiles(top))
}

func (s *Server) handleHubs(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", defaultTop)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, s.a.Hubs(top))
}

func (s *Server) handleDeadCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.a.DeadCode())
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	writeJSON(w, ComponentsData{
		Components: s.a.CountComponents(f),
		Visible:    len(s.a.VisibleNodes(f)),
	})
}

// find resolves a query, writing the error response itself when it fails
func (s *Server) find(w http.ResponseWriter, q string) ([]graph.Node, bool) {
	q = strings.TrimSpace(q)
	if q == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing query"))
		return nil, false
	}
	nodes, err := s.a.Find(q)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return nodes, true
}

// Helper functions

func filterFrom(r *http.Request) impact.Filter {
	q := r.URL.Query()
	return impact.ParseFilter(splitList(q.Get("types")), splitList(q.Get("edges")), q.Get("q"))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorData{Error: err.Error()})
}
