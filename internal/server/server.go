// Package server exposes the introspection HTTP API: a read-only listing
// of analyzed tables and their registered scopes, for tooling and
// documentation use.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/pgscope/internal/analyzer"
	"github.com/koustreak/pgscope/internal/logger"
)

// Server serves the introspection API over completed analysis passes.
type Server struct {
	analyzer *analyzer.Analyzer
	log      *logger.Logger
	router   chi.Router
}

// New builds a Server and its routes.
func New(a *analyzer.Analyzer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}

	s := &Server{analyzer: a, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/tables", s.handleTables)
	r.Get("/tables/{table}/scopes", s.handleScopes)
	s.router = r

	return s
}

// Handler returns the HTTP handler, for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.With().Str("addr", addr).Logger().Info("introspection server listening")
	return srv.ListenAndServe()
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tableList is the /tables response body.
type tableList struct {
	Tables []string `json:"tables"`
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tableList{Tables: s.analyzer.Tables()})
}

// scopeInfo is one entry of the /tables/{table}/scopes response.
type scopeInfo struct {
	Name         string   `json:"name"`
	Index        string   `json:"index"`
	Contract     string   `json:"contract"`
	RequiredKeys []string `json:"required_keys,omitempty"`
	Template     string   `json:"template"`
	Predicate    string   `json:"predicate,omitempty"`
}

type scopeList struct {
	Table  string      `json:"table"`
	Scopes []scopeInfo `json:"scopes"`
}

func (s *Server) handleScopes(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	reg, ok := s.analyzer.Registry(table)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "table not analyzed: " + table,
		})
		return
	}

	resp := scopeList{Table: table, Scopes: []scopeInfo{}}
	for _, d := range reg.Descriptors() {
		resp.Scopes = append(resp.Scopes, scopeInfo{
			Name:         d.Name,
			Index:        d.Index,
			Contract:     d.Contract.String(),
			RequiredKeys: d.RequiredKeys,
			Template:     d.Template,
			Predicate:    d.Predicate,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
