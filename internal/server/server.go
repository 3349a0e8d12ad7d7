// Package server serves a finished composition model over HTTP.
//
// Routes:
//
//	GET /                       launcher page (same bytes as socomo.html)
//	GET /model.json             the complete model with cycles
//	GET /levels                 level summaries
//	GET /levels/{n}/graph.dot   Graphviz source of level n
//	GET /levels/{n}/graph.svg   SVG drawing of level n
//
// Levels are addressed by their index, coarsest first. The model is read
// only, so a Server serves any number of concurrent requests.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/socomo/pkg/composition"
	"github.com/matzehuels/socomo/pkg/observability"
	"github.com/matzehuels/socomo/pkg/render"
)

// Options configures a [Server].
type Options struct {
	Assets   []render.Asset
	Detailed bool
	Logger   *log.Logger
}

// Server holds the pre-rendered page and model of one module.
type Server struct {
	module   *composition.Module
	page     []byte
	model    []byte
	detailed bool
	logger   *log.Logger
}

// LevelSummary describes one level in the /levels listing.
type LevelSummary struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Components   int    `json:"components"`
	Dependencies int    `json:"dependencies"`
	Cycles       int    `json:"cycles"`
	Default      bool   `json:"default"`
}

// New renders the launcher page and the JSON model of m.
func New(m *composition.Module, opts Options) (*Server, error) {
	page, err := render.HTML(m, render.HTMLOptions{Assets: opts.Assets})
	if err != nil {
		return nil, err
	}
	model, err := render.JSON(m)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{module: m, page: page, model: model, detailed: opts.Detailed, logger: logger}, nil
}

// Handler returns the HTTP handler of s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/", s.handlePage)
	r.Get("/model.json", s.handleModel)
	r.Get("/levels", s.handleLevels)
	r.Route("/levels/{n}", func(r chi.Router) {
		r.Get("/graph.dot", s.handleDOT)
		r.Get("/graph.svg", s.handleSVG)
	})
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	write(w, "text/html; charset=utf-8", s.page)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	write(w, "application/json", s.model)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	out := make([]LevelSummary, len(s.module.Levels))
	for i, l := range s.module.Levels {
		out[i] = LevelSummary{
			Index:        i,
			Name:         l.Name,
			Components:   l.NumComponents(),
			Dependencies: l.NumDependencies(),
			Cycles:       len(composition.Cycles(l)),
			Default:      i == s.module.Default,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	write(w, "application/json", data)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	l, ok := s.level(w, r)
	if !ok {
		return
	}
	write(w, "text/vnd.graphviz; charset=utf-8", []byte(render.DOT(l, render.DOTOptions{Detailed: s.detailed})))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	l, ok := s.level(w, r)
	if !ok {
		return
	}
	svg, err := render.SVG(r.Context(), render.DOT(l, render.DOTOptions{Detailed: s.detailed}))
	if err != nil {
		s.logger.Error("render svg", "level", l.Name, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	write(w, "image/svg+xml", svg)
}

// level resolves the {n} URL parameter, answering 404 when it names no
// level.
func (s *Server) level(w http.ResponseWriter, r *http.Request) (*composition.Level, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 || n >= len(s.module.Levels) {
		http.NotFound(w, r)
		return nil, false
	}
	return s.module.Levels[n], true
}

// observe reports every request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, d)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "duration", d)
	})
}

func write(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
