// ABOUTME: HTTP status server for a run: HTML page, live state JSON, SSE event stream.
// ABOUTME: Handlers read tracker copies and the SQLite archive; nothing here writes run state.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/gauntlet/report"
	"github.com/2389-research/gauntlet/store"
)

//go:embed templates/status.html
var templateFS embed.FS

var statusTemplate = template.Must(template.ParseFS(templateFS, "templates/status.html"))

// eventPollInterval paces the SSE fan-out loop between tracker polls.
const eventPollInterval = 100 * time.Millisecond

// recentRunsLimit caps the /runs listing.
const recentRunsLimit = 50

// Server serves the run status surface. The archive is optional; without it
// the /runs routes report the archive as unavailable.
type Server struct {
	tracker *Tracker
	archive *store.Store
	router  chi.Router
	srv     *http.Server
}

// NewServer creates a status server on addr reading from tracker and archive.
func NewServer(addr string, tracker *Tracker, archive *store.Store) *Server {
	s := &Server{tracker: tracker, archive: archive}
	s.router = s.buildRouter()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// No WriteTimeout: /events streams for the length of the run.
	}
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/state", s.handleState)
	r.Get("/events", s.handleEvents)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/runs", s.handleRuns)
	r.Get("/runs/{runID}", s.handleRunByID)

	return r
}

// stepCell is the view model for one square of the status page's step grid.
type stepCell struct {
	Step  int
	Class string
}

// statusPage is the view model for the status template.
type statusPage struct {
	View       RunView
	Cells      []stepCell
	HasReport  bool
	ReportHTML template.HTML
}

// handleHome renders the live status page, or the full report once the run
// has one.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	view := s.tracker.View()
	page := statusPage{View: view, Cells: buildCells(view)}
	if rep := s.tracker.Report(); rep != nil {
		page.HasReport = true
		page.ReportHTML = report.HTML(rep)
	}
	if err := statusTemplate.Execute(w, page); err != nil {
		log.Printf("component=web action=render err=%v", err)
	}
}

// buildCells classifies every step for the grid. Later outcomes win when a
// step appears in more than one list.
func buildCells(view RunView) []stepCell {
	classes := make(map[int]string)
	for _, step := range view.Solved {
		classes[step] = "solved"
	}
	for _, step := range view.Skipped {
		classes[step] = "skipped"
	}
	for _, step := range view.Abandoned {
		classes[step] = "abandoned"
	}

	cells := make([]stepCell, 0, view.TotalSteps)
	for step := 1; step <= view.TotalSteps; step++ {
		class := classes[step]
		if step == view.CurrentStep && !view.Done {
			class += " current"
		}
		cells = append(cells, stepCell{Step: step, Class: class})
	}
	return cells
}

// handleState serves the live run view as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.View())
}

// handleEvents streams engine events as SSE: full history replay first, then
// live fan-out until the run finishes or the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sent := 0
	for {
		events, done := s.tracker.EventsSince(sent)
		for _, ev := range events {
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			sent++
		}
		if done {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(eventPollInterval):
		}
	}
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRuns lists archived runs, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no run archive attached"})
		return
	}
	runs, err := s.archive.RecentRuns(recentRunsLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = make([]store.RunSummary, 0)
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunByID serves one archived run as a full report document.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no run archive attached"})
		return
	}
	rep, ok, err := s.archive.RunByID(chi.URLParam(r, "runID"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
