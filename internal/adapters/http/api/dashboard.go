package api

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*.html static/*.js
var staticFiles embed.FS

// pages holds the embedded files with the static/ prefix stripped.
var pages = mustSub(staticFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// dashboardHandler serves the embedded owner pages and the tracker script.
type dashboardHandler struct{}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests. The page asks for the PIN
// and renders /stats client-side.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "dashboard.html")
}

// HandleOwner handles GET /owner requests with a page that prints the raw
// /stats response.
func (h *dashboardHandler) HandleOwner(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "owner.html")
}

// HandleTrackerScript handles GET /tracker.js with the browser snippet that
// posts page_view and search events to /track.
func (h *dashboardHandler) HandleTrackerScript(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "tracker.js")
}

func (h *dashboardHandler) serve(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, pages, name)
}
