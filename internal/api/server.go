// Package api exposes the application state and controls over HTTP and a WebSocket event stream.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"knowthepast/pkg/version"
)

// NewServer creates and configures the HTTP server. staticDir holds the built front end;
// an empty or missing directory disables static serving.
func NewServer(addr string, app *App, stats *StatsHandler, hub *Hub, staticDir string) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     LoggingMiddleware(NewMux(app, stats, hub, staticDir)),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// NewMux registers every route.
func NewMux(app *App, stats *StatsHandler, hub *Hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// 1. Health & diagnostics
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/recent", handleRecentLogs)

	// 2. Discovery & panels
	mux.HandleFunc("GET /api/categories", app.HandleCategories)
	mux.HandleFunc("POST /api/discover", app.HandleDiscover)
	mux.HandleFunc("GET /api/state", app.HandleState)
	mux.HandleFunc("POST /api/panels/close", app.HandleClosePanels)
	mux.HandleFunc("POST /api/panels/{panel}/toggle", app.HandleTogglePanel)
	mux.HandleFunc("POST /api/error/dismiss", app.HandleDismissError)
	mux.HandleFunc("GET /api/history", app.HandleHistory)

	// 3. Visual story
	mux.HandleFunc("GET /api/story", app.HandleStory)
	mux.HandleFunc("POST /api/story/next", app.HandleStoryNext)
	mux.HandleFunc("POST /api/story/previous", app.HandleStoryPrevious)
	mux.HandleFunc("GET /api/story/slides/{index}/image", app.HandleSlideImage)

	// 4. Map
	mux.HandleFunc("GET /api/map/view", app.HandleMapView)
	mux.HandleFunc("POST /api/map/type/toggle", app.HandleToggleMapType)
	mux.HandleFunc("PUT /api/map/type/{type}", app.HandleSetMapType)

	// 5. Events
	if hub != nil {
		mux.Handle("GET /api/events", hub)
	}

	// 6. Static Frontend Serving (SPA)
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			mux.Handle("/", http.FileServer(&spaFileSystem{root: http.Dir(staticDir)}))
		} else {
			slog.Warn("Static directory not found, front end disabled", "dir", staticDir)
		}
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
