package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"knowthepast/pkg/model"
	"knowthepast/pkg/session"
)

// DiscoverRequest is the body of POST /api/discover.
type DiscoverRequest struct {
	Category string `json:"category"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// HandleCategories handles GET /api/categories.
func (a *App) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.categories.Categories)
}

// HandleDiscover handles POST /api/discover. The result arrives asynchronously on the events stream.
func (a *App) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := a.Discover(req.Category); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, a.session.Snapshot())
}

// HandleState handles GET /api/state.
func (a *App) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.State())
}

// HandleTogglePanel handles POST /api/panels/{panel}/toggle.
func (a *App) HandleTogglePanel(w http.ResponseWriter, r *http.Request) {
	panel, ok := session.ParsePanel(r.PathValue("panel"))
	if !ok {
		http.Error(w, "unknown panel", http.StatusBadRequest)
		return
	}
	a.session.TogglePanel(panel)
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

// HandleClosePanels handles POST /api/panels/close.
func (a *App) HandleClosePanels(w http.ResponseWriter, r *http.Request) {
	a.session.Close()
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

// HandleDismissError handles POST /api/error/dismiss.
func (a *App) HandleDismissError(w http.ResponseWriter, r *http.Request) {
	a.session.DismissError()
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

// HandleStory handles GET /api/story.
func (a *App) HandleStory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.story.State())
}

// HandleStoryNext handles POST /api/story/next.
func (a *App) HandleStoryNext(w http.ResponseWriter, r *http.Request) {
	a.story.Next()
	writeJSON(w, http.StatusOK, a.story.State())
}

// HandleStoryPrevious handles POST /api/story/previous.
func (a *App) HandleStoryPrevious(w http.ResponseWriter, r *http.Request) {
	a.story.Previous()
	writeJSON(w, http.StatusOK, a.story.State())
}

// HandleSlideImage handles GET /api/story/slides/{index}/image.
// Images that are still rendering answer 202 and failed ones 404, both with the status as JSON.
func (a *App) HandleSlideImage(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid slide index", http.StatusBadRequest)
		return
	}
	img, status, err := a.story.Image(idx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	switch status {
	case model.ImageLoaded:
		w.Header().Set("Content-Type", img.MIMEType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		if _, err := w.Write(img.Data); err != nil {
			slog.Error("Failed to write slide image", "index", idx, "error", err)
		}
	case model.ImageError:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": string(status)})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(status)})
	}
}

// HandleMapView handles GET /api/map/view.
func (a *App) HandleMapView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.mapView.View())
}

// HandleToggleMapType handles POST /api/map/type/toggle.
func (a *App) HandleToggleMapType(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.ToggleMapType())
}

// HandleSetMapType handles PUT /api/map/type/{type}.
func (a *App) HandleSetMapType(w http.ResponseWriter, r *http.Request) {
	v, err := a.SetMapType(r.PathValue("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleHistory handles GET /api/history?limit=N (default 20, max 100).
func (a *App) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 100)
	}
	places, err := a.History(limit)
	if err != nil {
		slog.Error("Failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, places)
}
