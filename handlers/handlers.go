// Package handlers exposes the catalog over HTTP. Every API response is a
// uniform {code, message, data} envelope; callers never see raw error
// types.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/abtswath/rubick/lib/catalog"
	"github.com/abtswath/rubick/lib/importer"
	"github.com/abtswath/rubick/lib/validation"
	"github.com/go-chi/chi/v5"
)

const (
	codeOK   = 0
	codeFail = 99999
)

// Response is the uniform API envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: codeOK, Message: "success", Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Code: codeFail, Message: message, Data: nil})
}

// HandleSearch returns flat search results. Search failures degrade to an
// empty result list instead of an error.
func HandleSearch(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyword, err := validation.Keyword(r.URL.Query().Get("keyword"))
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}

		results, err := c.Search(r.Context(), keyword)
		if err != nil {
			slog.Error("search failed", slog.String("keyword", keyword), slog.Any("error", err))
			ok(w, []catalog.SearchResult{})
			return
		}
		ok(w, results)
	}
}

// HandleResource returns the full resource tree, enriching it on first
// read.
func HandleResource(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			fail(w, http.StatusNotFound, "resource is not exists.")
			return
		}

		resource, err := c.Resource(r.Context(), id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fail(w, http.StatusNotFound, "resource is not exists.")
				return
			}
			slog.Error("failed to load resource", slog.Int64("id", id), slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to load resource")
			return
		}
		ok(w, resource)
	}
}

// HandleFavorites lists favorited resources.
func HandleFavorites(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := c.Favorites(r.Context())
		if err != nil {
			slog.Error("failed to list favorites", slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to list favorites")
			return
		}
		ok(w, entries)
	}
}

// HandleFavorite marks a resource as favorite; marking twice is a no-op.
func HandleFavorite(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := c.Favorite(r.Context(), id); err != nil {
			slog.Error("failed to favorite", slog.Int64("id", id), slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to favorite resource")
			return
		}
		ok(w, nil)
	}
}

// HandleUnfavorite removes the marker; removing an absent marker is fine.
func HandleUnfavorite(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := c.Unfavorite(r.Context(), id); err != nil {
			slog.Error("failed to unfavorite", slog.Int64("id", id), slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to unfavorite resource")
			return
		}
		ok(w, nil)
	}
}

// HandleStats reports catalog table counts and the initialized flag.
func HandleStats(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := c.Stats(r.Context())
		if err != nil {
			slog.Error("failed to load stats", slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		ok(w, stats)
	}
}

// HandleImport kicks off a background import. Progress is delivered over
// the events websocket, not this response.
func HandleImport(imp *importer.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := imp.Start(context.Background()); err != nil {
			if errors.Is(err, importer.ErrAlreadyRunning) {
				fail(w, http.StatusConflict, err.Error())
				return
			}
			slog.Error("failed to start import", slog.Any("error", err))
			fail(w, http.StatusInternalServerError, "failed to start import")
			return
		}
		ok(w, map[string]any{"phase": imp.Phase()})
	}
}
