package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Handler serves the editor pages and their static assets.
type Handler struct {
	tmpl      *Templates
	languages []string
}

// NewHandler creates a page handler listing languages on the index page.
func NewHandler(tmpl *Templates, languages []string) *Handler {
	return &Handler{tmpl: tmpl, languages: languages}
}

// Register mounts the page routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Home)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(h.tmpl.FS())))
	r.Get("/lang/{language}", h.LatestRedirect)
	r.Get("/lang/{language}/{version}", h.LanguagePage)
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Index(w, IndexData{Languages: h.languages}); err != nil {
		slog.Error("render index failed", slog.String("uri", r.RequestURI), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// LanguagePage handles GET /lang/{language}/{version}.
func (h *Handler) LanguagePage(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "language")
	version := chi.URLParam(r, "version")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := h.tmpl.Language(w, LanguageData{
		Language: lang,
		Version:  version,
		RunURL:   fmt.Sprintf("/lang/%s/%s", url.PathEscape(lang), url.PathEscape(version)),
	})
	if err != nil {
		slog.Error("render language page failed", slog.String("uri", r.RequestURI), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// LatestRedirect handles GET /lang/{language} by redirecting to its latest version.
func (h *Handler) LatestRedirect(w http.ResponseWriter, r *http.Request) {
	target := fmt.Sprintf("/lang/%s/latest", url.PathEscape(chi.URLParam(r, "language")))
	http.Redirect(w, r, target, http.StatusFound)
}
