// Package web serves the editor pages. Templates are read from an embedded
// copy by default, or from a directory on disk that is watched and
// reloaded on change.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed assets
var embedded embed.FS

// IndexData feeds index.html.
type IndexData struct {
	Languages []string
}

// LanguageData feeds lang.html.
type LanguageData struct {
	Language string
	Version  string
	RunURL   string
}

// Templates holds the parsed page templates.
type Templates struct {
	dir    string // "" when serving the embedded copy
	fsys   fs.FS
	logger *slog.Logger

	mu   sync.RWMutex
	tmpl *template.Template
}

// NewTemplates parses the page templates from dir, or from the embedded
// assets when dir is empty.
func NewTemplates(dir string, logger *slog.Logger) (*Templates, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, "assets")
		if err != nil {
			return nil, fmt.Errorf("web: embedded assets: %w", err)
		}
		fsys = sub
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("web: templates dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("web: templates dir is not a directory: %s", dir)
		}
		fsys = os.DirFS(dir)
	}
	t := &Templates{dir: dir, fsys: fsys, logger: logger}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses every *.html template.
func (t *Templates) Reload() error {
	tmpl, err := template.ParseFS(t.fsys, "*.html")
	if err != nil {
		return fmt.Errorf("web: parse templates: %w", err)
	}
	t.mu.Lock()
	t.tmpl = tmpl
	t.mu.Unlock()
	return nil
}

// FS returns the file system static assets are served from.
func (t *Templates) FS() fs.FS { return t.fsys }

// Index renders the landing page.
func (t *Templates) Index(w io.Writer, data IndexData) error {
	return t.execute(w, "index.html", data)
}

// Language renders the editor page for one language/version.
func (t *Templates) Language(w io.Writer, data LanguageData) error {
	return t.execute(w, "lang.html", data)
}

func (t *Templates) execute(w io.Writer, name string, data any) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tmpl.ExecuteTemplate(w, name, data)
}

// Watch reloads templates whenever a file in the templates directory
// changes, until ctx is cancelled. It returns immediately for the
// embedded copy.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("web: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(t.dir); err != nil {
		return fmt.Errorf("web: watch %s: %w", t.dir, err)
	}
	t.logger.Info("web: watching templates", slog.String("dir", t.dir))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("web: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Lazy: reparse everything on any change.
			if err := t.Reload(); err != nil {
				t.logger.Error("web: reload templates failed", slog.String("file", ev.Name), slog.String("error", err.Error()))
				continue
			}
			t.logger.Debug("web: templates reloaded", slog.String("file", ev.Name))

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			t.logger.Error("web: watcher error", slog.String("error", werr.Error()))
		}
	}
}
