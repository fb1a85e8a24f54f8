package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/starford/scratchpad/internal/storage"
)

// Import loads every file under dir of store into w, creating directories
// as needed. It returns the number of files loaded.
func Import(w *Workspace, store storage.Provider, dir string) (int, error) {
	metas, err := store.List(dir)
	if err != nil {
		return 0, err
	}
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return 0, err
		}
		if err := w.WriteFile(filepath.ToSlash(m.Path), string(data)); err != nil {
			return 0, fmt.Errorf("workspace: import %s: %w", m.Path, err)
		}
	}
	return len(metas), nil
}
