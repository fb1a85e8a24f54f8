package workspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/checksum"
	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/syntax"
)

// EventCallback is called after a mutation of the tree or a buffer.
// kind is one of "created", "deleted", "updated".
type EventCallback func(kind string, path string)

// Workspace is one editor session: a single-rooted tree plus the buffers
// of its files. It is safe for concurrent use.
type Workspace struct {
	id      string
	created time.Time

	mu      sync.RWMutex
	root    *node
	buffers map[string]*Buffer
	active  string
	touched time.Time
	holds   int
	onEvent EventCallback
}

// New returns an empty workspace whose root is the working directory.
func New(id string) *Workspace {
	now := time.Now()
	return &Workspace{
		id:      id,
		created: now,
		touched: now,
		root:    &node{kind: KindDir},
		buffers: make(map[string]*Buffer),
	}
}

// ID returns the workspace identifier.
func (w *Workspace) ID() string { return w.id }

// CreatedAt returns when the workspace was opened.
func (w *Workspace) CreatedAt() time.Time { return w.created }

// OnEvent registers cb for subsequent mutations. Passing nil disables it.
func (w *Workspace) OnEvent(cb EventCallback) {
	w.mu.Lock()
	w.onEvent = cb
	w.mu.Unlock()
}

// LastTouched returns the time of the most recent operation.
func (w *Workspace) LastTouched() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.touched
}

// lookup resolves p to a node. Caller holds the lock.
func (w *Workspace) lookup(p string) (*node, error) {
	cur := w.root
	for _, part := range splitPath(p) {
		if cur.kind != KindDir {
			return nil, fmt.Errorf("workspace: %q: %w", p, apperr.ErrNotFound)
		}
		next := cur.child(part)
		if next == nil {
			return nil, fmt.Errorf("workspace: %q: %w", p, apperr.ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

func (w *Workspace) emit(cb EventCallback, kind string, paths ...string) {
	if cb == nil {
		return
	}
	for _, p := range paths {
		cb(kind, p)
	}
}

// Create inserts a node named name under the directory at parentPath and
// returns its path. A new file gets an empty buffer and becomes active.
func (w *Workspace) Create(parentPath, name string, kind Kind) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	w.mu.Lock()
	parent, err := w.lookup(parentPath)
	if err != nil {
		w.mu.Unlock()
		return "", err
	}
	if parent.kind != KindDir {
		w.mu.Unlock()
		return "", fmt.Errorf("workspace: %q: %w", parentPath, apperr.ErrNotADirectory)
	}
	if parent.child(name) != nil {
		w.mu.Unlock()
		return "", fmt.Errorf("workspace: %q in %q: %w", name, parentPath, apperr.ErrAlreadyExists)
	}

	n := &node{name: name, kind: kind, parent: parent}
	parent.children = append(parent.children, n)
	p := n.path()
	if kind == KindFile {
		mode, _ := syntax.Lookup(name)
		w.buffers[p] = &Buffer{Mode: mode}
		w.active = p
	}
	w.touched = time.Now()
	cb := w.onEvent
	w.mu.Unlock()

	w.emit(cb, "created", p)
	return p, nil
}

// CreateFromInput creates a directory when input ends with "/", a file
// otherwise.
func (w *Workspace) CreateFromInput(parentPath, input string) (string, Kind, error) {
	if strings.HasSuffix(input, "/") {
		p, err := w.Create(parentPath, strings.TrimSuffix(input, "/"), KindDir)
		return p, KindDir, err
	}
	p, err := w.Create(parentPath, input, KindFile)
	return p, KindFile, err
}

// Delete removes the node at p. Directories are only removed when confirm
// is true; every buffer beneath them goes with them.
func (w *Workspace) Delete(p string, confirm bool) error {
	w.mu.Lock()
	n, err := w.lookup(p)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if n == w.root {
		w.mu.Unlock()
		return fmt.Errorf("workspace: cannot delete the working directory: %w", apperr.ErrInvalidName)
	}
	if n.kind == KindDir && !confirm {
		w.mu.Unlock()
		return fmt.Errorf("workspace: deleting %q removes all files beneath it: %w", p, apperr.ErrConfirmationRequired)
	}

	var removed []string
	if n.kind == KindFile {
		removed = append(removed, n.path())
	} else {
		n.walkFiles(func(f *node) { removed = append(removed, f.path()) })
	}
	for _, fp := range removed {
		delete(w.buffers, fp)
		if w.active == fp {
			w.active = ""
		}
	}
	gone := n.path()
	n.parent.removeChild(n)
	n.parent = nil
	w.touched = time.Now()
	cb := w.onEvent
	w.mu.Unlock()

	if n.kind == KindDir {
		w.emit(cb, "deleted", removed...)
	}
	w.emit(cb, "deleted", gone)
	return nil
}

// Select makes the file at p the active buffer and returns its view.
func (w *Workspace) Select(p string) (*View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.lookup(p)
	if err != nil {
		return nil, err
	}
	if n.kind != KindFile {
		return nil, fmt.Errorf("workspace: %q: %w", p, apperr.ErrNotAFile)
	}
	key := n.path()
	buf := w.buffers[key]
	w.active = key
	w.touched = time.Now()
	return &View{
		Path:     key,
		Content:  buf.Text,
		Mode:     buf.Mode,
		Checksum: checksum.SumString(buf.Text),
	}, nil
}

// Hold marks the workspace as in use until the returned release is called.
// A held workspace is never idle, however long the hold lasts.
func (w *Workspace) Hold() (release func()) {
	w.mu.Lock()
	w.holds++
	w.touched = time.Now()
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.holds--
			w.touched = time.Now()
			w.mu.Unlock()
		})
	}
}

// idleSince returns the last-touched time, or false while the workspace is held.
func (w *Workspace) idleSince() (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.touched, w.holds == 0
}

// Active returns the path of the active buffer, or "" when none is shown.
func (w *Workspace) Active() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// Write replaces the text of the file at p. A non-empty ifMatch must equal
// the checksum of the current text.
func (w *Workspace) Write(p, content, ifMatch string) (*View, error) {
	w.mu.Lock()
	n, err := w.lookup(p)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if n.kind != KindFile {
		w.mu.Unlock()
		return nil, fmt.Errorf("workspace: %q: %w", p, apperr.ErrNotAFile)
	}
	key := n.path()
	buf := w.buffers[key]
	if ifMatch != "" && ifMatch != checksum.SumString(buf.Text) {
		w.mu.Unlock()
		return nil, fmt.Errorf("workspace: %q: %w", p, apperr.ErrConflict)
	}
	buf.Text = content
	w.touched = time.Now()
	view := &View{Path: key, Content: content, Mode: buf.Mode, Checksum: checksum.SumString(content)}
	cb := w.onEvent
	w.mu.Unlock()

	w.emit(cb, "updated", key)
	return view, nil
}

// WriteFile creates any missing parent directories and the file itself,
// then sets its text. An existing file is overwritten.
func (w *Workspace) WriteFile(p, content string) error {
	parts := splitPath(p)
	if len(parts) == 0 {
		return fmt.Errorf("workspace: empty file path: %w", apperr.ErrInvalidName)
	}
	parent := ""
	for _, dir := range parts[:len(parts)-1] {
		next := dir
		if parent != "" {
			next = parent + "/" + dir
		}
		if _, err := w.Create(parent, dir, KindDir); err != nil && !isExistingDir(w, next, err) {
			return err
		}
		parent = next
	}
	if _, err := w.Create(parent, parts[len(parts)-1], KindFile); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		return err
	}
	_, err := w.Write(p, content, "")
	return err
}

func isExistingDir(w *Workspace, p string, err error) bool {
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, lerr := w.lookup(p)
	return lerr == nil && n.kind == KindDir
}

// Snapshot serializes every buffer into a flat list in tree order.
// Directories contribute only the files beneath them.
func (w *Workspace) Snapshot() []models.File {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := []models.File{}
	w.root.walkFiles(func(f *node) {
		p := f.path()
		files = append(files, models.File{Name: p, Data: w.buffers[p].Text})
	})
	return files
}

// Tree returns the serializable form of the whole tree.
func (w *Workspace) Tree() *Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entry(w.root)
}

func (w *Workspace) entry(n *node) *Entry {
	e := &Entry{Name: n.name, Path: n.path(), Kind: n.kind}
	if n.kind == KindFile {
		e.Mode = w.buffers[e.Path].Mode.Name
		return e
	}
	e.Children = make([]*Entry, 0, len(n.children))
	for _, c := range n.children {
		e.Children = append(e.Children, w.entry(c))
	}
	return e
}

// Len returns the number of file buffers.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buffers)
}
