// Package workspace maintains the editor's working directory: a tree of
// file and directory nodes, the registry binding every file to its text
// buffer, and the single active buffer shown in the editor.
package workspace

import (
	"fmt"
	"strings"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/syntax"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// String returns "file" or "dir".
func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "file":
		*k = KindFile
	case "dir":
		*k = KindDir
	default:
		return fmt.Errorf("workspace: unknown kind %q", b)
	}
	return nil
}

// node is a file or directory in the tree. Paths are derived from the
// ancestor chain and never stored.
type node struct {
	name     string
	kind     Kind
	parent   *node
	children []*node // dirs only
}

func (n *node) path() string {
	if n.parent == nil {
		return ""
	}
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) removeChild(target *node) {
	for i, c := range n.children {
		if c == target {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// walkFiles visits every descendant file in pre-order, child order.
func (n *node) walkFiles(fn func(*node)) {
	for _, c := range n.children {
		if c.kind == KindFile {
			fn(c)
		} else {
			c.walkFiles(fn)
		}
	}
}

// Buffer is the text owned by one file node.
type Buffer struct {
	Text string
	Mode syntax.Mode
}

// Entry is the serializable form of a node returned by Tree.
type Entry struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Kind     Kind     `json:"kind"`
	Mode     string   `json:"mode,omitempty"`
	Children []*Entry `json:"children,omitempty"`
}

// View is what the editor shows after a file is selected.
type View struct {
	Path     string      `json:"path"`
	Content  string      `json:"content"`
	Mode     syntax.Mode `json:"mode"`
	Checksum string      `json:"checksum"`
}

// validName rejects names that would make a derived path ambiguous.
func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", apperr.ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", apperr.ErrInvalidName, name)
	}
	return nil
}

// splitPath cleans a slash-separated workspace path into its components.
// The empty path addresses the root.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
