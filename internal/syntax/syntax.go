// Package syntax infers the editing widget's syntax mode from a filename.
//
// Highlighting itself is the widget's job. This package only names the mode
// to load, mirroring the widget's find-by-filename lookup: special filenames
// first, then the lower-cased extension.
package syntax

import (
	"path"
	"regexp"
	"strings"
)

// Mode describes a syntax mode known to the editing widget.
type Mode struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Mode string `json:"mode"`

	ext  []string
	file *regexp.Regexp
}

var (
	byExt  map[string]Mode
	byFile []Mode
)

func init() {
	byExt = make(map[string]Mode)
	for _, m := range modes {
		for _, e := range m.ext {
			if _, dup := byExt[e]; !dup {
				byExt[e] = m
			}
		}
		if m.file != nil {
			byFile = append(byFile, m)
		}
	}
}

// Lookup returns the mode for filename. The second result is false when
// the name is not recognized; callers leave highlighting disabled then.
func Lookup(filename string) (Mode, bool) {
	base := path.Base(strings.TrimSuffix(filename, "/"))
	if base == "." || base == "/" || base == "" {
		return Mode{}, false
	}
	for _, m := range byFile {
		if m.file.MatchString(base) {
			return m, true
		}
	}
	dot := strings.LastIndex(base, ".")
	if dot < 0 || dot == len(base)-1 {
		return Mode{}, false
	}
	m, ok := byExt[strings.ToLower(base[dot+1:])]
	return m, ok
}

// ByName returns the mode with the given display name, case-insensitively.
func ByName(name string) (Mode, bool) {
	for _, m := range modes {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Mode{}, false
}

// All returns every known mode in table order.
func All() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}
