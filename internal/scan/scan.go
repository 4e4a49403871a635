// Package scan finds module source files on a search path and extracts
// their declared version strings with a deliberately tolerant, line-based
// heuristic. It does not attempt full language parsing: target files are
// allowed to compute versions with arbitrary dynamic expressions, and
// anything the narrow evaluator cannot handle is reported as "undef".
package scan

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// Entry is one module source file found on the search path.
type Entry struct {
	// Module is the name derived from the file's path relative to its
	// search root, e.g. lib/Foo/Bar.pm under root lib is Foo::Bar.
	Module string
	// Path is the file's full path.
	Path string
}

// moduleFileRe accepts only single-word module file names.
var moduleFileRe = regexp.MustCompile(`^\w+\.pm$`)

// Modules walks every root in order and returns the module files found
// under each. Roots that do not exist are skipped silently; the search
// path routinely lists directories that are not present on every host.
func Modules(roots []string) ([]Entry, error) {
	var entries []Entry
	for _, root := range roots {
		root := filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return fs.SkipAll
				}
				return err
			}
			if d.IsDir() || !moduleFileRe.MatchString(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			entries = append(entries, Entry{Module: moduleName(rel), Path: path})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// moduleName converts a root-relative file path into a module name.
func moduleName(rel string) string {
	rel = strings.TrimSuffix(rel, ".pm")
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "::")
}

// FindModuleFile probes the search roots for the source file of the named
// module and returns its path, or "" when the module is not installed.
func FindModuleFile(roots []string, module string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(module, "::", "/")) + ".pm"
	for _, root := range roots {
		path := filepath.Join(root, rel)
		if fileExists(path) {
			return path
		}
	}
	return ""
}
