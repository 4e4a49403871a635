package cpan

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// packagesFile is the index path of the module list, relative to a mirror.
const packagesFile = "modules/02packages.details.txt.gz"

// indexEntry is one row of the package index.
type indexEntry struct {
	version  string
	distfile string
}

// Index is the parsed package index: module name to version and
// distribution file.
type Index struct {
	entries map[string]indexEntry
	order   []string
}

// Len returns the number of indexed modules.
func (ix *Index) Len() int { return len(ix.entries) }

// Lookup returns the index row for a module name.
func (ix *Index) Lookup(name string) (version, distfile string, ok bool) {
	e, ok := ix.entries[name]
	return e.version, e.distfile, ok
}

// Names returns every indexed module name in index order.
func (ix *Index) Names() []string { return ix.order }

// parsePackagesIndex reads the uncompressed 02packages payload: a header
// of "Key: value" lines, a blank separator, then one module per line with
// whitespace-separated version and distribution file columns.
func parsePackagesIndex(r io.Reader) (*Index, error) {
	ix := &Index{entries: make(map[string]indexEntry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		if inHeader {
			if strings.TrimSpace(line) == "" {
				inHeader = false
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := fields[0]
		if _, dup := ix.entries[name]; dup {
			continue
		}
		ix.entries[name] = indexEntry{version: fields[1], distfile: fields[2]}
		ix.order = append(ix.order, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read package index: %w", err)
	}
	if inHeader {
		return nil, fmt.Errorf("package index has no header/body separator")
	}
	return ix, nil
}

// authorIDFromDistfile extracts the author id out of an index-relative
// distribution path like "A/AB/ABCDE/Foo-1.23.tar.gz".
func authorIDFromDistfile(distfile string) string {
	parts := strings.Split(distfile, "/")
	if len(parts) < 4 {
		return ""
	}
	return parts[2]
}
