package cpan

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// mailrcFile is the index path of the author list, relative to a mirror.
const mailrcFile = "authors/01mailrc.txt.gz"

// mailrcLineRe matches one author alias line:
//
//	alias ABCDE "Full Name <someone@example.org>"
var mailrcLineRe = regexp.MustCompile(`^alias\s+(\S+)\s+"(.*)"\s*$`)

// parseMailrc reads the uncompressed 01mailrc payload into an author map
// keyed by upper-cased author id.
func parseMailrc(r io.Reader) (map[string]*Author, error) {
	authors := make(map[string]*Author)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := mailrcLineRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		id := strings.ToUpper(m[1])
		name, email := splitAddress(m[2])
		authors[id] = &Author{ID: id, FullName: name, Email: email}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read author index: %w", err)
	}
	return authors, nil
}

// splitAddress breaks `Full Name <address>` apart. Some historical entries
// carry no address part at all.
func splitAddress(s string) (name, email string) {
	open := strings.LastIndex(s, "<")
	if open < 0 || !strings.HasSuffix(s, ">") {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:open]), strings.TrimSuffix(s[open+1:], ">")
}
