package cpan

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
)

// changeLogNames are the file names a distribution's change log goes by,
// tried in the order the archive presents them.
var changeLogNames = map[string]bool{
	"Changes":      true,
	"Changes.md":   true,
	"CHANGES":      true,
	"ChangeLog":    true,
	"CHANGELOG":    true,
	"CHANGELOG.md": true,
}

// Changes fetches the module's distribution tarball and returns the
// contents of its change log file.
func (c *Client) Changes(ctx context.Context, mod *Module) (string, error) {
	if mod.Distribution == "" {
		return "", fmt.Errorf("no distribution known for %s", mod.Name)
	}
	local, err := c.fetchFile(ctx, path.Join("authors/id", mod.Distribution), 0)
	if err != nil {
		return "", err
	}

	fh, err := os.Open(local)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	gz, err := gzip.NewReader(fh)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if hdr.Typeflag != tar.TypeReg || !changeLogNames[path.Base(hdr.Name)] {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("distribution %s carries no change log", mod.Distribution)
}
