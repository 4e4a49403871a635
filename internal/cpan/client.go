package cpan

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/gopanpm/gopan/internal/config"
	"github.com/gopanpm/gopan/internal/ctxlog"
	"github.com/gopanpm/gopan/internal/scan"
)

// Version is the index client version, printed next to the tool version.
const Version = "0.9.3"

// indexMaxAge bounds how long a cached index file is trusted before it is
// fetched again.
const indexMaxAge = 24 * time.Hour

// Client is the index-backed Shell implementation. It caches fetched
// index files and tarballs under the configured source directory and
// shells out to the external build chain for the module actions.
type Client struct {
	cfg   *config.Config
	httpc *http.Client
	out   io.Writer

	index   *Index
	authors map[string]*Author
}

var _ Shell = (*Client)(nil)

// NewClient builds a Client on the given configuration. Build output and
// change logs are written to out.
func NewClient(cfg *config.Config, out io.Writer) *Client {
	timeout := time.Duration(cfg.HTTPTimeout) * time.Second
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: timeout},
		out:   out,
	}
}

// Expand resolves one module name against the package index and the local
// search path.
func (c *Client) Expand(ctx context.Context, name string) (*Module, error) {
	if err := c.ensureIndex(ctx); err != nil {
		return nil, err
	}
	version, distfile, known := c.index.Lookup(name)

	mod := &Module{Name: name}
	if known {
		mod.UpstreamVersion = version
		mod.Distribution = distfile
		mod.AuthorID = authorIDFromDistfile(distfile)
	}
	if file := scan.FindModuleFile(c.cfg.IncPath, name); file != "" {
		mod.InstalledFile = file
		v, err := scan.ParseVersionFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installed file for %s: %w", name, err)
		}
		mod.InstalledVersion = v
	}
	if !known && !mod.Installed() {
		return nil, fmt.Errorf("module %s is not in the package index", name)
	}
	return mod, nil
}

// Modules enumerates the whole package index, with the installed side of
// each record filled in from the local search path.
func (c *Client) Modules(ctx context.Context) ([]*Module, error) {
	if err := c.ensureIndex(ctx); err != nil {
		return nil, err
	}
	mods := make([]*Module, 0, c.index.Len())
	for _, name := range c.index.Names() {
		version, distfile, _ := c.index.Lookup(name)
		mod := &Module{
			Name:            name,
			UpstreamVersion: version,
			Distribution:    distfile,
			AuthorID:        authorIDFromDistfile(distfile),
		}
		if file := scan.FindModuleFile(c.cfg.IncPath, name); file != "" {
			mod.InstalledFile = file
			if v, err := scan.ParseVersionFile(file); err == nil {
				mod.InstalledVersion = v
			}
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// Author looks up an author id, case-insensitively.
func (c *Client) Author(ctx context.Context, id string) (*Author, error) {
	if err := c.ensureAuthors(ctx); err != nil {
		return nil, err
	}
	author, ok := c.authors[strings.ToUpper(id)]
	if !ok {
		return nil, fmt.Errorf("author %s is not in the author index", id)
	}
	return author, nil
}

// ensureIndex fetches and parses the package index once per Client.
func (c *Client) ensureIndex(ctx context.Context) error {
	if c.index != nil {
		return nil
	}
	local, err := c.fetchFile(ctx, packagesFile, indexMaxAge)
	if err != nil {
		return fmt.Errorf("package %w: %v", ErrIndexUnavailable, err)
	}
	rdr, closeAll, err := openGzip(local)
	if err != nil {
		return err
	}
	defer closeAll()
	ix, err := parsePackagesIndex(rdr)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Package index loaded.", "modules", ix.Len())
	c.index = ix
	return nil
}

// ensureAuthors fetches and parses the author index once per Client.
func (c *Client) ensureAuthors(ctx context.Context) error {
	if c.authors != nil {
		return nil
	}
	local, err := c.fetchFile(ctx, mailrcFile, indexMaxAge)
	if err != nil {
		return fmt.Errorf("author %w: %v", ErrIndexUnavailable, err)
	}
	rdr, closeAll, err := openGzip(local)
	if err != nil {
		return err
	}
	defer closeAll()
	authors, err := parseMailrc(rdr)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Author index loaded.", "authors", len(authors))
	c.authors = authors
	return nil
}

// fetchFile downloads an index-relative file from the first mirror that
// answers, caching it under keep_source_where. A cached copy younger than
// maxAge is reused without touching the network; maxAge <= 0 means the
// cache never expires.
func (c *Client) fetchFile(ctx context.Context, rel string, maxAge time.Duration) (string, error) {
	logger := ctxlog.FromContext(ctx)
	local := filepath.Join(c.cfg.KeepSourceWhere, filepath.FromSlash(rel))
	if st, err := os.Stat(local); err == nil {
		if maxAge <= 0 || time.Since(st.ModTime()) < maxAge {
			logger.Debug("Using cached file.", "path", local)
			return local, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", err
	}

	var lastErr error
	for _, base := range c.cfg.URLList {
		url := strings.TrimSuffix(base, "/") + "/" + rel
		logger.Debug("Fetching.", "url", url)
		if err := c.downloadTo(ctx, url, local); err != nil {
			logger.Warn("Mirror fetch failed.", "url", url, "error", err)
			lastErr = err
			continue
		}
		return local, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no mirror urls configured")
	}
	return "", fmt.Errorf("failed to fetch %s: %w", rel, lastErr)
}

// downloadTo streams one URL into local, atomically via a temp file.
func (c *Client) downloadTo(ctx context.Context, url, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code = %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), local)
}

// resolveDistfile maps a module name to its distribution path, preferring
// the local index and falling back to the metadata service.
func (c *Client) resolveDistfile(ctx context.Context, name string) (string, error) {
	if err := c.ensureIndex(ctx); err == nil {
		if _, distfile, ok := c.index.Lookup(name); ok {
			return distfile, nil
		}
	}
	if c.cfg.MetadbURL == "" {
		return "", fmt.Errorf("could not resolve a distribution for %s", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.MetadbURL+"/"+name, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not resolve a distribution for %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not resolve a distribution for %s: status code = %d", name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var meta struct {
		Distfile string `yaml:"distfile"`
	}
	if err := yaml.Unmarshal(body, &meta); err != nil {
		return "", fmt.Errorf("bad metadata for %s: %w", name, err)
	}
	if meta.Distfile == "" {
		return "", fmt.Errorf("could not resolve a distribution for %s", name)
	}
	ctxlog.FromContext(ctx).Debug("Metadata service resolved distribution.", "module", name, "distfile", meta.Distfile)
	return meta.Distfile, nil
}

// openGzip opens a gzip file and returns the decompressing reader plus a
// close function covering both layers.
func openGzip(path string) (io.Reader, func(), error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return gz, func() {
		gz.Close()
		fh.Close()
	}, nil
}
