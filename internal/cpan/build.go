package cpan

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/gopanpm/gopan/internal/ctxlog"
)

// statusFile records the outcome of the last build action inside an
// unpacked distribution directory. Without force, a recorded outcome is
// honored instead of re-running the chain.
const statusFile = ".gopan_status"

// buildStep is one externally executed command of the build chain.
type buildStep struct {
	name string
	argv func(c *Client) []string
}

var (
	stepConfigure = buildStep{"configure", func(c *Client) []string {
		return appendArgs([]string{c.cfg.PerlCommand, "Makefile.PL"}, c.cfg.MakeplArg)
	}}
	stepBuild = buildStep{"build", func(c *Client) []string {
		return appendArgs([]string{c.cfg.BuildCommand}, c.cfg.MakeArg)
	}}
	stepTest = buildStep{"test", func(c *Client) []string {
		return appendArgs([]string{c.cfg.BuildCommand, "test"}, c.cfg.MakeTestArg)
	}}
	stepInstall = buildStep{"install", func(c *Client) []string {
		return appendArgs([]string{c.cfg.BuildCommand, "install"}, c.cfg.MakeInstallArg)
	}}
	stepClean = buildStep{"clean", func(c *Client) []string {
		return []string{c.cfg.BuildCommand, "clean"}
	}}
)

// steps returns the chain of external commands an action runs, in order.
// Install implies test, which implies make, the same way the wrapped
// package manager chains its own actions.
func (a Action) steps() ([]buildStep, bool) {
	switch a {
	case ActionMake:
		return []buildStep{stepConfigure, stepBuild}, true
	case ActionTest:
		return []buildStep{stepConfigure, stepBuild, stepTest}, true
	case ActionInstall:
		return []buildStep{stepConfigure, stepBuild, stepTest, stepInstall}, true
	case ActionClean:
		return []buildStep{stepClean}, true
	}
	return nil, false
}

// Run performs one build action for one module: resolve the distribution,
// fetch and unpack it, then run the action's command chain in the
// unpacked directory.
func (c *Client) Run(ctx context.Context, act Action, force bool, module string) error {
	logger := ctxlog.FromContext(ctx)
	chain, ok := act.steps()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, act)
	}

	distfile, err := c.resolveDistfile(ctx, module)
	if err != nil {
		return err
	}

	if act == ActionClean {
		// Clean only touches an existing build directory; nothing cached
		// means there is nothing to clean.
		dir := filepath.Join(c.cfg.BuildDir, distRootName(distfile))
		if _, err := os.Stat(dir); err != nil {
			logger.Info("Nothing unpacked for module, skipping clean.", "module", module)
			return nil
		}
		return c.runChain(ctx, dir, act, chain)
	}

	local, err := c.fetchFile(ctx, path.Join("authors/id", distfile), 0)
	if err != nil {
		return err
	}
	dir, err := c.unpack(ctx, local)
	if err != nil {
		return fmt.Errorf("error during unpack of %s: %w", distfile, err)
	}

	if !force {
		if done, failure := readStatus(dir, act); done {
			if failure == "" {
				logger.Info("Action already ran for module, skipping.", "action", act.String(), "module", module)
				return nil
			}
			return fmt.Errorf("%s previously failed for %s (use force to retry): %s", act, module, failure)
		}
	}
	return c.runChain(ctx, dir, act, chain)
}

// runChain executes the build steps in dir and records the outcome.
func (c *Client) runChain(ctx context.Context, dir string, act Action, chain []buildStep) error {
	logger := ctxlog.FromContext(ctx)
	for _, step := range chain {
		argv := step.argv(c)
		logger.Info("Running build step.", "step", step.name, "dir", dir, "argv", argv)
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		cmd.Stdout = c.out
		cmd.Stderr = c.out
		if err := cmd.Run(); err != nil {
			err = fmt.Errorf("%s step failed in %s: %w", step.name, dir, err)
			writeStatus(dir, act, err.Error())
			return err
		}
	}
	writeStatus(dir, act, "")
	return nil
}

// Recompile force-rebuilds every installed module that carries compiled
// parts, identified by shared objects under the auto/ trees of the search
// path. Per-module failures do not stop the sweep.
func (c *Client) Recompile(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	modules := compiledModules(c.cfg.IncPath)
	if len(modules) == 0 {
		logger.Info("No modules with compiled parts found.")
		return nil
	}

	var failed int
	for _, module := range modules {
		if err := c.Run(ctx, ActionInstall, true, module); err != nil {
			logger.Error("Recompile failed for module.", "module", module, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("recompile failed for %d of %d modules", failed, len(modules))
	}
	return nil
}

// compiledModules maps auto/Foo/Bar/Bar.so style artifacts back to module
// names, deduplicated, across every search root.
func compiledModules(roots []string) []string {
	seen := make(map[string]bool)
	var modules []string
	for _, root := range roots {
		autoDir := filepath.Join(root, "auto")
		filepath.WalkDir(autoDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return fs.SkipAll
			}
			if d.IsDir() || !compiledArtifact(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(autoDir, filepath.Dir(p))
			if err != nil || rel == "." {
				return nil
			}
			module := strings.ReplaceAll(filepath.ToSlash(rel), "/", "::")
			if !seen[module] {
				seen[module] = true
				modules = append(modules, module)
			}
			return nil
		})
	}
	return modules
}

func compiledArtifact(name string) bool {
	switch filepath.Ext(name) {
	case ".so", ".bundle", ".dll", ".dylib":
		return true
	}
	return false
}

// unpack extracts a gzipped tarball under the build directory and returns
// the distribution's root directory. An existing directory is reused.
func (c *Client) unpack(ctx context.Context, tarball string) (string, error) {
	fh, err := os.Open(tarball)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	gz, err := gzip.NewReader(fh)
	if err != nil {
		return "", err
	}
	defer gz.Close()

	root := ""
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		name := path.Clean(hdr.Name)
		if name == "." || strings.HasPrefix(name, "..") || path.IsAbs(name) {
			continue
		}
		if root == "" {
			root = strings.SplitN(name, "/", 2)[0]
			if dir := filepath.Join(c.cfg.BuildDir, root); dirExists(dir) {
				ctxlog.FromContext(ctx).Debug("Distribution already unpacked.", "dir", dir)
				return dir, nil
			}
		}

		target := filepath.Join(c.cfg.BuildDir, filepath.FromSlash(name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", err
			}
			if err := out.Close(); err != nil {
				return "", err
			}
		}
	}
	if root == "" {
		return "", fmt.Errorf("tarball %s is empty", tarball)
	}
	return filepath.Join(c.cfg.BuildDir, root), nil
}

// distRootName guesses the directory a distribution unpacks to from its
// file name, e.g. Foo-Bar-1.23.tar.gz unpacks to Foo-Bar-1.23.
func distRootName(distfile string) string {
	base := path.Base(distfile)
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar.bz2", ".zip"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// readStatus reports whether the action already ran in dir and, if it
// failed, the recorded failure message.
func readStatus(dir string, act Action) (done bool, failure string) {
	data, err := os.ReadFile(filepath.Join(dir, statusFile))
	if err != nil {
		return false, ""
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		name, rest, ok := strings.Cut(line, " ")
		if !ok || name != act.String() {
			continue
		}
		if rest == "ok" {
			return true, ""
		}
		return true, strings.TrimPrefix(rest, "failed: ")
	}
	return false, ""
}

// writeStatus records the action's outcome in dir, replacing any previous
// record for the same action.
func writeStatus(dir string, act Action, failure string) {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(dir, statusFile)); err == nil {
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if name, _, ok := strings.Cut(line, " "); ok && name == act.String() {
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	outcome := "ok"
	if failure != "" {
		outcome = "failed: " + strings.ReplaceAll(failure, "\n", " ")
	}
	lines = append(lines, act.String()+" "+outcome)
	os.WriteFile(filepath.Join(dir, statusFile), []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// appendArgs splits a configured argument string and appends it to argv.
func appendArgs(argv []string, args string) []string {
	if args == "" {
		return argv
	}
	return append(argv, strings.Fields(args)...)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
