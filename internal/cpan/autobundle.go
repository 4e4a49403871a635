package cpan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Autobundle writes a bundle snapshot naming every installed module and
// its version, in the bundle format the wrapped package manager can feed
// back to itself. Returns the path of the file written.
func (c *Client) Autobundle(ctx context.Context) (string, error) {
	mods, err := c.Modules(ctx)
	if err != nil {
		return "", err
	}

	bundleDir := filepath.Join(c.cfg.CpanHome, "Bundle")
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return "", err
	}
	name, path, err := nextBundleName(bundleDir, time.Now())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package Bundle::%s;\n\n", name)
	b.WriteString("$VERSION = '0.01';\n\n1;\n\n__END__\n\n")
	fmt.Fprintf(&b, "=head1 NAME\n\nBundle::%s - Snapshot of installation\n\n", name)
	b.WriteString("=head1 CONTENTS\n\n")
	for _, mod := range mods {
		if !mod.Installed() {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n\n", mod.Name, mod.InstalledVersion)
	}
	b.WriteString("=cut\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// nextBundleName picks the first unused Snapshot_<date>_<nn> name for the
// day, matching the naming of the wrapped package manager's own bundles.
func nextBundleName(dir string, now time.Time) (name, path string, err error) {
	date := now.Format("2006_01_02")
	for i := 0; i < 100; i++ {
		name = fmt.Sprintf("Snapshot_%s_%02d", date, i)
		path = filepath.Join(dir, name+".pm")
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return name, path, nil
		}
	}
	return "", "", fmt.Errorf("no free bundle name left under %s", dir)
}
