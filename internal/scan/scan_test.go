package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func TestModules(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"Baz.pm":           "our $VERSION = '0.1';\n",
		"Foo/Bar.pm":       "our $VERSION = '1.23';\n",
		"Foo/Bar/Deep.pm":  "1;\n",
		"not-a-module.pm":  "our $VERSION = '9.9';\n", // hyphen: not a single word
		"Foo/readme.txt":   "not a module file\n",
		"Foo/Bar.pm.orig":  "leftover\n",
		"scripts/tool.pl":  "#!perl\n",
		"Foo/.hidden/X.pm": "our $VERSION = '0.2';\n", // still a single-word file name
	})

	entries, err := Modules([]string{root})
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Module)
	}
	// WalkDir visits lexically, and "Bar" sorts before "Bar.pm".
	want := []string{"Baz", "Foo::.hidden::X", "Foo::Bar::Deep", "Foo::Bar"}
	require.Empty(t, cmp.Diff(want, names))
}

func TestModules_MissingRootIsSkipped(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"Baz.pm": "1;\n"})
	entries, err := Modules([]string{filepath.Join(root, "no-such-dir"), root})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Baz", entries[0].Module)
}

func TestModules_MultipleRootsKeepOrder(t *testing.T) {
	t.Parallel()

	first := writeTree(t, map[string]string{"A.pm": "1;\n"})
	second := writeTree(t, map[string]string{"B.pm": "1;\n"})

	entries, err := Modules([]string{first, second})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "A", entries[0].Module)
	require.Equal(t, "B", entries[1].Module)
}

func TestFindModuleFile(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"Foo/Bar.pm": "our $VERSION = '1.23';\n"})

	path := FindModuleFile([]string{root}, "Foo::Bar")
	require.Equal(t, filepath.Join(root, "Foo", "Bar.pm"), path)

	require.Empty(t, FindModuleFile([]string{root}, "No::Such"))
	require.Empty(t, FindModuleFile(nil, "Foo::Bar"))
}

func TestParseVersionFile(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"Foo.pm": "our $VERSION = '2.2';\n"})
	v, err := ParseVersionFile(filepath.Join(root, "Foo.pm"))
	require.NoError(t, err)
	require.Equal(t, "2.2", v)

	_, err = ParseVersionFile(filepath.Join(root, "missing.pm"))
	require.Error(t, err)
}
