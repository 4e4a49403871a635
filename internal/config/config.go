package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Config mirrors the configuration surface of the wrapped package manager.
// Every field is optional in the file; zero values mean "unset" and are
// omitted again on Dump, which keeps Load and Dump mutual inverses.
type Config struct {
	// CpanHome is the tool's state directory (bundles, caches).
	CpanHome string `hcl:"cpan_home,optional"`
	// BuildDir is where distributions are unpacked and built.
	BuildDir string `hcl:"build_dir,optional"`
	// KeepSourceWhere caches downloaded index files and tarballs.
	KeepSourceWhere string `hcl:"keep_source_where,optional"`
	// URLList holds mirror base URLs, tried in order.
	URLList []string `hcl:"url_list,optional"`
	// IncPath holds the module search roots used to find installed modules.
	IncPath []string `hcl:"inc_path,optional"`

	PerlCommand    string `hcl:"perl_command,optional"`
	BuildCommand   string `hcl:"build_command,optional"`
	MakeplArg      string `hcl:"makepl_arg,optional"`
	MakeArg        string `hcl:"make_arg,optional"`
	MakeTestArg    string `hcl:"make_test_arg,optional"`
	MakeInstallArg string `hcl:"make_install_arg,optional"`

	// MetadbURL is the package metadata endpoint used to resolve a module
	// to its distribution file when the local index has no answer.
	MetadbURL string `hcl:"metadb_url,optional"`
	// HTTPTimeout bounds every network fetch, in seconds.
	HTTPTimeout int `hcl:"http_timeout,optional"`
}

// Default returns the configuration used when no -j file was given.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cpanHome := filepath.Join(home, ".gopan")
	cfg := &Config{
		CpanHome:        cpanHome,
		BuildDir:        filepath.Join(cpanHome, "build"),
		KeepSourceWhere: filepath.Join(cpanHome, "sources"),
		URLList:         []string{"https://www.cpan.org"},
		PerlCommand:     "perl",
		BuildCommand:    "make",
		MetadbURL:       "https://cpanmetadb.plackperl.org/v1.0/package",
		HTTPTimeout:     180,
	}
	if inc := os.Getenv("PERL5LIB"); inc != "" {
		cfg.IncPath = filepath.SplitList(inc)
	}
	return cfg
}

// Load reads and decodes an HCL configuration file. A missing or
// malformed file is a configuration error, fatal to the caller.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}
	return &cfg, nil
}

// Dump serializes the configuration to w in the same HCL form Load reads.
// Unset fields are omitted so the output reloads to an identical value.
func (c *Config) Dump(w io.Writer) error {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	setString := func(name, val string) {
		if val != "" {
			body.SetAttributeValue(name, cty.StringVal(val))
		}
	}
	setList := func(name string, vals []string) {
		if len(vals) == 0 {
			return
		}
		elems := make([]cty.Value, len(vals))
		for i, v := range vals {
			elems[i] = cty.StringVal(v)
		}
		body.SetAttributeValue(name, cty.ListVal(elems))
	}

	setString("cpan_home", c.CpanHome)
	setString("build_dir", c.BuildDir)
	setString("keep_source_where", c.KeepSourceWhere)
	setList("url_list", c.URLList)
	setList("inc_path", c.IncPath)
	setString("perl_command", c.PerlCommand)
	setString("build_command", c.BuildCommand)
	setString("makepl_arg", c.MakeplArg)
	setString("make_arg", c.MakeArg)
	setString("make_test_arg", c.MakeTestArg)
	setString("make_install_arg", c.MakeInstallArg)
	setString("metadb_url", c.MetadbURL)
	if c.HTTPTimeout != 0 {
		body.SetAttributeValue("http_timeout", cty.NumberIntVal(int64(c.HTTPTimeout)))
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
