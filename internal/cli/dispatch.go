package cli

// Operation identifies the single logical operation selected for an
// invocation. Exactly one operation executes per process.
type Operation int

const (
	// OpShell starts the interactive session. Selected only when argv is
	// completely empty.
	OpShell Operation = iota
	OpHelp
	OpVersion
	OpLoadConfig
	OpDumpConfig
	OpShowChanges
	OpShowAuthors
	OpShowDetails
	OpShowOutOfDate
	OpListAllModules
	OpShowAuthorMods
	OpAutobundle
	OpRecompile
	OpClean
	OpInstall
	OpMake
	OpTest
)

// String returns the user-facing name of the operation, as used in
// diagnostics like "Nothing to install!".
func (op Operation) String() string {
	switch op {
	case OpShell:
		return "shell"
	case OpHelp:
		return "help"
	case OpVersion:
		return "version"
	case OpLoadConfig:
		return "load-config"
	case OpDumpConfig:
		return "dump-config"
	case OpShowChanges:
		return "show-changes"
	case OpShowAuthors:
		return "show-author"
	case OpShowDetails:
		return "show-details"
	case OpShowOutOfDate:
		return "show-out-of-date"
	case OpListAllModules:
		return "list-all-modules"
	case OpShowAuthorMods:
		return "show-author-mods"
	case OpAutobundle:
		return "autobundle"
	case OpRecompile:
		return "recompile"
	case OpClean:
		return "clean"
	case OpInstall:
		return "install"
	case OpMake:
		return "make"
	case OpTest:
		return "test"
	}
	return "unknown"
}

// IsModuleAction reports whether the operation is one of the per-module
// build actions (clean / install / make / test).
func (op Operation) IsModuleAction() bool {
	switch op {
	case OpClean, OpInstall, OpMake, OpTest:
		return true
	}
	return false
}

// entry describes one switch in the dispatch table.
type entry struct {
	long      string // pflag long name, also used to query presence
	short     string // the historical single-character switch
	op        Operation
	takesArgs bool
	desc      string
}

// metaTable returns the meta switches in their fixed priority order. The
// first switch present on the command line wins and all later ones are
// silently ignored.
func metaTable() []entry {
	return []entry{
		{"help", "h", OpHelp, false, "print this help text and exit"},
		{"version", "v", OpVersion, false, "print the versions of gopan and its index client"},
		{"dump-config", "J", OpDumpConfig, false, "dump the active configuration to stdout"},
		{"changes", "C", OpShowChanges, true, "print the change log of each installed module"},
		{"author", "A", OpShowAuthors, true, "print the author of each module"},
		{"details", "D", OpShowDetails, true, "print details for each module"},
		{"out-of-date", "O", OpShowOutOfDate, false, "list installed modules that are out of date"},
		{"list-modules", "l", OpListAllModules, false, "list every module on the search path with its version"},
		{"author-modules", "L", OpShowAuthorMods, true, "list the modules of the given author ids"},
		{"autobundle", "a", OpAutobundle, false, "write a bundle snapshot of all installed modules"},
		{"recompile", "r", OpRecompile, false, "force-rebuild installed modules with compiled parts"},
	}
}

// actionTable returns the module-action switches in alphabetical order,
// which is the order they are tested in when no meta switch is present.
// The force switch is deliberately absent: it is a modifier, not an action.
func actionTable() []entry {
	return []entry{
		{"clean", "c", OpClean, true, "clean the build directory of each module"},
		{"install", "i", OpInstall, true, "install each module"},
		{"make", "m", OpMake, true, "configure and build each module"},
		{"test", "t", OpTest, true, "run the test suite of each module"},
	}
}
