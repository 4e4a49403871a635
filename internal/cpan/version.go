package cpan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders two CPAN version strings, returning -1, 0 or 1.
// Both semver-shaped versions ("1.2.3", "v5.10.1") and the classic decimal
// form with underscore separators ("1.23_01") occur in the wild, so the
// comparison degrades gracefully: semver first, then numeric, then lexical.
func CompareVersions(a, b string) int {
	a, b = normalizeVersion(a), normalizeVersion(b)

	// Classic decimal versions ("0.01" vs "0.1") must compare as numbers;
	// a dotted-segment parser would read them as 0.1.0 either way.
	if decimalRe.MatchString(a) && decimalRe.MatchString(b) {
		af, _ := strconv.ParseFloat(a, 64)
		bf, _ := strconv.ParseFloat(b, 64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}

	if av, err := semver.NewVersion(a); err == nil {
		if bv, err := semver.NewVersion(b); err == nil {
			return av.Compare(bv)
		}
	}

	return strings.Compare(a, b)
}

// decimalRe matches plain decimal version strings with at most one dot.
var decimalRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// normalizeVersion strips the decorations that defeat the stricter
// parsers: a leading "v" and the underscore used to mark developer
// releases.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(strings.TrimPrefix(v, "v"))
	return strings.ReplaceAll(v, "_", "")
}
