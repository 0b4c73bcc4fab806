// Package deps checks the host tooling wsmongo depends on.
package deps

import (
	"strconv"
	"strings"
)

// CompareVersions compares two "X.Y.Z" strings.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func CompareVersions(a, b string) int {
	aParts := ParseVersion(a)
	bParts := ParseVersion(b)

	for i := 0; i < 3; i++ {
		if aParts[i] < bParts[i] {
			return -1
		}
		if aParts[i] > bParts[i] {
			return 1
		}
	}
	return 0
}

// AtLeast reports whether version meets min.
func AtLeast(version, min string) bool {
	return CompareVersions(version, min) >= 0
}

// ParseVersion parses "X.Y.Z" into [3]int. A leading "v" and any pre-release
// or build suffix ("-rc1", "+dfsg") are ignored; non-numeric parts become 0.
func ParseVersion(v string) [3]int {
	var parts [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	split := strings.Split(v, ".")
	for i := 0; i < 3 && i < len(split); i++ {
		parts[i], _ = strconv.Atoi(split[i])
	}
	return parts
}
