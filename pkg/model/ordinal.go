package model

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionPrefix is the fixed prefix of every version id.
const VersionPrefix = "V"

// FormatVersionID renders ordinal n as a version id, e.g. 3 -> "V3".
func FormatVersionID(n int) string {
	return VersionPrefix + strconv.Itoa(n)
}

// ParseVersionID returns the ordinal of a version id. Only the canonical
// form produced by FormatVersionID is accepted ("V01" and "V0" are rejected).
func ParseVersionID(id string) (int, error) {
	digits, ok := strings.CutPrefix(id, VersionPrefix)
	if !ok || digits == "" || digits[0] == '0' {
		return 0, fmt.Errorf("invalid version id %q", id)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version id %q", id)
	}
	return n, nil
}

// IsVersionID reports whether id is a canonical version id.
func IsVersionID(id string) bool {
	_, err := ParseVersionID(id)
	return err == nil
}

// MaxOrdinal returns the highest ordinal among the keys of versions, or 0.
// Keys that are not valid version ids are ignored.
func MaxOrdinal(versions map[string]AgentRuntimeVersion) int {
	highest := 0
	for id := range versions {
		if n, err := ParseVersionID(id); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
