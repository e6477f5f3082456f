// ABOUTME: Tests for version constants
// ABOUTME: Checks the semver shape and the combined version string
package version

import (
	"regexp"
	"testing"
)

func TestConstants(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+$`)

	tests := []struct {
		name  string
		value string
		check func(string) bool
	}{
		{"Version", Version, semver.MatchString},
		{"Product", Product, func(s string) bool { return s != "" && len(s) <= 64 }},
		{"Manufacturer", Manufacturer, func(s string) bool { return s != "" && len(s) <= 64 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.value) {
				t.Errorf("unexpected %s %q", tt.name, tt.value)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got, want := String(), "audiostream "+Version; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
