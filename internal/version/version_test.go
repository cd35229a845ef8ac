package version

import (
	"strings"
	"testing"
)

func TestString_UsesLdflags(t *testing.T) {
	prevCommit, prevBuilt := Commit, BuildTime
	t.Cleanup(func() { Commit, BuildTime = prevCommit, prevBuilt })

	Commit = "0123456789abcdef"
	BuildTime = "2026-01-05T09:00:00Z"

	got := String()
	if !strings.Contains(got, "commit: 0123456,") {
		t.Errorf("expected abbreviated commit, got %q", got)
	}
	if !strings.Contains(got, "built: 2026-01-05T09:00:00Z") {
		t.Errorf("expected build time, got %q", got)
	}
}

func TestAbbrev(t *testing.T) {
	if got := abbrev("abc"); got != "abc" {
		t.Errorf("abbrev(abc) = %q", got)
	}
	if got := abbrev("abcdef0123"); got != "abcdef0" {
		t.Errorf("abbrev(abcdef0123) = %q", got)
	}
}
