package discovery

import "testing"

func TestMatcherRootDirForbiddenByDefault(t *testing.T) {
	m := NewMatcher(nil, false, false)
	globs := []GlobSpec{ParseGlobSpec("/*.log", 1)}
	if err := m.AddConfig("p1", globs, Blacklist{}); err == nil {
		t.Fatalf("expected root-dir collection to be rejected")
	}
}

func TestMatcherRootDirAllowedWithOptIn(t *testing.T) {
	m := NewMatcher(nil, true, false)
	globs := []GlobSpec{ParseGlobSpec("/*.log", 1)}
	if err := m.AddConfig("p1", globs, Blacklist{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMatcherFirstLoadedWinsOnConflict(t *testing.T) {
	m := NewMatcher(nil, false, false)
	globs := []GlobSpec{ParseGlobSpec("/var/log/app.log", 1)}
	if err := m.AddConfig("first", globs, Blacklist{}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddConfig("second", globs, Blacklist{}); err != nil {
		t.Fatal(err)
	}

	owner, ok := m.Consider("/var/log/app.log")
	if !ok || owner != "first" {
		t.Fatalf("owner = %q, ok=%v, want first", owner, ok)
	}
	// Re-considering the same path keeps the original owner even though
	// both configs still match.
	owner, ok = m.Consider("/var/log/app.log")
	if !ok || owner != "first" {
		t.Fatalf("owner = %q on second call, want first", owner)
	}
}

func TestMatcherMultiConfigOptIn(t *testing.T) {
	m := NewMatcher(nil, false, true)
	globs := []GlobSpec{ParseGlobSpec("/var/log/app.log", 1)}
	if err := m.AddConfig("first", globs, Blacklist{}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddConfig("second", globs, Blacklist{}); err != nil {
		t.Fatal(err)
	}

	matches := m.Matches("/var/log/app.log")
	if len(matches) != 2 {
		t.Fatalf("matches = %v, want both configs", matches)
	}
}

func TestMatcherBlacklistExcludesMatch(t *testing.T) {
	m := NewMatcher(nil, false, false)
	globs := []GlobSpec{ParseGlobSpec("/var/log/*.log", 1)}
	bl := Blacklist{FileNamePattern: []string{"debug*.log"}}
	if err := m.AddConfig("p1", globs, bl); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Consider("/var/log/debug1.log"); ok {
		t.Fatalf("expected blacklisted file to be excluded")
	}
	if _, ok := m.Consider("/var/log/app.log"); !ok {
		t.Fatalf("expected non-blacklisted file to match")
	}
}
