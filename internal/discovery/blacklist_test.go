package discovery

import "testing"

func TestBlacklistExcludes(t *testing.T) {
	bl := Blacklist{
		AbsoluteDirs:    []string{"/var/log/secrets"},
		WildcardDirs:    []string{"/var/log/*/tmp"},
		FileNamePattern: []string{"*.bak"},
	}

	cases := map[string]bool{
		"/var/log/secrets/a.log":  true,
		"/var/log/web1/tmp/x.log": true,
		"/var/log/app.bak":        true,
		"/var/log/app.log":        false,
	}
	for path, want := range cases {
		if got := bl.Excludes(path); got != want {
			t.Errorf("Excludes(%q) = %v, want %v", path, got, want)
		}
	}
}
