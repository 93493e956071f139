package fsevents

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindCreate:     "create",
		KindModify:     "modify",
		KindDelete:     "delete",
		KindDeleteSelf: "delete-self",
		KindMoveFrom:   "move-from",
		KindMoveTo:     "move-to",
		Kind(99):       "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestEventPath(t *testing.T) {
	e := Event{Dir: "/var/log", Basename: "app.log"}
	if got, want := e.Path(), "/var/log/app.log"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	e2 := Event{Basename: "app.log"}
	if got, want := e2.Path(), "app.log"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
