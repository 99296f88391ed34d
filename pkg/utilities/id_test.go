package utilities

import "testing"

func TestNewSnowflakeIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewSnowflakeID()
		if id == "" {
			t.Fatal("empty id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate snowflake id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewKSUIDLength(t *testing.T) {
	if got := len(NewKSUID()); got != 27 {
		t.Fatalf("expected 27 char ksuid, got %d", got)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]string{"debug": "debug", "warning": "warn", "error": "error", "bogus": "info"}
	for in, want := range cases {
		if got := levelFromString(in).String(); got != want {
			t.Errorf("levelFromString(%q) = %s, want %s", in, got, want)
		}
	}
}
