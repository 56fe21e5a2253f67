package translate

import "testing"

func TestParseSource(t *testing.T) {
	for _, code := range []string{"hi", "gbm", "en", "gbm_to_en"} {
		s, err := ParseSource(code)
		if err != nil || string(s) != code {
			t.Errorf("ParseSource(%q) = %q, %v", code, s, err)
		}
	}
	if _, err := ParseSource("fr"); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestSourceNextCycles(t *testing.T) {
	s := DefaultSource
	seen := map[Source]bool{}
	for range Sources() {
		seen[s] = true
		s = s.Next()
	}
	if s != DefaultSource {
		t.Errorf("cycle ended on %q, want %q", s, DefaultSource)
	}
	if len(seen) != len(Sources()) {
		t.Errorf("visited %d sources, want %d", len(seen), len(Sources()))
	}
	if Source("xx").Next() != DefaultSource {
		t.Error("unknown source should reset to default")
	}
}

func TestSourceLabel(t *testing.T) {
	if English.Label() != "English → Garhwali" {
		t.Errorf("label = %q", English.Label())
	}
	if Source("xx").Label() != "xx" {
		t.Error("unknown source label should be its code")
	}
}
