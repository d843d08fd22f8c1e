package status

import "testing"

func TestDeriveKey(t *testing.T) {
	cases := map[string]string{
		"In Progress":       "in_progress",
		"  Needs   Review ": "needs_review",
		"Draft":             "draft",
		"ALL CAPS LABEL":    "all_caps_label",
		"":                  "",
		"   ":               "",
	}
	for input, want := range cases {
		if got := DeriveKey(input); got != want {
			t.Errorf("DeriveKey(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDeriveDisplayName(t *testing.T) {
	cases := map[string]string{
		"in_progress":  "In Progress",
		"draft":        "Draft",
		"needs_review": "Needs Review",
	}
	for input, want := range cases {
		if got := DeriveDisplayName(input); got != want {
			t.Errorf("DeriveDisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDeriveRoundTrip(t *testing.T) {
	// A derived key must map back to the display name it came from for
	// simple labels.
	for _, display := range []string{"In Progress", "Draft", "Needs Review"} {
		if got := DeriveDisplayName(DeriveKey(display)); got != display {
			t.Errorf("round trip of %q produced %q", display, got)
		}
	}
}
