package textutil

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Long Winter", "the_long_winter"},
		{"  Erik's Tent (v2) ", "erik_s_tent_v2"},
		{"---", ""},
		{"Chapter 10", "chapter_10"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Fatalf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 60); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("ñandú ñandú", 5); got != "ñandú..." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestHumanize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cabin_site", "Cabin Site"},
		{"chapter-2", "Chapter 2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Humanize(tt.in); got != tt.want {
			t.Fatalf("Humanize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(" a/b:c? "); got != "a-b-c" {
		t.Fatalf("unexpected %q", got)
	}
}
