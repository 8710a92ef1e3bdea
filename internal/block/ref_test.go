package block

import "testing"

func TestFolderNames(t *testing.T) {
	tests := []struct {
		ref  Ref
		want string
	}{
		{Intro(), "intro"},
		{Close(), "close"},
		{Chapter(0), "chapter_1"},
		{Chapter(4), "chapter_5"},
		{Break(1), "break_2"},
	}
	for _, tt := range tests {
		if got := tt.ref.Folder(); got != tt.want {
			t.Fatalf("Folder() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRoundTripsFolders(t *testing.T) {
	for _, ref := range Episode(3) {
		parsed, err := Parse(ref.Folder())
		if err != nil {
			t.Fatalf("Parse(%q): %v", ref.Folder(), err)
		}
		if parsed != ref {
			t.Fatalf("Parse(%q) = %+v, want %+v", ref.Folder(), parsed, ref)
		}
	}
}

func TestParseAcceptsDigitsAndShorthand(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"0", Chapter(0)},
		{"2", Chapter(2)},
		{"chapter:3", Chapter(2)},
		{"break-1", Break(0)},
		{"OUTRO", Close()},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "chapter_0", "break_x", "epilogue", "-1"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestEpisodeLayout(t *testing.T) {
	got := Episode(3)
	want := []string{"intro", "chapter_1", "break_1", "chapter_2", "break_2", "chapter_3", "close"}
	if len(got) != len(want) {
		t.Fatalf("unexpected block count %d", len(got))
	}
	for i, ref := range got {
		if ref.Folder() != want[i] {
			t.Fatalf("block %d = %q, want %q", i, ref.Folder(), want[i])
		}
	}
	if len(Episode(0)) != 2 {
		t.Fatal("expected intro and close for an empty episode")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	path, body := Chapter(2).AnalyzeEndpoint()
	if path != "analyze-chapter" || body["chapter_index"] != 2 {
		t.Fatalf("unexpected chapter endpoint %q %v", path, body)
	}
	path, body = Break(0).AnalyzeEndpoint()
	if path != "analyze-break" || body["break_index"] != 0 {
		t.Fatalf("unexpected break endpoint %q %v", path, body)
	}
	path, body = Intro().AnalyzeEndpoint()
	if path != "analyze-intro" || len(body) != 0 {
		t.Fatalf("unexpected intro endpoint %q %v", path, body)
	}
}

func TestAudioSegmentIDIsZeroBased(t *testing.T) {
	if got := Chapter(0).AudioSegmentID(); got != "chapter_0" {
		t.Fatalf("unexpected segment id %q", got)
	}
	if got := Close().AudioSegmentID(); got != "close" {
		t.Fatalf("unexpected segment id %q", got)
	}
}
