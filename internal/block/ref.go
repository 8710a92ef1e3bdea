package block

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates storyboard blocks.
type Kind int

const (
	KindIntro Kind = iota
	KindChapter
	KindBreak
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindIntro:
		return "intro"
	case KindChapter:
		return "chapter"
	case KindBreak:
		return "break"
	case KindClose:
		return "close"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Ref identifies one storyboard block. Chapter and break indexes are
// zero-based; folder names are one-based.
type Ref struct {
	kind  Kind
	index int
}

// Intro is the episode opening block.
func Intro() Ref { return Ref{kind: KindIntro} }

// Close is the episode closing block.
func Close() Ref { return Ref{kind: KindClose} }

// Chapter is the block for the chapter at zero-based index n.
func Chapter(n int) Ref { return Ref{kind: KindChapter, index: n} }

// Break is the presenter break after the chapter at zero-based index n.
func Break(n int) Ref { return Ref{kind: KindBreak, index: n} }

// Kind returns the block kind.
func (r Ref) Kind() Kind { return r.kind }

// Index returns the zero-based chapter or break index. It is zero for intro and close.
func (r Ref) Index() int { return r.index }

// Folder returns the backend folder name for the block.
func (r Ref) Folder() string {
	switch r.kind {
	case KindIntro:
		return "intro"
	case KindClose:
		return "close"
	case KindChapter:
		return "chapter_" + strconv.Itoa(r.index+1)
	case KindBreak:
		return "break_" + strconv.Itoa(r.index+1)
	default:
		panic(fmt.Sprintf("block: unknown kind %d", int(r.kind)))
	}
}

func (r Ref) String() string { return r.Folder() }

// AudioSegmentID returns the voice segment identifier for the block. Voice
// segments use zero-based suffixes (chapter_0) unlike folders (chapter_1).
func (r Ref) AudioSegmentID() string {
	switch r.kind {
	case KindChapter:
		return "chapter_" + strconv.Itoa(r.index)
	case KindBreak:
		return "break_" + strconv.Itoa(r.index)
	default:
		return r.Folder()
	}
}

// AnalyzeEndpoint returns the analysis trigger path segment and its body.
func (r Ref) AnalyzeEndpoint() (string, map[string]any) {
	switch r.kind {
	case KindIntro:
		return "analyze-intro", map[string]any{}
	case KindClose:
		return "analyze-close", map[string]any{}
	case KindChapter:
		return "analyze-chapter", map[string]any{"chapter_index": r.index}
	case KindBreak:
		return "analyze-break", map[string]any{"break_index": r.index}
	default:
		panic(fmt.Sprintf("block: unknown kind %d", int(r.kind)))
	}
}

// Parse accepts a folder name (intro, close, chapter_N, break_N), a bare
// zero-based chapter index ("0"), or the chapter:N / break:N shorthand with
// one-based numbers.
func Parse(value string) (Ref, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "intro":
		return Intro(), nil
	case "close", "outro":
		return Close(), nil
	case "":
		return Ref{}, fmt.Errorf("block: empty reference")
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 0 {
			return Ref{}, fmt.Errorf("block: negative chapter index %d", n)
		}
		return Chapter(n), nil
	}
	for _, prefix := range []string{"chapter", "break"} {
		rest, ok := strings.CutPrefix(trimmed, prefix)
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, "_:- ")
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Ref{}, fmt.Errorf("block: invalid %s number in %q", prefix, value)
		}
		if prefix == "chapter" {
			return Chapter(n - 1), nil
		}
		return Break(n - 1), nil
	}
	return Ref{}, fmt.Errorf("block: unrecognized reference %q", value)
}

// Episode lists every block of an episode with the given chapter count in
// display order: intro, then each chapter followed by a break except after
// the last chapter, then close.
func Episode(chapters int) []Ref {
	refs := []Ref{Intro()}
	for i := 0; i < chapters; i++ {
		refs = append(refs, Chapter(i))
		if i < chapters-1 {
			refs = append(refs, Break(i))
		}
	}
	return append(refs, Close())
}
