package projectview

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/block"
	"cutroom/internal/textutil"
)

var phasePrefix = regexp.MustCompile(`(?i)^Phase\s*\d+\s*[:.]?\s*`)

// VoiceSegment is one chapter narration that can be synthesized.
type VoiceSegment struct {
	ID           string
	Type         string
	Label        string
	Title        string
	Text         string
	Words        int
	DownloadName string
	Audio        *api.AudioSegment
}

// VoiceSegments lists the chapter narrations in order with any audio already
// in the manifest. Intro and close are produced as video scenes and have no
// segment here.
func VoiceSegments(narration *api.Narration, manifest api.AudioManifest) []VoiceSegment {
	if narration == nil {
		return nil
	}
	segments := make([]VoiceSegment, 0, len(narration.Phases))
	for i, phase := range narration.Phases {
		title := ChapterTitle(phase.PhaseName, i)
		words := phase.WordCount
		if words == 0 {
			words = len(strings.Fields(phase.Text))
		}
		seg := VoiceSegment{
			ID:           block.Chapter(i).AudioSegmentID(),
			Type:         "narration",
			Label:        fmt.Sprintf("CH %d", i+1),
			Title:        title,
			Text:         phase.Text,
			Words:        words,
			DownloadName: fmt.Sprintf("ch%02d_%s.mp3", i+1, textutil.Slug(title)),
		}
		if audio, ok := manifest[seg.ID]; ok {
			a := audio
			seg.Audio = &a
		}
		segments = append(segments, seg)
	}
	return segments
}

// ChapterTitle strips a leading "Phase N:" from a phase name and falls back
// to "Chapter N".
func ChapterTitle(phaseName string, index int) string {
	title := strings.TrimSpace(phasePrefix.ReplaceAllString(phaseName, ""))
	if title == "" {
		return fmt.Sprintf("Chapter %d", index+1)
	}
	return title
}

// VoiceTotalSeconds sums the durations of generated segments.
func VoiceTotalSeconds(segments []VoiceSegment) float64 {
	var total float64
	for _, seg := range segments {
		if seg.Audio != nil {
			total += seg.Audio.DurationSeconds
		}
	}
	return total
}

// Clock formats seconds as m:ss.
func Clock(seconds float64) string {
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Round(math.Mod(seconds, 60)))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// ChapterOptions lists chapter selector entries. Phases sharing a chapter
// name are grouped into one entry.
func ChapterOptions(narration *api.Narration) []string {
	if narration == nil || len(narration.Phases) == 0 {
		return nil
	}
	var names []string
	seen := map[string]bool{}
	for _, phase := range narration.Phases {
		name := phase.Chapter
		if name == "" {
			name = phase.PhaseName
		}
		if name == "" {
			name = "Unknown"
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	options := make([]string, len(names))
	for i, name := range names {
		options[i] = fmt.Sprintf("Chapter %d: %s", i+1, name)
	}
	return options
}
