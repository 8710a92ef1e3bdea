package sceneedit

import (
	"fmt"
	"regexp"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/block"
)

var (
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	labelStrip     = regexp.MustCompile(`['\s()]`)
	parenSuffix    = regexp.MustCompile(`\s*\(.*\)\s*$`)
)

// Mention is an @Name in a prompt resolved to the presenter or an element.
type Mention struct {
	Name      string
	Presenter bool
	Element   api.Element
}

// Mentions returns the unique @names of text in order of first use.
// @Image references are location slots, not mentions.
func Mentions(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if strings.HasPrefix(name, "Image") || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ResolveMention matches a mention against the presenter's first name, then
// each element's prompt name, collapsed label, first word and exact label.
func ResolveMention(name string, presenter *api.Presenter, elements []api.Element) (Mention, bool) {
	lower := strings.ToLower(name)
	if presenter != nil && presenter.Name != "" && strings.ToLower(presenter.FirstName()) == lower {
		return Mention{Name: name, Presenter: true}, true
	}
	for _, elem := range elements {
		if elem.PromptName != "" && elem.PromptName == name {
			return Mention{Name: name, Element: elem}, true
		}
		label := elem.Label
		if label == "" {
			continue
		}
		if strings.ToLower(labelStrip.ReplaceAllString(label, "")) == lower {
			return Mention{Name: name, Element: elem}, true
		}
		first := strings.Fields(label)[0]
		first = strings.ReplaceAll(strings.ReplaceAll(first, "'s", ""), "'", "")
		if strings.ToLower(first) == lower {
			return Mention{Name: name, Element: elem}, true
		}
		if strings.ToLower(label) == lower {
			return Mention{Name: name, Element: elem}, true
		}
	}
	return Mention{}, false
}

// ResolveMentions resolves every mention of text, dropping unknown names.
func ResolveMentions(text string, presenter *api.Presenter, elements []api.Element) []Mention {
	var out []Mention
	for _, name := range Mentions(text) {
		if m, ok := ResolveMention(name, presenter, elements); ok {
			out = append(out, m)
		}
	}
	return out
}

// ShowsPresenter reports whether the presenter avatar belongs on a scene even
// without an explicit mention: intro scenes that carry narration.
func ShowsPresenter(ref block.Ref, scene api.Scene) bool {
	if ref.Kind() != block.KindIntro {
		return false
	}
	if strings.TrimSpace(scene.Narration) != "" {
		return true
	}
	return scene.Prompt != nil && strings.Contains(scene.Prompt.PromptText, "Voice-over narration:")
}

// LocationLabel names location slot i of a prompt the way the prompt text
// refers to it.
func LocationLabel(locations []api.PromptLocation, i int) string {
	if i < 0 || i >= len(locations) {
		return ""
	}
	slot := "@Image"
	if len(locations) > 1 {
		slot = fmt.Sprintf("@Image%d", i+1)
	}
	return slot + " - " + strings.ReplaceAll(locations[i].ID, "_", " ")
}

// ReferenceOption is another image of the block that can guide a location
// edit.
type ReferenceOption struct {
	Image string
	Label string
}

// ReferenceOptions lists the location images of the other scenes of a
// block, once each.
func ReferenceOptions(doc *api.StoryboardDocument, sceneIndex int) []ReferenceOption {
	if doc == nil {
		return nil
	}
	var opts []ReferenceOption
	seen := map[string]bool{}
	for i, scene := range doc.Storyboard {
		if i == sceneIndex || scene.Prompt == nil {
			continue
		}
		for _, loc := range scene.Prompt.Locations {
			if loc.Image == "" || seen[loc.Image] {
				continue
			}
			seen[loc.Image] = true
			opts = append(opts, ReferenceOption{
				Image: loc.Image,
				Label: fmt.Sprintf("Scene %d: %s", i+1, strings.ReplaceAll(loc.ID, "_", " ")),
			})
		}
	}
	return opts
}

// StripParenthetical drops a trailing "(...)" qualifier from a label.
func StripParenthetical(label string) string {
	return strings.TrimSpace(parenSuffix.ReplaceAllString(label, ""))
}
