package grid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/block"
	"cutroom/internal/sceneedit"
)

// PresenterElementID identifies the presenter avatar among block elements.
const PresenterElementID = "presenter"

// Block is one row of the storyboard grid.
type Block struct {
	Ref      block.Ref
	Name     string
	Scenes   []api.Scene
	Loaded   bool
	Pending  bool
	Elements []api.Element
}

// Seconds sums the scene durations of the block.
func (b Block) Seconds() int {
	total := 0
	for _, scene := range b.Scenes {
		total += ParseDuration(scene.Duration.String())
	}
	return total
}

// HasPrompts reports whether any scene already carries prompt text.
func (b Block) HasPrompts() bool {
	for _, scene := range b.Scenes {
		if scene.Prompt != nil && scene.Prompt.PromptText != "" {
			return true
		}
	}
	return false
}

// Layout arranges the loaded project into grid blocks: intro, each chapter
// followed by a break except the last, then close.
func Layout(state appstate.State) []Block {
	if state.Project == nil {
		return nil
	}
	var phases []api.PhaseNarration
	if state.Project.Narration != nil {
		phases = state.Project.Narration.Phases
	}
	var presenter *api.Presenter
	if state.Settings != nil {
		presenter = &state.Settings.Presenter
	}

	refs := block.Episode(len(phases))
	blocks := make([]Block, 0, len(refs))
	for _, ref := range refs {
		b := Block{Ref: ref, Pending: state.Pending[ref.Folder()]}
		if doc := state.Storyboards[ref.Folder()]; doc != nil {
			b.Scenes = doc.Storyboard
			b.Loaded = true
		}
		phase := ""
		if ref.Kind() == block.KindChapter {
			phase = phaseName(phases[ref.Index()], ref.Index())
		}
		b.Name = BlockName(ref, phase)
		b.Elements = BlockElements(ref, phase, b.Scenes, state.Project.Elements, presenter)
		blocks = append(blocks, b)
	}
	return blocks
}

func phaseName(phase api.PhaseNarration, index int) string {
	if name := strings.TrimSpace(phase.PhaseName); name != "" {
		return name
	}
	return "Chapter " + strconv.Itoa(index+1)
}

// BlockName is the grid header of a block.
func BlockName(ref block.Ref, phase string) string {
	switch ref.Kind() {
	case block.KindIntro:
		return "INTRO"
	case block.KindClose:
		return "CLOSE"
	case block.KindBreak:
		return fmt.Sprintf("BREAK %d", ref.Index()+1)
	default:
		return fmt.Sprintf("Chapter %d: %s", ref.Index()+1, phase)
	}
}

// BlockElements picks the elements shown on a block header. Presenter blocks
// (intro, breaks, close) show the presenter plus the characters their scenes
// use; chapters show every element whose appears_in names the phase.
func BlockElements(ref block.Ref, phase string, scenes []api.Scene, elements []api.Element, presenter *api.Presenter) []api.Element {
	var out []api.Element
	if ref.Kind() != block.KindChapter {
		if presenter != nil {
			out = append(out, api.Element{
				ElementID:     PresenterElementID,
				Category:      api.CategoryPresenter,
				Label:         textOr(presenter.Name, "Presenter"),
				ImageFilename: presenter.TurnaroundImage,
			})
		}
		used := usedElements(scenes)
		for _, elem := range elements {
			if elem.Category != api.CategoryCharacter {
				continue
			}
			if used[elem.Label] || used[sceneedit.StripParenthetical(elem.Label)] {
				out = append(out, elem)
			}
		}
		return out
	}

	name := strings.ToLower(phase)
	for _, elem := range elements {
		for _, chapter := range elem.AppearsIn {
			chapter = strings.ToLower(strings.TrimSpace(chapter))
			if chapter == "" {
				continue
			}
			if strings.Contains(chapter, name) || strings.Contains(name, chapter) {
				out = append(out, elem)
				break
			}
		}
	}
	return out
}

func usedElements(scenes []api.Scene) map[string]bool {
	used := map[string]bool{}
	for _, scene := range scenes {
		for _, name := range scene.Elements {
			used[name] = true
		}
		if scene.Prompt == nil {
			continue
		}
		if raw, ok := scene.Prompt.Extra["elements"]; ok {
			var names []string
			if err := json.Unmarshal(raw, &names); err == nil {
				for _, name := range names {
					used[name] = true
				}
			}
		}
	}
	return used
}

// ParseDuration reads the first integer of a duration label ("8s",
// "10 seconds") as seconds. Labels without digits count as zero.
func ParseDuration(value string) int {
	start := strings.IndexFunc(value, isDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(value) && isDigit(rune(value[end])) {
		end++
	}
	n, err := strconv.Atoi(value[start:end])
	if err != nil {
		return 0
	}
	return n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Clock formats seconds as m:ss.
func Clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// BlockMeta is the "N scenes · m:ss" header of a block with scenes.
func BlockMeta(b Block) string {
	if len(b.Scenes) == 0 {
		return ""
	}
	return fmt.Sprintf("%d scenes · %s", len(b.Scenes), Clock(b.Seconds()))
}

// Total is the episode duration over every block, or "—" when nothing has
// a duration yet.
func Total(blocks []Block) string {
	total := 0
	for _, b := range blocks {
		total += b.Seconds()
	}
	if total <= 0 {
		return "—"
	}
	return Clock(total) + " total"
}

func textOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
