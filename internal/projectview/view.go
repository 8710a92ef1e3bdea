package projectview

import (
	"fmt"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/block"
	"cutroom/internal/curve"
	"cutroom/internal/textutil"
	"cutroom/internal/viewmodel"
)

const sparklineColumns = 48

// Build renders the project view tree from a state snapshot. The tree holds
// data only; Bindings wires its buttons.
func Build(state appstate.State) *viewmodel.Node {
	root := viewmodel.Section("project", "")
	project := state.Project
	if project == nil {
		return root.Append(viewmodel.Text("empty", "No project loaded."))
	}
	meta := project.Metadata
	id := meta.ID
	steps := meta.StepsCompleted
	vis := Visibility(steps)

	root.Label = fmt.Sprintf("%s (%s)", displayTitle(meta), textutil.Ternary(meta.Status != "", meta.Status, api.StatusDraft))
	root.Append(stepBar(steps))

	gen := func(step, what string) *viewmodel.Node {
		n := viewmodel.Button("generate:"+step, GenerateLabel(step, steps)+" "+what,
			viewmodel.Action{Kind: viewmodel.ActGenerate, ProjectID: id, Step: step})
		n.Disabled = state.Busy
		return n
	}

	script := viewmodel.Section("script", "Script")
	script.Hidden = !vis.Script
	script.Append(viewmodel.Text("script-summary", scriptSummary(project.Script)))
	script.Append(viewmodel.Button("reupload-script", "Re-upload script",
		viewmodel.Action{Kind: viewmodel.ActReuploadScript, ProjectID: id}))
	root.Append(script)

	breakdown := viewmodel.Section("breakdown", "Breakdown")
	breakdown.Hidden = !vis.Breakdown
	breakdown.Append(viewmodel.Text("breakdown-summary", BreakdownSummary(project.Story)))
	if line := sparkline(project.Story); line != "" {
		breakdown.Append(viewmodel.Text("breakdown-curve", line))
	}
	breakdown.Append(
		gen(api.StepBreakdown, "Breakdown"),
		gen(api.StepStory, "Story"),
		gen(api.StepNarration, "Narration"),
	)
	root.Append(breakdown)

	root.Append(voiceSection(state, id, vis.Voice))
	root.Append(elementsSection(state, id, vis.Elements, gen(api.StepElements, "Elements")))

	prompts := viewmodel.Section("scene-prompts", "Scene prompts")
	prompts.Hidden = !vis.ScenePrompts
	for i, option := range ChapterOptions(project.Narration) {
		ref := block.Chapter(i)
		b := viewmodel.Button("analyze:"+ref.Folder(), "Analyze "+option,
			viewmodel.Action{Kind: viewmodel.ActAnalyze, ProjectID: id}.ForBlock(ref))
		b.Disabled = state.Busy
		if doc := state.Storyboards[ref.Folder()]; doc != nil {
			b.Text = fmt.Sprintf("%d scenes", len(doc.Storyboard))
		}
		prompts.Append(b)
	}
	launch := viewmodel.Button("launch-storyboard", "Open storyboard",
		viewmodel.Action{Kind: viewmodel.ActLaunchStoryboard, ProjectID: id})
	launch.Hidden = !vis.LaunchStoryboard
	prompts.Append(launch)
	root.Append(prompts)

	production := viewmodel.Section("production", "Production")
	production.Hidden = !vis.Generate
	for i, option := range ChapterOptions(project.Narration) {
		ref := block.Chapter(i)
		b := viewmodel.Button("production:"+ref.Folder(), "Generate production for "+option,
			viewmodel.Action{Kind: viewmodel.ActGenerateProduction, ProjectID: id}.ForBlock(ref))
		b.Disabled = state.Busy
		production.Append(b)
	}
	root.Append(production)

	root.Append(logSection(state.Log))

	danger := viewmodel.Section("danger", "")
	danger.Append(viewmodel.Button("delete-project", "Delete project",
		viewmodel.Action{Kind: viewmodel.ActDeleteProject, ProjectID: id}))
	return root.Append(danger)
}

func displayTitle(meta api.Metadata) string {
	if strings.TrimSpace(meta.Title) != "" {
		return meta.Title
	}
	return meta.ID
}

func stepBar(steps []string) *viewmodel.Node {
	bar := viewmodel.Section("steps", "")
	for _, mark := range StepBar(steps) {
		n := &viewmodel.Node{ID: "step:" + mark.Step, Kind: viewmodel.KindStep, Label: textutil.Humanize(mark.Step)}
		switch {
		case mark.Completed:
			n.Step = viewmodel.StepCompleted
		case mark.Active:
			n.Step = viewmodel.StepActive
		}
		bar.Append(n)
	}
	return bar
}

func scriptSummary(script *api.Script) string {
	if script == nil || len(script.Sections) == 0 {
		return "No script uploaded."
	}
	summary := fmt.Sprintf("%d sections", len(script.Sections))
	if total := script.TotalDuration.String(); total != "" {
		summary += " · " + total
	}
	return summary
}

// BreakdownSummary is the one-line story header: character, location,
// construction and day count, with '?' for anything missing.
func BreakdownSummary(story *api.Story) string {
	if story == nil {
		return "No breakdown yet."
	}
	s := story.Summary()
	or := func(v string) string { return textutil.Ternary(v != "", v, "?") }
	days := "?"
	if s.Days > 0 {
		days = fmt.Sprintf("%g", s.Days)
	}
	return fmt.Sprintf("%s · %s · %s · %s days", or(s.Character), or(s.Location), or(s.Construction), days)
}

func sparkline(story *api.Story) string {
	if story == nil || len(story.Arcs()) == 0 {
		return ""
	}
	layout, err := curve.Compute(curve.FromStory(story), curve.DefaultWidth, curve.DefaultHeight)
	if err != nil {
		return ""
	}
	return layout.Sparkline(sparklineColumns)
}

func voiceSection(state appstate.State, projectID string, visible bool) *viewmodel.Node {
	project := state.Project
	section := viewmodel.Section("voice", "Voice")
	section.Hidden = !visible
	segments := VoiceSegments(project.Narration, project.AudioManifest)
	if len(segments) == 0 {
		return section.Append(viewmodel.Text("voice-empty", "No narration yet."))
	}
	list := &viewmodel.Node{ID: "voice-segments", Kind: viewmodel.KindList}
	for _, seg := range segments {
		item := &viewmodel.Node{
			ID:    "segment:" + seg.ID,
			Kind:  viewmodel.KindItem,
			Label: fmt.Sprintf("%s %s (%d words)", seg.Label, seg.Title, seg.Words),
		}
		label := "Generate audio"
		if seg.Audio != nil {
			item.Text = fmt.Sprintf("%s %s", seg.Audio.Filename, Clock(seg.Audio.DurationSeconds))
			label = "Regenerate audio"
		}
		b := viewmodel.Button("audio:"+seg.ID, label,
			viewmodel.Action{Kind: viewmodel.ActGenerateAudio, ProjectID: projectID, Segment: seg.ID})
		b.Disabled = state.Busy
		list.Append(item.Append(b))
	}
	section.Append(list)
	all := viewmodel.Button("audio:all", "Generate all audio",
		viewmodel.Action{Kind: viewmodel.ActGenerateAudio, ProjectID: projectID})
	all.Disabled = state.Busy
	section.Append(all)
	if total := VoiceTotalSeconds(segments); total > 0 {
		section.Append(viewmodel.Text("voice-total", "Total: "+Clock(total)))
	}
	return section
}

func elementsSection(state appstate.State, projectID string, visible bool, generate *viewmodel.Node) *viewmodel.Node {
	section := viewmodel.Section("elements", "Elements")
	section.Hidden = !visible
	section.Append(generate)
	list := &viewmodel.Node{ID: "element-list", Kind: viewmodel.KindList}
	for _, elem := range state.Project.Elements {
		act := viewmodel.Action{ProjectID: projectID, Element: elem.ElementID}
		item := &viewmodel.Node{
			ID:    "element:" + elem.ElementID,
			Kind:  viewmodel.KindItem,
			Label: fmt.Sprintf("%s (%s)", elem.Label, elem.Category),
			Text:  textutil.Ternary(elem.ImageFilename != "", elem.ImageFilename, "no image"),
		}
		regen := act
		regen.Kind = viewmodel.ActRegenerateElement
		edit := act
		edit.Kind = viewmodel.ActEditElement
		upload := act
		upload.Kind = viewmodel.ActUploadElement
		item.Append(
			viewmodel.Button("element-regenerate:"+elem.ElementID, "Regenerate", regen),
			viewmodel.Button("element-edit:"+elem.ElementID, "Edit", edit),
			viewmodel.Button("element-upload:"+elem.ElementID, "Upload", upload),
		)
		list.Append(item)
	}
	return section.Append(list)
}

func logSection(lines []appstate.LogLine) *viewmodel.Node {
	section := viewmodel.Section("log", "Progress")
	section.Hidden = len(lines) == 0
	text := make([]string, len(lines))
	for i, line := range lines {
		text[i] = line.Event.Message
	}
	return section.Append(viewmodel.Text("log-lines", strings.Join(text, "\n")))
}
