package grid

import (
	"fmt"
	"strconv"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/sceneedit"
	"cutroom/internal/textutil"
	"cutroom/internal/viewmodel"
)

const emptyBlockText = `No scenes yet. Click "Generate Storyboard" to analyze this block.`

// Build renders the storyboard grid from a state snapshot.
func Build(state appstate.State) *viewmodel.Node {
	root := viewmodel.Section("grid", "Storyboard")
	if state.Project == nil {
		return root.Append(viewmodel.Text("empty", "No project loaded."))
	}
	root.Label = "Storyboard · " + textOr(state.Project.Metadata.Title, state.Project.Metadata.ID)

	blocks := Layout(state)
	root.Append(viewmodel.Text("grid-total", Total(blocks)))
	var presenter *api.Presenter
	if state.Settings != nil {
		presenter = &state.Settings.Presenter
	}
	for _, b := range blocks {
		root.Append(blockSection(state, b, presenter))
	}
	return root
}

func blockSection(state appstate.State, b Block, presenter *api.Presenter) *viewmodel.Node {
	folder := b.Ref.Folder()
	projectID := state.ProjectID()
	act := func(kind viewmodel.ActionKind, scene int) viewmodel.Action {
		return viewmodel.Action{Kind: kind, ProjectID: projectID, Scene: scene}.ForBlock(b.Ref)
	}
	button := func(id, label string, action viewmodel.Action) *viewmodel.Node {
		n := viewmodel.Button(id+":"+folder, label, action)
		n.Disabled = b.Pending
		return n
	}
	sceneID := func(prefix string, i int) string {
		return prefix + ":" + folder + ":" + strconv.Itoa(i)
	}

	section := viewmodel.Section("block:"+folder, b.Name)
	section.Text = strings.ToUpper(b.Ref.Kind().String())
	if meta := BlockMeta(b); meta != "" {
		section.Append(viewmodel.Text("meta:"+folder, meta))
	}
	if len(b.Elements) > 0 {
		labels := make([]string, len(b.Elements))
		for i, elem := range b.Elements {
			labels[i] = textOr(elem.Label, elem.ElementID)
		}
		section.Append(viewmodel.Text("elements:"+folder, strings.Join(labels, ", ")))
	}
	if b.Pending {
		section.Append(viewmodel.Text("pending:"+folder, "⏳ Generating..."))
	}

	if len(b.Scenes) == 0 {
		section.Append(button("analyze", "🔍 Generate Storyboard", act(viewmodel.ActAnalyze, 0)))
		section.Append(viewmodel.Text("empty:"+folder, emptyBlockText))
		return section.Append(blockLog(state.Log, folder))
	}

	section.Append(button("regenerate", "🔄 Regenerate Scenes", act(viewmodel.ActRegenerateStoryboard, 0)))
	section.Append(button("prompts", textutil.Ternary(b.HasPrompts(), "🔄 Regenerate Prompts", "📝 Generate Prompts"),
		act(viewmodel.ActGeneratePrompts, 0)))

	row := &viewmodel.Node{ID: "scenes:" + folder, Kind: viewmodel.KindList}
	for i, scene := range b.Scenes {
		if i > 0 {
			insert := viewmodel.Button(sceneID("insert", i), "+", act(viewmodel.ActInsertScene, i))
			insert.Disabled = b.Pending
			row.Append(insert)
		}
		row.Append(sceneCard(b, i, scene, presenter, state.Project.Elements, act, sceneID))
	}
	end := viewmodel.Button(sceneID("insert", len(b.Scenes)), "+", act(viewmodel.ActInsertScene, len(b.Scenes)))
	end.Disabled = b.Pending
	row.Append(end)
	section.Append(row)
	return section.Append(blockLog(state.Log, folder))
}

func sceneCard(b Block, i int, scene api.Scene, presenter *api.Presenter, elements []api.Element,
	act func(viewmodel.ActionKind, int) viewmodel.Action, sceneID func(string, int) string) *viewmodel.Node {
	num := scene.Number
	if num <= 0 {
		num = i + 1
	}
	duration := scene.Duration.String()
	if duration == "" {
		duration = "—"
	}
	card := &viewmodel.Node{
		ID:    sceneID("scene", i),
		Kind:  viewmodel.KindItem,
		Label: fmt.Sprintf("SCENE %d · %s · %s", num, textOr(scene.Type, "Bridge"), duration),
		Text:  sceneBody(scene),
	}
	disable := func(n *viewmodel.Node) *viewmodel.Node {
		n.Disabled = b.Pending
		return n
	}
	card.Append(
		disable(viewmodel.Button(sceneID("edit-scene", i), "✏️ Edit", act(viewmodel.ActEditScene, i))),
		disable(viewmodel.Button(sceneID("delete-scene", i), "🗑️ Delete", act(viewmodel.ActDeleteScene, i))),
		disable(viewmodel.Button(sceneID("insert-bridge", i), "Insert bridge after", act(viewmodel.ActInsertBridge, i))),
	)

	prompt := scene.Prompt
	if prompt == nil || prompt.PromptText == "" {
		return card
	}
	label := fmt.Sprintf("📹 Video Prompt %d", num)
	if prompt.Done {
		label += " ✅"
	}
	p := &viewmodel.Node{ID: sceneID("prompt", i), Kind: viewmodel.KindItem, Label: label, Text: prompt.PromptText}
	if cast := castLine(b, scene, presenter, elements); cast != "" {
		p.Append(viewmodel.Text(sceneID("cast", i), cast))
	}
	if prompt.SFX != "" {
		p.Append(viewmodel.Text(sceneID("sfx", i), "🔊 "+prompt.SFX))
	}
	p.Append(
		disable(viewmodel.Button(sceneID("edit-prompt", i), "✏️ Edit Prompt", act(viewmodel.ActEditPrompt, i))),
		disable(viewmodel.Button(sceneID("delete-prompt", i), "🗑️ Delete Prompt", act(viewmodel.ActDeletePrompt, i))),
		disable(viewmodel.Button(sceneID("toggle-done", i), textutil.Ternary(prompt.Done, "Mark not done", "Mark done"), act(viewmodel.ActToggleDone, i))),
	)
	for j, loc := range prompt.Locations {
		a := act(viewmodel.ActEditLocationImage, i)
		a.Element = loc.ID
		n := disable(viewmodel.Button(sceneID("location", i)+":"+loc.ID, sceneedit.LocationLabel(prompt.Locations, j), a))
		n.Text = loc.Image
		p.Append(n)
	}
	return card.Append(p)
}

func sceneBody(scene api.Scene) string {
	var lines []string
	if desc := textOr(scene.VisualDesc, scene.Camera); strings.TrimSpace(desc) != "" {
		lines = append(lines, "Visual: "+desc)
	}
	if strings.TrimSpace(scene.Narration) != "" {
		lines = append(lines, "Narration: "+scene.Narration)
	}
	if strings.TrimSpace(scene.Action) != "" {
		lines = append(lines, "Action: "+scene.Action)
	}
	var tags []string
	if scene.TimeOfDay != "" {
		tags = append(tags, "🕐 "+scene.TimeOfDay)
	}
	if scene.Weather != "" {
		tags = append(tags, "🌤️ "+scene.Weather)
	}
	if len(scene.Tools) > 0 {
		tags = append(tags, "🔧 "+strings.Join(scene.Tools, ", "))
	}
	if delta := api.Deref(scene.ProgressDelta); delta != "" {
		tags = append(tags, "📊 "+delta)
	}
	if len(tags) > 0 {
		lines = append(lines, strings.Join(tags, " "))
	}
	return strings.Join(lines, "\n")
}

// castLine names the presenter and elements a prompt mentions.
func castLine(b Block, scene api.Scene, presenter *api.Presenter, elements []api.Element) string {
	var names []string
	shown := map[string]bool{}
	if presenter != nil && sceneedit.ShowsPresenter(b.Ref, scene) {
		names = append(names, textOr(presenter.Name, "Presenter"))
		shown[PresenterElementID] = true
	}
	for _, m := range sceneedit.ResolveMentions(scene.Prompt.PromptText, presenter, elements) {
		key := m.Element.ElementID
		name := textOr(m.Element.Label, m.Name)
		if m.Presenter {
			key = PresenterElementID
			name = textOr(presenter.Name, m.Name)
		}
		if shown[key] {
			continue
		}
		shown[key] = true
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func blockLog(lines []appstate.LogLine, folder string) *viewmodel.Node {
	var text []string
	for _, line := range lines {
		if line.Scope == folder {
			text = append(text, line.Event.Message)
		}
	}
	n := viewmodel.Text("log:"+folder, strings.Join(text, "\n"))
	n.Hidden = len(text) == 0
	return n
}
