package projectview

import "cutroom/internal/api"

// Sections lists which parts of the project view are shown.
type Sections struct {
	Script           bool
	Breakdown        bool
	Voice            bool
	Elements         bool
	ScenePrompts     bool
	LaunchStoryboard bool
	Generate         bool
}

// Visibility derives section visibility from the backend-reported steps. It
// never looks at anything else so a reload is always authoritative.
func Visibility(steps []string) Sections {
	has := stepSet(steps)
	prompts := has[api.StepElements] || has[api.StepScenePrompts]
	return Sections{
		Script:           true,
		Breakdown:        has[api.StepScript] || has[api.StepStory],
		Voice:            has[api.StepBreakdown],
		Elements:         has[api.StepBreakdown],
		ScenePrompts:     prompts,
		LaunchStoryboard: prompts,
		Generate:         has[api.StepScenePrompts],
	}
}

// BarSteps are the steps shown in the progress bar, in order.
var BarSteps = []string{api.StepScript, api.StepBreakdown, api.StepVoice, api.StepElements, api.StepProduction}

// StepMark is one entry in the step bar.
type StepMark struct {
	Step      string
	Completed bool
	Active    bool
}

// StepBar marks completed steps and the first incomplete one as active.
func StepBar(steps []string) []StepMark {
	has := stepSet(steps)
	marks := make([]StepMark, len(BarSteps))
	activeSet := false
	for i, step := range BarSteps {
		marks[i] = StepMark{Step: step, Completed: has[step]}
		if !has[step] && !activeSet {
			marks[i].Active = true
			activeSet = true
		}
	}
	return marks
}

// GenerateLabel returns "Generate" or "Regenerate" depending on whether step
// already completed.
func GenerateLabel(step string, steps []string) string {
	if stepSet(steps)[step] {
		return "Regenerate"
	}
	return "Generate"
}

func stepSet(steps []string) map[string]bool {
	set := make(map[string]bool, len(steps))
	for _, s := range steps {
		set[s] = true
	}
	return set
}
