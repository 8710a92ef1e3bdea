package storyboard

import (
	"math"

	"cutroom/internal/api"
)

// Metrics are the derived counts shown above a storyboard.
type Metrics struct {
	Total            int
	Narrated         int
	Bridges          int
	Presenter        int
	Silent           int
	BridgeRatio      int
	BridgeTarget     int
	EstimatedSeconds int
}

// MeetsBridgeTarget reports whether the bridge ratio reaches the quality
// target. It is informational only.
func (m Metrics) MeetsBridgeTarget() bool {
	return m.BridgeRatio >= m.BridgeTarget
}

// ComputeMetrics counts scenes by type and derives the bridge ratio.
func ComputeMetrics(scenes []api.Scene, settings Settings) Metrics {
	m := Metrics{Total: len(scenes), BridgeTarget: settings.BridgeRatioTarget}
	for _, scene := range scenes {
		switch scene.Type {
		case api.SceneNarrated:
			m.Narrated++
		case api.SceneBridge:
			m.Bridges++
		case api.ScenePresenter:
			m.Presenter++
		case api.SceneSilent:
			m.Silent++
		}
	}
	if m.Total > 0 {
		m.BridgeRatio = int(math.Round(float64(m.Bridges) / float64(m.Total) * 100))
	}
	m.EstimatedSeconds = m.Total * settings.SecondsPerScene
	return m
}
