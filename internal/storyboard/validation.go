package storyboard

import (
	"regexp"
	"strconv"

	"cutroom/internal/api"
)

var sceneRef = regexp.MustCompile(`Scene (\d+)`)

// Annotated is a validation issue with its resolved severity.
type Annotated struct {
	api.Issue
	Scene int
}

// Overlay is the validation result arranged for inline display. Issues whose
// message names no scene are kept in Unindexed.
type Overlay struct {
	Score     string
	Summary   string
	Grade     Grade
	ByScene   map[int][]Annotated
	Unindexed []Annotated
}

// Grade buckets a validation score.
type Grade string

const (
	GradeNone Grade = ""
	GradeGood Grade = "good"
	GradeWarn Grade = "warn"
	GradeBad  Grade = "bad"
)

// IndexIssues extracts "Scene N" references from validation messages. Errors
// are listed before warnings, each in backend order.
func IndexIssues(v *api.Validation) Overlay {
	overlay := Overlay{ByScene: map[int][]Annotated{}}
	if v == nil {
		return overlay
	}
	overlay.Score = v.Score.String()
	overlay.Summary = v.Summary
	overlay.Grade = gradeFor(overlay.Score)

	add := func(issue api.Issue, severity string) {
		if issue.Severity == "" {
			issue.Severity = severity
		}
		entry := Annotated{Issue: issue}
		if match := sceneRef.FindStringSubmatch(issue.Message); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				entry.Scene = n
				overlay.ByScene[n] = append(overlay.ByScene[n], entry)
				return
			}
		}
		overlay.Unindexed = append(overlay.Unindexed, entry)
	}
	for _, issue := range v.Errors {
		add(issue, "error")
	}
	for _, issue := range v.Warnings {
		add(issue, "warning")
	}
	return overlay
}

// Issues returns the issues attached to a scene number.
func (o Overlay) Issues(sceneNumber int) []Annotated {
	return o.ByScene[sceneNumber]
}

// Count returns the number of issues, indexed or not.
func (o Overlay) Count() int {
	n := len(o.Unindexed)
	for _, issues := range o.ByScene {
		n += len(issues)
	}
	return n
}

func gradeFor(score string) Grade {
	value, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return GradeNone
	}
	switch {
	case value >= 80:
		return GradeGood
	case value >= 50:
		return GradeWarn
	default:
		return GradeBad
	}
}
