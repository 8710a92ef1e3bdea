package progress

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"cutroom/internal/api"
)

const maxLineSize = 1024 * 1024

// Parse reads a Server-Sent-Events body and calls emit for every dispatched
// event. It returns nil at a clean EOF, or when emit returns false.
//
// Multi-line data fields are joined with "\n", comment lines (heartbeats)
// are ignored, and a payload that is not JSON is delivered as an info event
// carrying the raw text.
func Parse(r io.Reader, emit func(api.ProgressEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var data []string
	dispatch := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		return emit(decodeEvent(payload))
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			if field == "data" {
				data = append(data, value)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

func decodeEvent(payload string) api.ProgressEvent {
	var evt api.ProgressEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return api.ProgressEvent{Message: payload, Type: api.EventInfo}
	}
	return Normalize(evt)
}

var knownTypes = map[string]struct{}{
	api.EventInfo:     {},
	api.EventSuccess:  {},
	api.EventWarning:  {},
	api.EventError:    {},
	api.EventComplete: {},
	api.EventBatch:    {},
}

// Normalize maps unknown or missing event types to info.
func Normalize(evt api.ProgressEvent) api.ProgressEvent {
	evt.Type = strings.ToLower(strings.TrimSpace(evt.Type))
	if _, ok := knownTypes[evt.Type]; !ok {
		evt.Type = api.EventInfo
	}
	return evt
}
