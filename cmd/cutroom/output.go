package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func eventColor(eventType string) string {
	switch eventType {
	case api.EventSuccess, api.EventComplete:
		return ansiGreen
	case api.EventWarning:
		return ansiYellow
	case api.EventError:
		return ansiRed
	case api.EventInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderLogLine(scope string, evt api.ProgressEvent, colorize bool) string {
	line := evt.Message
	if scope != "" {
		line = fmt.Sprintf("[%s] %s", scope, line)
	}
	if colorize {
		if color := eventColor(evt.Type); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// syncWriter serializes writes from stream goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// followLog prints every progress line appended to state until the returned
// function is called.
func followLog(state *appstate.Store, out io.Writer) func() {
	colorize := shouldColorize(out)
	w := &syncWriter{w: out}
	return state.Subscribe(func(_ appstate.State, action appstate.Action) {
		line, ok := action.(appstate.LogAppended)
		if !ok {
			return
		}
		fmt.Fprintln(w, renderLogLine(line.Scope, line.Event, colorize))
	})
}
