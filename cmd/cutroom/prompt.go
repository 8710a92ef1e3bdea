package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// prompter asks the operator questions on the command's streams.
type prompter struct {
	out io.Writer
	yes bool

	mu     sync.Mutex
	reader *bufio.Reader
}

func (c *commandContext) prompter(cmd *cobra.Command) *prompter {
	in := c.stdin
	if in == nil {
		in = cmd.InOrStdin()
	}
	yes := c.yesFlag != nil && *c.yesFlag
	return &prompter{out: cmd.ErrOrStderr(), yes: yes, reader: bufio.NewReader(in)}
}

func (p *prompter) readLine(question string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, question)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm approves destructive actions. --yes answers for the operator.
func (p *prompter) confirm(question string) bool {
	if p.yes {
		return true
	}
	answer, err := p.readLine(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// text asks for free text; a non-empty fallback is returned without asking.
func (p *prompter) text(question, fallback string) (string, error) {
	if strings.TrimSpace(fallback) != "" {
		return fallback, nil
	}
	return p.readLine(question + ": ")
}

// openFile opens a local file for upload and returns its base name.
func openFile(path string) (io.ReadCloser, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", fmt.Errorf("file path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Name(), nil
}
