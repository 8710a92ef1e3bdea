package viewmodel

import (
	"fmt"
	"io"
	"strings"
)

// Kind classifies a node.
type Kind int

const (
	KindSection Kind = iota
	KindText
	KindButton
	KindStep
	KindList
	KindItem
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindText:
		return "text"
	case KindButton:
		return "button"
	case KindStep:
		return "step"
	case KindList:
		return "list"
	case KindItem:
		return "item"
	case KindTable:
		return "table"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StepState is the marker of one step in the step bar.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepCompleted
)

func (s StepState) String() string {
	switch s {
	case StepActive:
		return "active"
	case StepCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// Node is one element of the rendered view. Nodes carry data only; handlers
// are attached later by Bind.
type Node struct {
	ID       string
	Kind     Kind
	Label    string
	Text     string
	Hidden   bool
	Disabled bool
	Step     StepState
	Action   *Action
	Rows     [][]string
	Children []*Node
}

// Section builds a section node.
func Section(id, label string, children ...*Node) *Node {
	return &Node{ID: id, Kind: KindSection, Label: label, Children: children}
}

// Text builds a text node.
func Text(id, text string) *Node {
	return &Node{ID: id, Kind: KindText, Text: text}
}

// Button builds a button bound to action.
func Button(id, label string, action Action) *Node {
	return &Node{ID: id, Kind: KindButton, Label: label, Action: &action}
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// Find returns the node with id, or nil.
func Find(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Visible reports whether the node with id exists and is not hidden.
func Visible(root *Node, id string) bool {
	n := Find(root, id)
	return n != nil && !n.Hidden
}

// Render writes an indented plain-text outline of the visible tree.
func Render(w io.Writer, root *Node) error {
	var b strings.Builder
	render(&b, root, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func render(b *strings.Builder, n *Node, depth int) {
	if n == nil || n.Hidden {
		return
	}
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case KindSection:
		if n.Label != "" {
			fmt.Fprintf(b, "%s%s\n", indent, n.Label)
		}
	case KindText:
		for _, line := range strings.Split(n.Text, "\n") {
			fmt.Fprintf(b, "%s%s\n", indent, line)
		}
	case KindButton:
		state := ""
		if n.Disabled {
			state = " (disabled)"
		}
		fmt.Fprintf(b, "%s[%s]%s\n", indent, n.Label, state)
	case KindStep:
		mark := map[StepState]string{StepPending: " ", StepActive: ">", StepCompleted: "x"}[n.Step]
		fmt.Fprintf(b, "%s[%s] %s\n", indent, mark, n.Label)
	case KindItem:
		fmt.Fprintf(b, "%s- %s\n", indent, n.Label)
		if n.Text != "" {
			fmt.Fprintf(b, "%s  %s\n", indent, n.Text)
		}
	case KindTable:
		for _, row := range n.Rows {
			fmt.Fprintf(b, "%s%s\n", indent, strings.Join(row, " | "))
		}
	}
	next := depth
	if n.Kind == KindSection && n.Label != "" {
		next++
	}
	for _, child := range n.Children {
		render(b, child, next)
	}
}
