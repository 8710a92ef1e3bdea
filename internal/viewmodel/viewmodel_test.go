package viewmodel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"cutroom/internal/block"
)

func sampleTree() *Node {
	deleteBtn := Button("delete-2", "Delete", Action{Kind: ActDeleteScene, ProjectID: "p1", Scene: 2}.ForBlock(block.Chapter(0)))
	hidden := Button("prompts", "Generate Prompts", Action{Kind: ActGeneratePrompts, ProjectID: "p1"})
	hidden.Hidden = true
	disabled := Button("gen", "Generate", Action{Kind: ActGenerate, ProjectID: "p1", Step: "breakdown"})
	disabled.Disabled = true
	return Section("root", "Erik's Cabin",
		Text("summary", "2 scenes\n1 bridge"),
		Section("chapter_1", "Chapter 1", deleteBtn, hidden),
		disabled,
	)
}

func TestBindInvokesHandlerWithTypedAction(t *testing.T) {
	var got Action
	bound, err := Bind(sampleTree(), Bindings{
		ActDeleteScene:     func(_ context.Context, a Action) error { got = a; return nil },
		ActGeneratePrompts: func(context.Context, Action) error { return nil },
		ActGenerate:        func(context.Context, Action) error { return nil },
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := bound.Invoke(context.Background(), "delete-2"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.Kind != ActDeleteScene || got.Scene != 2 || got.Block.Folder() != "chapter_1" || !got.HasBlock {
		t.Fatalf("unexpected action %+v", got)
	}
	if ids := bound.Actions(); len(ids) != 1 || ids[0] != "delete-2" {
		t.Fatalf("unexpected invocable ids %v", ids)
	}
}

func TestBindRejectsUnboundKinds(t *testing.T) {
	_, err := Bind(sampleTree(), Bindings{ActDeleteScene: func(context.Context, Action) error { return nil }})
	if err == nil {
		t.Fatal("expected error for unbound kinds")
	}
	if !strings.Contains(err.Error(), "generate, generate-prompts") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestInvokeGuards(t *testing.T) {
	boom := errors.New("boom")
	bound, err := Bind(sampleTree(), Bindings{
		ActDeleteScene:     func(context.Context, Action) error { return boom },
		ActGeneratePrompts: func(context.Context, Action) error { return nil },
		ActGenerate:        func(context.Context, Action) error { return nil },
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	ctx := context.Background()
	cases := map[string]string{
		"missing": "no node",
		"prompts": "not visible",
		"gen":     "disabled",
		"summary": "no action",
	}
	for id, want := range cases {
		err := bound.Invoke(ctx, id)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("Invoke(%s) = %v, want %q", id, err, want)
		}
	}
	if err := bound.Invoke(ctx, "delete-2"); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestRenderSkipsHiddenNodes(t *testing.T) {
	root := sampleTree()
	root.Append(&Node{ID: "step", Kind: KindStep, Label: "script", Step: StepCompleted})
	var buf bytes.Buffer
	if err := Render(&buf, root); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Erik's Cabin\n", "  2 scenes\n  1 bridge\n", "    [Delete]\n", "  [Generate] (disabled)\n", "  [x] script\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Generate Prompts") {
		t.Fatalf("hidden node rendered:\n%s", out)
	}
	if !Visible(root, "chapter_1") || Visible(root, "prompts") || Visible(root, "nope") {
		t.Fatal("unexpected visibility")
	}
}

func TestActionString(t *testing.T) {
	a := Action{Kind: ActToggleDone, ProjectID: "p1", Scene: 0}.ForBlock(block.Break(1))
	if got := a.String(); got != "toggle-done project=p1 block=break_2 scene=0" {
		t.Fatalf("unexpected %q", got)
	}
	if got := (Action{Kind: ActGenerate, Step: "elements"}).String(); got != "generate step=elements" {
		t.Fatalf("unexpected %q", got)
	}
}
