package graph

import "testing"

type node string

func (n node) ID() string    { return string(n) }
func (n node) IsNode() bool  { return true }
func (n node) Visible() bool { return true }

func TestSplitDragged(t *testing.T) {
	all := []Element{node("a"), node("b"), node("c")}

	z := SplitDragged(all, func(e Element) bool { return e.ID() == "b" })
	if len(z.All) != 3 {
		t.Errorf("All = %d elements, want 3", len(z.All))
	}
	if len(z.NonDrag) != 2 || z.NonDrag[0].ID() != "a" || z.NonDrag[1].ID() != "c" {
		t.Errorf("NonDrag = %v", z.NonDrag)
	}
	if len(z.Drag) != 1 || z.Drag[0].ID() != "b" {
		t.Errorf("Drag = %v", z.Drag)
	}

	z = SplitDragged(all, nil)
	if len(z.NonDrag) != 3 || len(z.Drag) != 0 {
		t.Errorf("nil predicate: NonDrag=%d Drag=%d", len(z.NonDrag), len(z.Drag))
	}
}

func TestArrowEndString(t *testing.T) {
	if Source.String() != "source" || Target.String() != "target" {
		t.Errorf("got %q/%q", Source, Target)
	}
}
