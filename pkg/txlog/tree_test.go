package txlog

import "testing"

// node builds a bare inner record at the given depth.
func node(index, depth int) *InstructionLog {
	return &InstructionLog{Index: index, Depth: depth, ProgramName: "Unknown Program"}
}

func TestAttachInnerFlatRecords(t *testing.T) {
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 1), node(1, 1), node(2, 1)})

	if len(parent.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(parent.Children))
	}
	for i, child := range parent.Children {
		if child.Index != i {
			t.Errorf("children[%d].Index = %d", i, child.Index)
		}
		if len(child.Children) != 0 {
			t.Errorf("children[%d] unexpectedly has children", i)
		}
	}
}

func TestAttachInnerNesting(t *testing.T) {
	// Stack heights [2, 3, 2] give depths [1, 2, 1]: record 1 nests under
	// record 0, record 2 is record 0's sibling, not its child.
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 1), node(1, 2), node(2, 1)})

	if len(parent.Children) != 2 {
		t.Fatalf("top-level children = %d, want 2", len(parent.Children))
	}
	first := parent.Children[0]
	if len(first.Children) != 1 || first.Children[0].Index != 1 {
		t.Errorf("record 1 not nested under record 0: %+v", first.Children)
	}
	second := parent.Children[1]
	if second.Index != 2 || len(second.Children) != 0 {
		t.Errorf("record 2 misplaced: %+v", second)
	}
}

func TestAttachInnerDeepChain(t *testing.T) {
	// Depths [1, 2, 3, 4] chain each record under the previous one.
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 1), node(1, 2), node(2, 3), node(3, 4)})

	cur := parent
	for want := 0; want < 4; want++ {
		if len(cur.Children) != 1 {
			t.Fatalf("depth %d: children = %d, want 1", want, len(cur.Children))
		}
		cur = cur.Children[0]
		if cur.Index != want {
			t.Fatalf("chain index = %d, want %d", cur.Index, want)
		}
	}
}

func TestAttachInnerPrefersMostRecentCaller(t *testing.T) {
	// Two siblings at depth 1; the depth-2 record must nest under the
	// second (most recently attached) one.
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 1), node(1, 1), node(2, 2)})

	if len(parent.Children) != 2 {
		t.Fatalf("top-level children = %d, want 2", len(parent.Children))
	}
	if len(parent.Children[0].Children) != 0 {
		t.Error("record 2 nested under the first sibling")
	}
	if len(parent.Children[1].Children) != 1 || parent.Children[1].Children[0].Index != 2 {
		t.Error("record 2 not nested under the most recent sibling")
	}
}

func TestAttachInnerOrphanFallsBack(t *testing.T) {
	// A depth-3 record with no depth-2 ancestor attaches under the
	// top-level node instead of being dropped.
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 1), node(1, 3)})

	if len(parent.Children) != 2 {
		t.Fatalf("top-level children = %d, want 2", len(parent.Children))
	}
	if parent.Children[1].Index != 1 {
		t.Error("orphan record missing from tree")
	}
}

func TestAttachInnerZeroStackHeightRecords(t *testing.T) {
	// Depth 0 records (saturated from stack height 0 or 1) attach
	// directly under the top-level node.
	parent := node(0, 0)
	attachInner(parent, []*InstructionLog{node(0, 0), node(1, 1)})

	if len(parent.Children) != 2 {
		t.Fatalf("top-level children = %d, want 2", len(parent.Children))
	}
}

func TestAttachInnerDeterministic(t *testing.T) {
	// The same depth-tagged sequence always yields the same tree shape.
	build := func() *InstructionLog {
		parent := node(0, 0)
		attachInner(parent, []*InstructionLog{
			node(0, 1), node(1, 2), node(2, 2), node(3, 3), node(4, 1),
		})
		return parent
	}

	shape := func(n *InstructionLog) []int {
		var out []int
		var walk func(*InstructionLog, int)
		walk = func(node *InstructionLog, level int) {
			out = append(out, level, node.Index)
			for _, c := range node.Children {
				walk(c, level+1)
			}
		}
		walk(n, 0)
		return out
	}

	a, b := shape(build()), shape(build())
	if len(a) != len(b) {
		t.Fatal("non-deterministic tree size")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic tree shape at %d: %v vs %v", i, a, b)
		}
	}

	// And the shape itself: 0 -> [0 -> [1, 2 -> [3]], 4]
	tree := build()
	if len(tree.Children) != 2 {
		t.Fatalf("top-level children = %d, want 2", len(tree.Children))
	}
	first := tree.Children[0]
	if len(first.Children) != 2 {
		t.Fatalf("record 0 children = %d, want 2", len(first.Children))
	}
	if len(first.Children[1].Children) != 1 || first.Children[1].Children[0].Index != 3 {
		t.Error("record 3 not nested under record 2")
	}
}

func TestLastNodeAtDepthSearchesEarlierSiblings(t *testing.T) {
	// When the most recent sibling's subtree has no match, the search
	// falls back to earlier siblings, most recent first.
	a := node(0, 1)
	a.Children = []*InstructionLog{node(1, 2)}
	b := node(2, 1) // no children

	got := lastNodeAtDepth([]*InstructionLog{a, b}, 2)
	if got == nil || got.Index != 1 {
		t.Fatalf("lastNodeAtDepth = %+v, want index 1", got)
	}
}
