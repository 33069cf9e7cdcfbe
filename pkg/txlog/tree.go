package txlog

// attachInner rebuilds the CPI call tree of one top-level instruction from
// its flat trace. Each record's Depth must already be set from the trace's
// stack height (height 1 is the top-level frame, so depth = height - 1).
//
// Records at depth <= 1 attach directly under the top-level node. Deeper
// records attach under the most recently inserted node at depth-1, which
// models "the instruction most recently pushed onto that stack level is the
// current caller". Records whose ancestor cannot be found (malformed or
// out-of-order traces) fall back to the top-level node rather than being
// dropped: every record appears in the final tree exactly once.
func attachInner(parent *InstructionLog, records []*InstructionLog) {
	for _, rec := range records {
		if rec.Depth <= 1 {
			parent.Children = append(parent.Children, rec)
			continue
		}
		if anc := lastNodeAtDepth(parent.Children, rec.Depth-1); anc != nil {
			anc.Children = append(anc.Children, rec)
		} else {
			parent.Children = append(parent.Children, rec)
		}
	}
}

// lastNodeAtDepth finds the most recently attached node with the given
// depth. The traversal is an explicit-stack depth-first walk that visits the
// most recently inserted subtree first, so the walk depth is bounded by tree
// size rather than call-stack limits regardless of how deeply a hostile
// trace nests.
func lastNodeAtDepth(forest []*InstructionLog, depth int) *InstructionLog {
	stack := make([]*InstructionLog, len(forest))
	copy(stack, forest)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.Depth == depth {
			return node
		}
		stack = append(stack, node.Children...)
	}
	return nil
}
