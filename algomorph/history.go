package algomorph

import "github.com/xandramax/Volume1-sub000/algorithm"

// EditKind identifies what an Edit changed.
type EditKind int

const (
	EditDiagonal EditKind = iota
	EditHorizontal
	EditForcedCarrier
	EditReplace // whole-scene change such as randomize or initialize
)

// Edit is one undoable change to a scene. Toggle edits are their own
// inverse; replace edits carry the scene before and after.
type Edit struct {
	Kind   EditKind
	Scene  int
	Op     int
	RelMod int
	Before algorithm.Scene
	After  algorithm.Scene
}

func (e Edit) apply(b *algorithm.Bank, undo bool) {
	switch e.Kind {
	case EditDiagonal:
		b.ToggleDiagonal(e.Scene, e.Op, e.RelMod)
	case EditHorizontal:
		b.ToggleHorizontal(e.Scene, e.Op)
	case EditForcedCarrier:
		b.ToggleForcedCarrier(e.Scene, e.Op)
	case EditReplace:
		if undo {
			b.Restore(e.Scene, e.Before)
		} else {
			b.Restore(e.Scene, e.After)
		}
	}
}

// DefaultHistoryLimit bounds the number of undoable edits.
const DefaultHistoryLimit = 128

// History is a bounded undo/redo stack. Its backing array is allocated once
// so pushes on the audio thread do not allocate.
type History struct {
	edits []Edit
	pos   int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{edits: make([]Edit, 0, limit)}
}

// Push records an applied edit and discards anything that could be redone.
// When full, the oldest edit is dropped.
func (h *History) Push(e Edit) {
	h.edits = h.edits[:h.pos]
	if len(h.edits) == cap(h.edits) {
		copy(h.edits, h.edits[1:])
		h.edits = h.edits[:len(h.edits)-1]
	}
	h.edits = append(h.edits, e)
	h.pos = len(h.edits)
}

// Undo reverts the most recent edit. It reports false when there is nothing to undo.
func (h *History) Undo(b *algorithm.Bank) bool {
	if h.pos == 0 {
		return false
	}
	h.pos--
	h.edits[h.pos].apply(b, true)
	return true
}

// Redo reapplies the most recently undone edit.
func (h *History) Redo(b *algorithm.Bank) bool {
	if h.pos == len(h.edits) {
		return false
	}
	h.edits[h.pos].apply(b, false)
	h.pos++
	return true
}

func (h *History) CanUndo() bool { return h.pos > 0 }
func (h *History) CanRedo() bool { return h.pos < len(h.edits) }

// Clear drops every recorded edit.
func (h *History) Clear() {
	h.edits = h.edits[:0]
	h.pos = 0
}
