package reports

import (
	"reflect"

	"github.com/tiendc/go-deepcopy"
)

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 50

// History is a snapshot based undo/redo container. Transient updates (live drag
// frames) are coalesced so that only the net effect of a gesture becomes one undo
// step. A History has a single owner and is not safe for concurrent use.
type History[T any] struct {
	past    []T
	present T
	future  []T

	transientBase *T

	limit int
	equal func(a, b T) bool
	clone func(T) T
}

// HistoryOption configures a History.
type HistoryOption[T any] func(*History[T])

// WithLimit overrides the maximum undo depth.
func WithLimit[T any](limit int) HistoryOption[T] {
	return func(h *History[T]) {
		if limit > 0 {
			h.limit = limit
		}
	}
}

// WithEqual overrides structural equality.
func WithEqual[T any](fn func(a, b T) bool) HistoryOption[T] {
	return func(h *History[T]) {
		if fn != nil {
			h.equal = fn
		}
	}
}

// WithClone overrides how snapshots are copied.
func WithClone[T any](fn func(T) T) HistoryOption[T] {
	return func(h *History[T]) {
		if fn != nil {
			h.clone = fn
		}
	}
}

// NewHistory builds a History whose present value is initial.
func NewHistory[T any](initial T, opts ...HistoryOption[T]) *History[T] {
	h := &History[T]{
		limit: DefaultHistoryLimit,
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
		clone: deepClone[T],
	}
	for _, opt := range opts {
		opt(h)
	}
	h.present = h.clone(initial)
	return h
}

func deepClone[T any](v T) T {
	var out T
	if err := deepcopy.Copy(&out, v); err != nil {
		return v
	}
	return out
}

type setConfig struct {
	snapshot bool
}

// SetOption tunes a single SetState call.
type SetOption func(*setConfig)

// Transient marks an update as an intermediate frame that is not snapshotted.
func Transient() SetOption {
	return func(c *setConfig) { c.snapshot = false }
}

// Present returns the current value.
func (h *History[T]) Present() T { return h.present }

// Past returns the undo depth.
func (h *History[T]) Past() int { return len(h.past) }

// Future returns the redo depth.
func (h *History[T]) Future() int { return len(h.future) }

// CanUndo reports whether Undo would change the present value.
func (h *History[T]) CanUndo() bool { return h.transientBase != nil || len(h.past) > 0 }

// CanRedo reports whether Redo would change the present value.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// InGesture reports whether transient updates are pending.
func (h *History[T]) InGesture() bool { return h.transientBase != nil }

// Set replaces the present value.
func (h *History[T]) Set(next T, opts ...SetOption) {
	h.SetState(func(T) T { return next }, opts...)
}

// SetState computes the next value from the present one. Updates are snapshotted
// unless Transient is passed.
func (h *History[T]) SetState(update func(T) T, opts ...SetOption) {
	cfg := setConfig{snapshot: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	next := update(h.clone(h.present))

	if !cfg.snapshot {
		if h.equal(next, h.present) {
			return
		}
		if h.transientBase == nil {
			base := h.present
			h.transientBase = &base
		}
		h.present = next
		return
	}

	if h.transientBase != nil {
		base := *h.transientBase
		h.transientBase = nil
		if h.equal(next, base) {
			h.present = base
			return
		}
		h.pushPast(base)
	} else {
		h.pushPast(h.present)
	}
	h.present = next
	h.future = nil
}

// Undo reverts a pending transient sequence, or else steps back one snapshot.
func (h *History[T]) Undo() bool {
	if h.transientBase != nil {
		h.present = *h.transientBase
		h.transientBase = nil
		return true
	}
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past = h.past[:last]
	h.future = append([]T{h.present}, h.future...)
	h.present = previous
	return true
}

// Redo re-applies the most recently undone snapshot. A pending transient sequence
// is discarded first.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	if h.transientBase != nil {
		h.present = *h.transientBase
		h.transientBase = nil
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.pushPast(h.present)
	h.present = next
	return true
}

// Reset replaces the present value and clears every stack, e.g. after loading a
// dashboard from storage.
func (h *History[T]) Reset(value T) {
	h.past = nil
	h.future = nil
	h.transientBase = nil
	h.present = h.clone(value)
}

func (h *History[T]) pushPast(v T) {
	h.past = append(h.past, v)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = append([]T(nil), h.past[over:]...)
	}
}
