package reports

import (
	"errors"
	"fmt"
)

// GridColumns is the width of the dashboard grid.
const GridColumns = 12

var (
	// ErrWidgetNotFound is returned when an editor operation targets an unknown widget.
	ErrWidgetNotFound = errors.New("reports: widget not found")
	// ErrDuplicateWidget is returned when adding a widget whose id already exists.
	ErrDuplicateWidget = errors.New("reports: widget already exists")
)

// LayoutEditor edits the widget list of a draft version on a 12-column grid.
// Committed operations become one undo step each; Drag and DragResize are
// transient and only become an undo step on EndGesture.
type LayoutEditor struct {
	history *History[[]Widget]
}

// NewLayoutEditor builds an editor over widgets.
func NewLayoutEditor(widgets []Widget, opts ...HistoryOption[[]Widget]) *LayoutEditor {
	return &LayoutEditor{history: NewHistory(normalizeWidgets(widgets), opts...)}
}

// Load replaces the edited widgets and clears undo history.
func (e *LayoutEditor) Load(widgets []Widget) {
	e.history.Reset(normalizeWidgets(widgets))
}

// Widgets returns the current widget list.
func (e *LayoutEditor) Widgets() []Widget {
	return e.history.Present()
}

// History exposes the underlying undo stacks.
func (e *LayoutEditor) History() *History[[]Widget] { return e.history }

// Add appends a widget.
func (e *LayoutEditor) Add(w Widget) error {
	if w.ID == "" {
		return fmt.Errorf("reports: widget id required")
	}
	if indexOfWidget(e.Widgets(), w.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateWidget, w.ID)
	}
	e.history.SetState(func(ws []Widget) []Widget {
		return append(ws, clampWidget(w))
	})
	return nil
}

// Remove deletes a widget.
func (e *LayoutEditor) Remove(id string) error {
	idx := indexOfWidget(e.Widgets(), id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	e.history.SetState(func(ws []Widget) []Widget {
		return append(ws[:idx:idx], ws[idx+1:]...)
	})
	return nil
}

// Reorder moves widgets to the given order; unknown ids are ignored and
// unlisted widgets keep their relative order at the end.
func (e *LayoutEditor) Reorder(order []string) {
	e.history.SetState(func(ws []Widget) []Widget {
		return applyOrderOverride(ws, order)
	})
}

// Move places a widget at x, y as one undo step.
func (e *LayoutEditor) Move(id string, x, y int) error {
	return e.updateLayout(id, func(l *WidgetLayout) { l.X, l.Y = x, y })
}

// Resize changes a widget size as one undo step.
func (e *LayoutEditor) Resize(id string, w, h int) error {
	return e.updateLayout(id, func(l *WidgetLayout) { l.W, l.H = w, h })
}

// Drag moves a widget as a transient frame of a gesture.
func (e *LayoutEditor) Drag(id string, x, y int) error {
	return e.updateLayout(id, func(l *WidgetLayout) { l.X, l.Y = x, y }, Transient())
}

// DragResize resizes a widget as a transient frame of a gesture.
func (e *LayoutEditor) DragResize(id string, w, h int) error {
	return e.updateLayout(id, func(l *WidgetLayout) { l.W, l.H = w, h }, Transient())
}

// EndGesture commits the current layout. A gesture that ends where it started
// leaves the undo stack untouched.
func (e *LayoutEditor) EndGesture() {
	if !e.history.InGesture() {
		return
	}
	current := e.Widgets()
	e.history.Set(current)
}

// Undo steps back. It returns false when there is nothing to undo.
func (e *LayoutEditor) Undo() bool { return e.history.Undo() }

// Redo steps forward. It returns false when there is nothing to redo.
func (e *LayoutEditor) Redo() bool { return e.history.Redo() }

func (e *LayoutEditor) updateLayout(id string, mutate func(*WidgetLayout), opts ...SetOption) error {
	idx := indexOfWidget(e.Widgets(), id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	e.history.SetState(func(ws []Widget) []Widget {
		layout := ws[idx].Layout
		mutate(&layout)
		ws[idx].Layout = clampLayout(layout)
		return ws
	}, opts...)
	return nil
}

func indexOfWidget(ws []Widget, id string) int {
	for i, w := range ws {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func normalizeWidgets(widgets []Widget) []Widget {
	out := make([]Widget, 0, len(widgets))
	for _, w := range widgets {
		out = append(out, clampWidget(w))
	}
	return out
}

func clampWidget(w Widget) Widget {
	w.Layout = clampLayout(w.Layout)
	return w
}

// clampLayout keeps a rectangle inside the grid and above its minimum size.
func clampLayout(l WidgetLayout) WidgetLayout {
	minW := max(l.MinW, 1)
	minH := max(l.MinH, 1)
	l.W = clampInt(l.W, min(minW, GridColumns), GridColumns)
	if l.H < minH {
		l.H = minH
	}
	if l.X < 0 {
		l.X = 0
	}
	if l.Y < 0 {
		l.Y = 0
	}
	if l.X+l.W > GridColumns {
		l.X = GridColumns - l.W
	}
	return l
}

func applyOrderOverride(widgets []Widget, order []string) []Widget {
	if len(order) == 0 {
		return widgets
	}
	index := make(map[string]Widget, len(widgets))
	for _, w := range widgets {
		index[w.ID] = w
	}
	result := make([]Widget, 0, len(widgets))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			continue
		}
		if w, ok := index[id]; ok {
			result = append(result, w)
			seen[id] = struct{}{}
		}
	}
	for _, w := range widgets {
		if _, ok := seen[w.ID]; !ok {
			result = append(result, w)
		}
	}
	return result
}
