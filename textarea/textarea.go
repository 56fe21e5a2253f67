// Package textarea keeps a text input's visible height in step with its content.
package textarea

import (
	"github.com/charmbracelet/lipgloss"
)

// Element is anything with an adjustable height and a measurable content extent.
type Element interface {
	SetHeight(rows int)
	ScrollHeight() int
}

// Resize collapses el to its intrinsic minimum, measures the content extent
// and pins the height to it.
func Resize(el Element) {
	el.SetHeight(0)
	el.SetHeight(el.ScrollHeight())
}

// Field is a terminal text input that wraps at Width columns.
type Field struct {
	Text    string
	Width   int
	MinRows int
	MaxRows int // 0 means unbounded

	height int
}

func NewField(width int) *Field {
	return &Field{Width: width, MinRows: 1}
}

func (f *Field) minRows() int {
	if f.MinRows < 1 {
		return 1
	}
	return f.MinRows
}

// SetHeight clamps rows to [MinRows, MaxRows]; 0 resets to the minimum.
func (f *Field) SetHeight(rows int) {
	rows = max(rows, f.minRows())
	if f.MaxRows > 0 {
		rows = min(rows, f.MaxRows)
	}
	f.height = rows
}

func (f *Field) Height() int {
	if f.height == 0 {
		return f.minRows()
	}
	return f.height
}

// ScrollHeight is the number of rows the text occupies once wrapped.
func (f *Field) ScrollHeight() int {
	if f.Text == "" {
		return f.Height()
	}
	width := f.Width
	if width < 1 {
		width = 1
	}
	rendered := lipgloss.NewStyle().Width(width).Render(f.Text)
	return max(lipgloss.Height(rendered), f.Height())
}
