// Package scrollback holds the GPU-ready snapshot of a single grid row
// that the scroll engine rotates through its ring buffer.
package scrollback

import "github.com/helixml/termwire/internal/grid"

// Row is one ring slot's snapshot of a grid row: a variable-length
// foreground glyph list and a fixed-length background color strip. Invalid
// rows (freshly allocated, or explicitly cleared) are skipped by the
// engine's populate/restore passes.
type Row struct {
	FG      []grid.Glyph
	BG      []grid.BGCell
	Columns int
	Valid   bool
}

// NewRow allocates a row sized to hold columns background cells, invalid
// until first populated.
func NewRow(columns int) *Row {
	return &Row{
		BG:      make([]grid.BGCell, columns),
		Columns: columns,
		Valid:   false,
	}
}

// Clear invalidates the row, zeroing its background strip and dropping
// foreground glyphs while retaining the underlying slice capacity.
func (r *Row) Clear() {
	r.Valid = false
	for i := range r.BG {
		r.BG[i] = grid.BGCell{}
	}
	r.FG = r.FG[:0]
}

// Snapshot copies grid row `gridRow` (0-based) of g into the row, marking
// it valid. It reuses the row's existing FG backing array, and the BG one
// unless the grid's column count differs from the row's.
func (r *Row) Snapshot(g grid.CellGrid, gridRow int) {
	cols := g.Columns()
	if cols != r.Columns {
		r.BG = make([]grid.BGCell, cols)
		r.Columns = cols
	}

	bg := g.BGCells()
	start := gridRow * cols
	copy(r.BG, bg[start:start+cols])

	fgRows := g.FGRows()
	src := fgRows[gridRow+1]
	r.FG = append(r.FG[:0], src...)

	r.Valid = true
}
