// Package scroll implements the Neovide-style smooth-scrolling animator:
// it owns a ring of scrollback rows sized to twice the scroll region and
// orchestrates rotate -> snapshot -> animate -> splice-into-render-buffer
// -> restore every frame.
package scroll

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/helixml/termwire/internal/grid"
	"github.com/helixml/termwire/internal/ringbuf"
	"github.com/helixml/termwire/internal/scrollback"
	"github.com/helixml/termwire/internal/spring"
)

// Config are the tunables the engine needs for every Flush; see
// internal/scrollcfg for the env-driven loader that produces one of these.
type Config struct {
	// AnimationDurationSeconds is the 1% settling time at Bounciness == 0.
	AnimationDurationSeconds float64
	// Bounciness in [0, 1] relaxes the damping ratio; 0 is critically
	// damped, >0 overshoots before settling.
	Bounciness float64
}

// Engine owns the ring of scrollback rows and the spring that animates the
// viewport offset. It is single-threaded cooperative: Flush, Populate, and
// Restore must all run on the render thread. QueueScroll may be called
// from any thread that feeds the upstream grid.
type Engine struct {
	logger *slog.Logger
	cfg    Config

	region Region // last resolved region, valid after the first Flush

	ring        *ringbuf.Ring[*scrollback.Row]
	ringCap     int
	spring      spring.Spring
	isAnimating bool

	pendingDelta atomic.Int64
}

// New creates an idle engine. logger may be nil, in which case
// slog.Default() is used.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, cfg: cfg}
}

// QueueScroll accumulates a pending line delta and records the scroll
// region it applies to. Safe to call from any thread; the accumulation is
// a single atomic add so concurrent callers never lose a delta.
func (e *Engine) QueueScroll(delta int, top, bottom, left, right int) {
	e.pendingDelta.Add(int64(delta))
	e.region = Region{Top: top, Bottom: bottom, Left: left, Right: right}
}

// IsAnimating reports whether the spring is still decaying.
func (e *Engine) IsAnimating() bool {
	return e.isAnimating
}

// ScrollOffsetLines is the integer line offset uniform the renderer uses to
// index the cell grid.
func (e *Engine) ScrollOffsetLines() int {
	return int(math.Floor(e.spring.Position))
}

// SubLineOffsetPx is the pixel-space sub-line translation uniform, derived
// as (floor(position) - position) * cellHeight. If shader translation
// direction disagrees, negate at this single call site — see SPEC_FULL.md
// Open Question resolution.
func (e *Engine) SubLineOffsetPx(cellHeight float64) float64 {
	pos := e.spring.Position
	return (math.Floor(pos) - pos) * cellHeight
}

// Flush runs the per-frame rotate -> snapshot -> kick -> integrate
// sequence. dt is the real frame delta in seconds (see SPEC_FULL.md §4.7 —
// the engine no longer hardcodes 1/60 internally).
func (e *Engine) Flush(dt float64, g grid.CellGrid) error {
	region := e.region.resolve(g.Rows(), g.Columns())
	inner := region.inner()
	if inner <= 0 {
		return nil
	}

	if err := e.ensureCapacity(inner, g.Columns()); err != nil {
		return err
	}

	delta := int(e.pendingDelta.Swap(0))

	if delta != 0 {
		e.ring.Rotate(delta)
	}
	for i := 0; i < inner; i++ {
		gridRow := region.Top + i
		if gridRow < 0 || gridRow >= g.Rows() {
			e.logger.Debug("scroll engine: row index out of grid bounds, skipped", "row", gridRow)
			continue
		}
		e.ring.Get(i).Snapshot(g, gridRow)
	}

	if delta != 0 {
		if e.isAnimating {
			e.spring.Position += float64(-delta)
		} else {
			e.spring.Position = float64(-delta)
			e.spring.Velocity = 0
		}
		e.isAnimating = true
	}

	if e.isAnimating {
		if !e.spring.Update(dt, e.cfg.AnimationDurationSeconds, e.cfg.Bounciness) {
			e.isAnimating = false
			e.spring.Reset()
		}
	}

	e.region = region
	return nil
}

// ensureCapacity reallocates the ring (and its row objects) to 2*inner
// slots sized to columns whenever the region's inner height changes. The
// spring is cleared on any resize since old animation state no longer maps
// onto a differently-sized ring.
func (e *Engine) ensureCapacity(inner, columns int) error {
	wantCap := 2 * inner
	if e.ring != nil && e.ringCap == wantCap {
		return nil
	}
	if wantCap <= 0 || wantCap > 1<<20 {
		return fmt.Errorf("scroll engine: refusing to allocate ring of capacity %d", wantCap)
	}

	e.ring = ringbuf.New(wantCap, (*scrollback.Row)(nil))
	for i := 0; i < wantCap; i++ {
		e.ring.Set(i, scrollback.NewRow(columns))
	}
	e.ringCap = wantCap

	e.spring.Reset()
	e.isAnimating = false
	return nil
}

// PopulateCellsForRender splices animated scrollback content into g just
// before GPU upload. It is a no-op while the engine is not animating.
func (e *Engine) PopulateCellsForRender(g grid.CellGrid) {
	if !e.isAnimating {
		return
	}
	region := e.region
	inner := region.inner()
	columns := g.Columns()
	full := region.fullWidth(columns)

	l := int(math.Floor(e.spring.Position))

	lo := min(0, -l)
	hi := max(inner, inner-l)

	bg := g.BGCells()
	fgRows := g.FGRows()

	for i := lo; i < hi; i++ {
		b := l + i
		row := e.ring.Get(b)
		if row == nil || !row.Valid {
			continue
		}

		d := region.Top + i
		inRegion := d >= region.Top && d < region.Bottom

		if inRegion {
			if d < 0 || d >= g.Rows() {
				continue
			}
			if full {
				copy(bg[d*columns:d*columns+columns], row.BG)
				fgRows[d+1] = adjustRow(row.FG, d, false)
			} else {
				currentRow := e.ring.Get(i)
				fgRows[d+1] = mergePartialWidth(currentRow, row, region.Left, region.Right, d, bg, columns, d*columns)
			}
			continue
		}

		// Ghost row: clamp into the region, append rather than overwrite,
		// leave background untouched so fixed header/footer backgrounds survive.
		clamped := d
		if clamped < region.Top {
			clamped = region.Top
		} else if clamped >= region.Bottom {
			clamped = region.Bottom - 1
		}
		if clamped < 0 || clamped >= g.Rows() {
			continue
		}
		ghosts := adjustRow(row.FG, clamped, true)
		fgRows[clamped+1] = append(fgRows[clamped+1], ghosts...)
	}
}

// RestoreCells rewrites the scroll region from the ring's pristine
// current-frame snapshots, returning the grid to the state the next
// upstream rebuild expects.
func (e *Engine) RestoreCells(g grid.CellGrid) {
	region := e.region
	inner := region.inner()
	columns := g.Columns()

	bg := g.BGCells()
	fgRows := g.FGRows()

	for i := 0; i < inner; i++ {
		d := region.Top + i
		if d < 0 || d >= g.Rows() {
			continue
		}
		row := e.ring.Get(i)
		if row == nil || !row.Valid || row.Columns != columns {
			e.logger.Debug("scroll engine: row shape mismatch on restore, skipped", "row", d)
			continue
		}
		copy(bg[d*columns:d*columns+columns], row.BG)
		fgRows[d+1] = adjustRow(row.FG, d, false)
	}
}

func adjustRow(src []grid.Glyph, destRow int, scrollGlyph bool) []grid.Glyph {
	out := make([]grid.Glyph, len(src))
	for i, g := range src {
		g.Row = destRow
		if scrollGlyph {
			g.IsScrollGlyph = true
		}
		out[i] = g
	}
	return out
}

// mergePartialWidth overwrites only columns [left,right) of the
// destination row's background with animated's background and glyphs in
// that band, while keeping current's background/glyphs for the untouched
// column band.
func mergePartialWidth(current, animated *scrollback.Row, left, right, destRow int, bg []grid.BGCell, columns, bgStart int) []grid.Glyph {
	for col := left; col < right && col < columns; col++ {
		if col < len(animated.BG) {
			bg[bgStart+col] = animated.BG[col]
		}
	}

	out := make([]grid.Glyph, 0, len(current.FG)+len(animated.FG))
	for _, g := range current.FG {
		if g.Col < left || g.Col >= right {
			g.Row = destRow
			out = append(out, g)
		}
	}
	for _, g := range animated.FG {
		if g.Col >= left && g.Col < right {
			g.Row = destRow
			out = append(out, g)
		}
	}
	return out
}
