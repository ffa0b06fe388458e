package entity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

// WinLength is the number of same-symbol cells in an unbroken line that wins.
const WinLength = 5

// Coord is a cell on the unbounded board.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key formats the coordinate as "x,y".
func (that Coord) Key() string {
	return strconv.Itoa(that.X) + "," + strconv.Itoa(that.Y)
}

// Axis is a pair of opposite walking directions.
type Axis struct {
	DX, DY int
}

// Axes are scanned in this order; the first one reaching WinLength is reported.
var Axes = [4]Axis{
	{DX: 0, DY: 1},  // vertical
	{DX: 1, DY: 0},  // horizontal
	{DX: 1, DY: 1},  // diagonal
	{DX: 1, DY: -1}, // anti-diagonal
}

// Board is a sparse, append-only mapping of cells to symbols.
type Board struct {
	cells map[Coord]Symbol
}

func NewBoard() *Board {
	return &Board{cells: make(map[Coord]Symbol)}
}

func (that *Board) IsOccupied(x, y int) bool {
	_, ok := that.cells[Coord{X: x, Y: y}]
	return ok
}

// At returns the symbol at (x, y), if any.
func (that *Board) At(x, y int) (Symbol, bool) {
	symbol, ok := that.cells[Coord{X: x, Y: y}]
	return symbol, ok
}

// Place writes symbol at an empty cell. Existing cells are never overwritten.
func (that *Board) Place(x, y int, symbol Symbol) error {
	if that.IsOccupied(x, y) {
		return fmt.Errorf("%w: (%d,%d)", apperror.ErrCellOccupied, x, y)
	}

	that.cells[Coord{X: x, Y: y}] = symbol

	return nil
}

func (that *Board) Len() int {
	return len(that.cells)
}

// WinningRun returns the contiguous run through (x, y) on the first axis
// whose length reaches WinLength, ordered from one end to the other.
func (that *Board) WinningRun(x, y int) []Coord {
	symbol, ok := that.At(x, y)
	if !ok {
		return nil
	}

	for _, axis := range Axes {
		backward := that.walk(x, y, -axis.DX, -axis.DY, symbol)
		forward := that.walk(x, y, axis.DX, axis.DY, symbol)

		if len(backward)+1+len(forward) < WinLength {
			continue
		}

		run := make([]Coord, 0, len(backward)+1+len(forward))
		for i := len(backward) - 1; i >= 0; i-- {
			run = append(run, backward[i])
		}
		run = append(run, Coord{X: x, Y: y})
		run = append(run, forward...)

		return run
	}

	return nil
}

// walk collects cells holding symbol, starting next to (x, y) and stepping by (dx, dy).
// The walk stops at the edge of the int range instead of wrapping around.
func (that *Board) walk(x, y, dx, dy int, symbol Symbol) []Coord {
	var cells []Coord

	cx, cy := x, y
	for {
		var ok bool
		if cx, ok = step(cx, dx); !ok {
			return cells
		}
		if cy, ok = step(cy, dy); !ok {
			return cells
		}

		if s, found := that.At(cx, cy); !found || s != symbol {
			return cells
		}
		cells = append(cells, Coord{X: cx, Y: cy})
	}
}

// step moves v by a unit delta d, reporting false on overflow.
func step(v, d int) (int, bool) {
	switch {
	case d > 0 && v == math.MaxInt:
		return v, false
	case d < 0 && v == math.MinInt:
		return v, false
	}

	return v + d, true
}

// Cells returns the board keyed by "x,y".
func (that *Board) Cells() map[string]string {
	out := make(map[string]string, len(that.cells))
	for coord, symbol := range that.cells {
		out[coord.Key()] = string(symbol)
	}

	return out
}
