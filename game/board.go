package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"connect4/meta"
)

var ErrIllegalMove = errors.New("illegal move")

// Board is a gravity-drop grid. Row 0 is the bottom row. A Board is value data:
// copies made with Clone never share cell storage.
type Board struct {
	rows      int
	cols      int
	cells     []Player // row-major, rows*cols
	height    []int
	lastMover Player
	lastCol   int
}

// NewBoard returns an empty board. Non-positive dimensions fall back to the defaults.
func NewBoard(rows, cols int) Board {
	if rows <= 0 {
		rows = meta.ROWS
	}
	if cols <= 0 {
		cols = meta.COLS
	}
	return Board{
		rows:    rows,
		cols:    cols,
		cells:   make([]Player, rows*cols),
		height:  make([]int, cols),
		lastCol: -1,
	}
}

func (b Board) Clone() Board {
	cells := make([]Player, len(b.cells))
	copy(cells, b.cells)
	height := make([]int, len(b.height))
	copy(height, b.height)

	return Board{
		rows:      b.rows,
		cols:      b.cols,
		cells:     cells,
		height:    height,
		lastMover: b.lastMover,
		lastCol:   b.lastCol,
	}
}

func (b *Board) Rows() int          { return b.rows }
func (b *Board) Cols() int          { return b.cols }
func (b *Board) LastMover() Player  { return b.lastMover }
func (b *Board) LastCol() int       { return b.lastCol }
func (b *Board) Height(col int) int { return b.height[col] }

// At returns the cell at (row, col); out-of-bounds cells read as Empty.
func (b *Board) At(row, col int) Player {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return Empty
	}
	return b.cells[row*b.cols+col]
}

func (b *Board) IsLegal(col int) bool {
	return col >= 0 && col < b.cols && b.height[col] < b.rows
}

// LegalMoves returns the playable columns in ascending order.
func (b *Board) LegalMoves() []int {
	moves := make([]int, 0, b.cols)
	for col := 0; col < b.cols; col++ {
		if b.height[col] < b.rows {
			moves = append(moves, col)
		}
	}
	return moves
}

// Apply drops a token of p into col. It reports false, leaving the board
// untouched, when the column is full or out of range.
func (b *Board) Apply(col int, p Player) bool {
	if !b.IsLegal(col) {
		return false
	}
	b.cells[b.height[col]*b.cols+col] = p
	b.height[col]++
	b.lastMover = p
	b.lastCol = col
	return true
}

// UndoTo removes the top token of col and restores the last mover and column
// that preceded the matching Apply.
func (b *Board) UndoTo(col int, prevMover Player, prevCol int) bool {
	if col < 0 || col >= b.cols || b.height[col] == 0 {
		return false
	}
	b.height[col]--
	b.cells[b.height[col]*b.cols+col] = Empty
	b.lastMover = prevMover
	b.lastCol = prevCol
	return true
}

// Undo removes the top token of col. The board does not remember move history,
// so the previous last column is forgotten (-1) and the previous mover is
// inferred from turn alternation. Use UndoTo to restore the last move exactly.
func (b *Board) Undo(col int) bool {
	prevMover := Empty
	if b.EmptyCells() < len(b.cells)-1 {
		prevMover = b.lastMover.Opponent()
	}
	return b.UndoTo(col, prevMover, -1)
}

// IsTerminalAt reports whether the top token of lastCol completes a run of
// meta.CONNECT identical tokens in any of the four line directions.
func (b *Board) IsTerminalAt(lastCol int) bool {
	if lastCol < 0 || lastCol >= b.cols {
		return false
	}
	row := b.height[lastCol] - 1
	if row < 0 {
		return false
	}
	player := b.cells[row*b.cols+lastCol]

	directions := [4][2]int{
		{1, 0},  // vertical
		{0, 1},  // horizontal
		{1, 1},  // diagonal /
		{1, -1}, // diagonal \
	}
	for _, d := range directions {
		seq := 0
		for k := -(meta.CONNECT - 1); k <= meta.CONNECT-1; k++ {
			r, c := row+d[0]*k, lastCol+d[1]*k
			if r >= 0 && r < b.rows && c >= 0 && c < b.cols && b.cells[r*b.cols+c] == player {
				seq++
				if seq == meta.CONNECT {
					return true
				}
			} else {
				seq = 0
			}
		}
	}
	return false
}

func (b *Board) EmptyCells() int {
	n := 0
	for _, h := range b.height {
		n += b.rows - h
	}
	return n
}

func (b *Board) Full() bool {
	return b.EmptyCells() == 0
}

// Winner checks the top token of every column for a completed line and
// returns its owner, or Empty. Boards loaded from disk have no last move, so
// this is how their game-over state is found.
func (b *Board) Winner() Player {
	for col := 0; col < b.cols; col++ {
		if b.IsTerminalAt(col) {
			return b.cells[(b.height[col]-1)*b.cols+col]
		}
	}
	return Empty
}

// String draws the board top row first using the cell codes, with column
// numbers underneath.
func (b *Board) String() string {
	var sb strings.Builder
	for row := b.rows - 1; row >= 0; row-- {
		for col := 0; col < b.cols; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(int(b.cells[row*b.cols+col])))
		}
		sb.WriteByte('\n')
	}
	for col := 0; col < b.cols; col++ {
		if col > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(col % 10))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Set writes a cell directly, keeping column heights consistent. It refuses to
// leave a token floating above an empty cell or to clear a cell from under one.
func (b *Board) Set(row, col int, p Player) error {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return fmt.Errorf("cell (%d,%d) outside %dx%d board: %w", row, col, b.rows, b.cols, ErrIllegalMove)
	}
	if !p.Valid() {
		return fmt.Errorf("unknown cell value %d: %w", p, ErrIllegalMove)
	}
	h := b.height[col]
	switch {
	case p == Empty && row == h-1:
		b.height[col]--
	case p == Empty && row < h-1:
		return fmt.Errorf("clearing (%d,%d) would leave tokens floating: %w", row, col, ErrIllegalMove)
	case p != Empty && row == h:
		b.height[col]++
	case p != Empty && row > h:
		return fmt.Errorf("token at (%d,%d) would float: %w", row, col, ErrIllegalMove)
	}
	b.cells[row*b.cols+col] = p
	return nil
}

// SetLast overrides the recorded last move, for boards built with Set or loaded from disk.
func (b *Board) SetLast(p Player, col int) {
	b.lastMover = p
	b.lastCol = col
}

type boardJSON struct {
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	Cells     []int  `json:"cells"`
	LastMover Player `json:"last_mover"`
	LastCol   int    `json:"last_col"`
}

func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]int, len(b.cells))
	for i, p := range b.cells {
		cells[i] = int(p)
	}
	return json.Marshal(boardJSON{
		Rows:      b.rows,
		Cols:      b.cols,
		Cells:     cells,
		LastMover: b.lastMover,
		LastCol:   b.lastCol,
	})
}

// UnmarshalJSON rebuilds the board and its column heights from the cell grid.
func (b *Board) UnmarshalJSON(data []byte) error {
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Rows <= 0 || raw.Cols <= 0 || len(raw.Cells) != raw.Rows*raw.Cols {
		return fmt.Errorf("board %dx%d with %d cells", raw.Rows, raw.Cols, len(raw.Cells))
	}
	nb := NewBoard(raw.Rows, raw.Cols)
	for row := 0; row < raw.Rows; row++ {
		for col := 0; col < raw.Cols; col++ {
			v := raw.Cells[row*raw.Cols+col]
			if v == int(Empty) {
				continue
			}
			if v < 0 || v > int(Opponent) {
				return fmt.Errorf("unknown cell value %d: %w", v, ErrIllegalMove)
			}
			p := Player(v)
			if err := nb.Set(row, col, p); err != nil {
				return err
			}
		}
	}
	if raw.LastCol < -1 || raw.LastCol >= raw.Cols || !raw.LastMover.Valid() {
		return fmt.Errorf("last move %v in column %d", raw.LastMover, raw.LastCol)
	}
	nb.SetLast(raw.LastMover, raw.LastCol)
	*b = nb
	return nil
}
