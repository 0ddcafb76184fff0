package game

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports a malformed persisted board. Line is 1-based.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("board line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a board in the text format: a "<rows> <cols>" header followed by
// rows lines of cols cell codes, topmost row first. The last mover is not
// stored, so a board with tokens on it is taken to be the machine's turn.
func Load(r io.Reader) (Board, error) {
	scanner := bufio.NewScanner(r)
	line := 0
	next := func() ([]string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, &ParseError{Line: line + 1, Err: err}
			}
			return nil, &ParseError{Line: line + 1, Err: io.ErrUnexpectedEOF}
		}
		line++
		return strings.Fields(scanner.Text()), nil
	}

	header, err := next()
	if err != nil {
		return Board{}, err
	}
	if len(header) != 2 {
		return Board{}, &ParseError{Line: line, Err: fmt.Errorf("want \"<rows> <cols>\", got %d fields", len(header))}
	}
	rows, err := strconv.Atoi(header[0])
	if err != nil || rows <= 0 {
		return Board{}, &ParseError{Line: line, Err: fmt.Errorf("bad row count %q", header[0])}
	}
	cols, err := strconv.Atoi(header[1])
	if err != nil || cols <= 0 {
		return Board{}, &ParseError{Line: line, Err: fmt.Errorf("bad column count %q", header[1])}
	}

	grid := make([][]Player, rows)
	for r := rows - 1; r >= 0; r-- {
		fields, err := next()
		if err != nil {
			return Board{}, err
		}
		if len(fields) != cols {
			return Board{}, &ParseError{Line: line, Err: fmt.Errorf("want %d cells, got %d", cols, len(fields))}
		}
		grid[r] = make([]Player, cols)
		for c, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return Board{}, &ParseError{Line: line, Err: fmt.Errorf("cell %d: %w", c, err)}
			}
			if v < 0 || v > int(Opponent) {
				return Board{}, &ParseError{Line: line, Err: fmt.Errorf("cell %d: unknown value %d", c, v)}
			}
			grid[r][c] = Player(v)
		}
	}

	b := NewBoard(rows, cols)
	for r := 0; r < rows; r++ {
		for c, p := range grid[r] {
			if p == Empty {
				continue
			}
			if err := b.Set(r, c, p); err != nil {
				// Row r is printed on line 1 + (rows - r).
				return Board{}, &ParseError{Line: 1 + rows - r, Err: err}
			}
		}
	}
	if b.EmptyCells() < rows*cols {
		b.SetLast(Opponent, -1)
	}
	return b, nil
}

func Save(w io.Writer, b Board) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", b.rows, b.cols); err != nil {
		return err
	}
	fields := make([]string, b.cols)
	for r := b.rows - 1; r >= 0; r-- {
		for c := 0; c < b.cols; c++ {
			fields[c] = strconv.Itoa(int(b.At(r, c)))
		}
		if _, err := bw.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func LoadFile(path string) (Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return Board{}, fmt.Errorf("failed to open board file: %w", err)
	}
	defer f.Close()

	b, err := Load(f)
	if err != nil {
		return Board{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return b, nil
}

// SaveFile writes to a temporary file next to path and renames it into place.
func SaveFile(path string, b Board) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create board file: %w", err)
	}
	tmpPath := tmp.Name()

	err = Save(tmp, b)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write board: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace board file: %w", err)
	}
	return nil
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
