package tui

import (
	"context"
	"strings"
	"testing"

	"connect4/engine"
	"connect4/game"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type columnMover int

func (c columnMover) FindMove(ctx context.Context, b game.Board) (engine.Move, error) {
	return engine.Move{Column: int(c), Value: 0.5}, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press feeds keys and runs any resulting command to completion.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(Model)
		if cmd != nil {
			next, _ = m.Update(cmd())
			m = next.(Model)
		}
	}
	return m
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("cursor stays on the board", func(t *testing.T) {
		m := New(ctx, engine.New(game.NewBoard(6, 7), columnMover(6)))

		m = press(t, m, "left")
		require.Equal(t, 0, m.cursor)
		m = press(t, m, "right", "right", "right", "right", "right", "right", "right", "right")
		require.Equal(t, 6, m.cursor)
	})

	t.Run("dropping a token lets the machine answer", func(t *testing.T) {
		e := engine.New(game.NewBoard(6, 7), columnMover(6))
		m := New(ctx, e)

		m = press(t, m, "right", "enter")
		require.False(t, m.thinking)
		require.Equal(t, game.Opponent, m.board.At(0, 1))
		require.Equal(t, game.Machine, m.board.At(0, 6))
		require.Contains(t, m.status, "Machine played column 6")
	})

	t.Run("enter starts the machine search", func(t *testing.T) {
		m := New(ctx, engine.New(game.NewBoard(6, 7), columnMover(6)))

		next, cmd := m.Update(key("enter"))
		m = next.(Model)
		require.NotNil(t, cmd)
		require.True(t, m.thinking)
		require.Equal(t, "Machine is thinking...", m.status)

		// keys are ignored until the answer arrives
		next, cmd = m.Update(key("right"))
		require.Nil(t, cmd)
		require.Equal(t, 0, next.(Model).cursor)
	})

	t.Run("full columns are reported", func(t *testing.T) {
		m := New(ctx, engine.New(game.NewBoard(2, 3), columnMover(2)))

		m = press(t, m, "enter", "enter", "enter")
		require.Equal(t, "Column 0 is full.", m.status)
	})

	t.Run("the human can win", func(t *testing.T) {
		e := engine.New(game.NewBoard(6, 7), columnMover(6))
		m := New(ctx, e)

		m = press(t, m, "enter", "enter", "enter", "enter")
		require.Equal(t, engine.OpponentWon, e.Outcome())
		require.Equal(t, "You win!", m.status)

		_, cmd := m.Update(key("enter"))
		require.Nil(t, cmd)
	})

	t.Run("q quits", func(t *testing.T) {
		m := New(ctx, engine.New(game.NewBoard(6, 7), columnMover(6)))

		_, cmd := m.Update(key("q"))
		require.NotNil(t, cmd)
		require.Equal(t, tea.Quit(), cmd())
	})

	t.Run("view draws tokens and the cursor", func(t *testing.T) {
		m := New(ctx, engine.New(game.NewBoard(6, 7), columnMover(6)))
		m = press(t, m, "right", "right", "enter")

		view := m.View()
		lines := strings.Split(view, "\n")
		require.Equal(t, "     v        ", lines[0])
		require.Equal(t, " . . O . . . X", lines[6])
		require.Equal(t, " 0 1 2 3 4 5 6", lines[7])
	})
}
