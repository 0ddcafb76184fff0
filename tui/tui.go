package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connect4/engine"
	"connect4/game"

	tea "github.com/charmbracelet/bubbletea"
)

type machineMsg struct {
	move engine.Move
	err  error
}

// Model is a bubbletea front end for an Engine. The human opens.
type Model struct {
	ctx      context.Context
	engine   *engine.Engine
	board    game.Board // snapshot for View; the engine is busy while thinking
	cursor   int
	thinking bool
	status   string
}

func New(ctx context.Context, e *engine.Engine) Model {
	return Model{
		ctx:    ctx,
		engine: e,
		board:  e.Board(),
		status: "Your move.",
	}
}

// Run plays a game in the terminal until the user quits.
func Run(ctx context.Context, e *engine.Engine) error {
	_, err := tea.NewProgram(New(ctx, e)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) machineCmd() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		move, err := e.PlayMachine(ctx)
		return machineMsg{move: move, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		if m.thinking || m.engine.Outcome() != engine.InProgress {
			return m, nil
		}
		switch msg.String() {
		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < m.board.Cols()-1 {
				m.cursor++
			}
		case "enter", " ":
			return m.drop()
		}
	case machineMsg:
		m.thinking = false
		m.board = m.engine.Board()
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("Search failed: %v", msg.err)
		case m.engine.Outcome() != engine.InProgress:
			m.status = verdict(m.engine.Outcome())
		default:
			m.status = fmt.Sprintf("Machine played column %d (value %.3f). Your move.", msg.move.Column, msg.move.Value)
		}
	}
	return m, nil
}

func (m Model) drop() (tea.Model, tea.Cmd) {
	if err := m.engine.PlayHuman(m.cursor); err != nil {
		if errors.Is(err, game.ErrIllegalMove) {
			m.status = fmt.Sprintf("Column %d is full.", m.cursor)
			return m, nil
		}
		m.status = err.Error()
		return m, nil
	}
	m.board = m.engine.Board()
	if m.engine.Outcome() != engine.InProgress {
		m.status = verdict(m.engine.Outcome())
		return m, nil
	}
	m.thinking = true
	m.status = "Machine is thinking..."
	return m, m.machineCmd()
}

func verdict(o engine.Outcome) string {
	switch o {
	case engine.MachineWon:
		return "The machine wins."
	case engine.OpponentWon:
		return "You win!"
	case engine.Draw:
		return "It's a draw."
	default:
		return ""
	}
}

var symbols = map[game.Player]string{
	game.Empty:    ".",
	game.Machine:  "X",
	game.Opponent: "O",
}

func (m Model) View() string {
	var sb strings.Builder
	cols := m.board.Cols()

	for col := 0; col < cols; col++ {
		if col == m.cursor && !m.thinking {
			sb.WriteString(" v")
		} else {
			sb.WriteString("  ")
		}
	}
	sb.WriteString("\n")
	for row := m.board.Rows() - 1; row >= 0; row-- {
		for col := 0; col < cols; col++ {
			sb.WriteString(" " + symbols[m.board.At(row, col)])
		}
		sb.WriteString("\n")
	}
	for col := 0; col < cols; col++ {
		fmt.Fprintf(&sb, " %d", col%10)
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.status + "\n")
	sb.WriteString("\n←/→ move  enter drop  q quit\n")
	return sb.String()
}
