package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tiny-td-go/internal/tictactoe"
)

func runPlay(args []string) error {
	fs, common := newFlagSet("play")
	model := fs.String("model", "", "model file of the O agent (defaults to tictactoe.model_o)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, set, err := loadConfig(fs, common)
	if err != nil {
		return err
	}
	path := cfg.TicTacToe.ModelO
	if set["model"] {
		path = *model
	}
	agent, err := tictactoe.NewAgent(cfg.TicTacToe.Agent, nil, nil)
	if err != nil {
		return err
	}
	if err := agent.LoadFile(path, tictactoe.Codec{}); err != nil {
		return err
	}

	_, err = tea.NewProgram(newPlayModel(agent)).Run()
	return err
}

// playModel is a game of a human (X) against a trained agent (O).
type playModel struct {
	agent  *tictactoe.Agent
	game   *tictactoe.Game
	cursor tictactoe.Cell
	status string
}

func newPlayModel(agent *tictactoe.Agent) playModel {
	return playModel{agent: agent, game: tictactoe.NewGame(), status: "Your move."}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.cursor.Row = (m.cursor.Row + tictactoe.Size - 1) % tictactoe.Size
	case "down", "j":
		m.cursor.Row = (m.cursor.Row + 1) % tictactoe.Size
	case "left", "h":
		m.cursor.Col = (m.cursor.Col + tictactoe.Size - 1) % tictactoe.Size
	case "right", "l":
		m.cursor.Col = (m.cursor.Col + 1) % tictactoe.Size
	case "r":
		m.game.Reset()
		m.status = "Your move."
	case "enter", " ":
		m.place()
	}
	return m, nil
}

// place plays the human move under the cursor and the agent's reply.
func (m *playModel) place() {
	if m.game.Over() {
		return
	}
	if err := m.game.Play(m.cursor); err != nil {
		m.status = "That square is taken."
		return
	}
	if !m.game.Over() {
		board := m.game.Board()
		reply, err := m.agent.Greedy(board, board.ValidMoves())
		if err != nil {
			m.status = err.Error()
			return
		}
		if err := m.game.Play(reply); err != nil {
			m.status = err.Error()
			return
		}
	}
	m.status = m.outcome()
}

func (m playModel) outcome() string {
	if !m.game.Over() {
		return "Your move."
	}
	switch m.game.Winner() {
	case tictactoe.X:
		return "You win! Press r to play again."
	case tictactoe.O:
		return "The agent wins. Press r to play again."
	}
	return "Draw. Press r to play again."
}

func (m playModel) View() string {
	var sb strings.Builder
	sb.WriteString("Tic-tac-toe: you are X, the agent is O.\n\n")
	board := m.game.Board()
	for r := 0; r < tictactoe.Size; r++ {
		for c := 0; c < tictactoe.Size; c++ {
			mark := "."
			switch board[r][c] {
			case tictactoe.X:
				mark = "X"
			case tictactoe.O:
				mark = "O"
			}
			if m.cursor == (tictactoe.Cell{Row: r, Col: c}) {
				fmt.Fprintf(&sb, "[%s]", mark)
			} else {
				fmt.Fprintf(&sb, " %s ", mark)
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n" + m.status + "\n")
	sb.WriteString("\narrows/hjkl move, enter places, r restarts, q quits.\n")
	return sb.String()
}
