package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tiny-td-go/internal/td"
	"tiny-td-go/internal/tictactoe"
)

func press(t *testing.T, m playModel, keys ...string) playModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(playModel)
	}
	return m
}

func newTestPlayModel(t *testing.T) playModel {
	t.Helper()
	agent, err := tictactoe.NewAgent(td.DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return newPlayModel(agent)
}

func TestPlayAgentReplies(t *testing.T) {
	m := press(t, newTestPlayModel(t), "down", "right", "enter")
	board := m.game.Board()
	if board[1][1] != tictactoe.X {
		t.Fatalf("expected X in the centre, got\n%s", board)
	}
	if got := 9 - len(board.ValidMoves()); got != 2 {
		t.Fatalf("expected the agent to reply, got %d marks", got)
	}
	if !strings.Contains(m.View(), "[X]") {
		t.Fatalf("expected the cursor on the centre, got\n%s", m.View())
	}
}

func TestPlayRejectsTakenSquare(t *testing.T) {
	m := press(t, newTestPlayModel(t), "enter", "enter")
	if m.status != "That square is taken." {
		t.Fatalf("expected a taken-square message, got %q", m.status)
	}
	m = press(t, m, "r")
	if len(m.game.Board().ValidMoves()) != 9 {
		t.Fatalf("expected r to reset the board")
	}
}

func TestPlayQuits(t *testing.T) {
	_, cmd := newTestPlayModel(t).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
