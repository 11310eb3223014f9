package main

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tank2/spectate"
)

func TestModel_FollowsMatch(t *testing.T) {
	var m tea.Model = newModel("ws://example/")
	require.Contains(t, m.View(), "waiting for the first frame")

	f := spectate.Frame{
		MatchID: "sp_7",
		Turn:    3,
		Board:   []string{"..b.*.B..", ".........", "..r.*.R.."},
		Actions: [2][2]string{{"Up", "Stay"}, {"DownShoot", "Left"}},
		Bases:   [2]bool{true, true},
		Outcome: "unfinished",
	}
	m, _ = m.Update(frameMsg{Frame: f})
	view := m.View()
	require.Contains(t, view, "sp_7  turn 3")
	require.Contains(t, view, "DownShoot,Left")
	require.NotContains(t, view, "result:")

	m, _ = m.Update(frameMsg{Frame: spectate.Frame{MatchID: "sp_7", Outcome: "side1"}, Final: true})
	got := m.(model)
	require.Equal(t, 1, got.matches)
	require.Equal(t, "side1", got.frame.Outcome)
	require.Contains(t, got.View(), "result: side1")
}

func TestModel_Disconnected(t *testing.T) {
	var m tea.Model = newModel("ws://example/")
	m, _ = m.Update(disconnectedMsg{Err: errors.New("boom")})
	require.Contains(t, m.View(), "disconnected: boom")

	m, _ = newModel("ws://example/").Update(disconnectedMsg{})
	require.Contains(t, m.View(), "stream closed")
}

func TestModel_Quit(t *testing.T) {
	_, cmd := newModel("ws://example/").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
}
