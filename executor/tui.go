package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/tank2/config"
	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/spectate"
)

// frameMsg carries the board after each turn of the running match.
type frameMsg spectate.Frame

// matchMsg reports a finished match.
type matchMsg struct {
	ID      string
	Outcome game.Outcome
	Turns   int
	Took    time.Duration
}

type doneMsg struct{}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	boardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	side0Style = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	side1Style = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	target    int
	deadline  time.Duration
	startTime time.Time
	now       time.Time

	played int
	wins   [game.Sides]int
	draws  int
	turns  int

	frame  *spectate.Frame
	recent []string
}

func newModel(cfg config.Config) model {
	return model{
		target:    cfg.SelfPlay.Matches,
		deadline:  cfg.Search.Deadline,
		startTime: time.Now(),
		now:       time.Now(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case frameMsg:
		f := spectate.Frame(msg)
		m.frame = &f
		m.turns++
	case matchMsg:
		m.played++
		switch msg.Outcome {
		case game.Side0Wins, game.Side1Wins:
			m.wins[msg.Outcome]++
		default:
			m.draws++
		}
		line := fmt.Sprintf("%s  %-6s  %3d turns  %s", msg.ID, msg.Outcome, msg.Turns, msg.Took.Round(time.Second))
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 8 {
			m.recent = m.recent[:8]
		}
	case doneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	elapsed := m.now.Sub(m.startTime)
	turnsPerSec := 0.0
	if elapsed >= time.Second {
		turnsPerSec = float64(m.turns) / elapsed.Seconds()
	}

	target := "unbounded"
	if m.target > 0 {
		target = fmt.Sprint(m.target)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tank2 self-play") + "\n\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Matches", fmt.Sprintf("%d / %s", m.played, target))
	row("Side 0 wins", side0Style.Render(fmt.Sprint(m.wins[0])))
	row("Side 1 wins", side1Style.Render(fmt.Sprint(m.wins[1])))
	row("Draws", fmt.Sprint(m.draws))
	row("Turns", fmt.Sprintf("%d (%.2f/s)", m.turns, turnsPerSec))
	row("Budget", m.deadline.String())
	row("Elapsed", elapsed.Round(time.Second).String())

	if f := m.frame; f != nil {
		b.WriteString("\n" + fmt.Sprintf("%s turn %d  %s | %s\n", f.MatchID, f.Turn,
			side0Style.Render(strings.Join(f.Actions[0][:], ",")),
			side1Style.Render(strings.Join(f.Actions[1][:], ","))))
		b.WriteString(boardStyle.Render(strings.Join(f.Board, "\n")) + "\n")
	}

	if len(m.recent) > 0 {
		b.WriteString("\nRecent matches:\n")
		for _, line := range m.recent {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("Press q to quit.") + "\n")
	return b.String()
}
