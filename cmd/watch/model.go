package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/tank2/spectate"
)

type frameMsg struct {
	Frame spectate.Frame
	Final bool
}

type disconnectedMsg struct {
	Err error
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	glyphStyles = map[rune]lipgloss.Style{
		'#': lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		'%': lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true),
		'W': lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		'*': lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		'b': lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		'B': lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		'r': lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		'R': lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		'@': lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		'.': lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

type model struct {
	url     string
	frame   *spectate.Frame
	matches int
	ended   bool
	err     error
	gone    bool
}

func newModel(url string) model {
	return model{url: url}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case frameMsg:
		if msg.Final {
			m.matches++
			m.ended = true
			if m.frame != nil && m.frame.MatchID == msg.Frame.MatchID {
				m.frame.Outcome = msg.Frame.Outcome
			}
			return m, nil
		}
		f := msg.Frame
		m.frame = &f
		m.ended = false
	case disconnectedMsg:
		m.gone, m.err = true, msg.Err
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("watching "+m.url) + "\n\n")

	if m.frame == nil {
		b.WriteString(statusStyle.Render("waiting for the first frame...") + "\n")
	} else {
		f := m.frame
		fmt.Fprintf(&b, "%s  turn %d  matches seen %d\n", f.MatchID, f.Turn, m.matches)
		b.WriteString(boardStyle.Render(colourBoard(f.Board)) + "\n")
		fmt.Fprintf(&b, "side 0: %-22s base %s\n", strings.Join(f.Actions[0][:], ","), baseWord(f.Bases[0]))
		fmt.Fprintf(&b, "side 1: %-22s base %s\n", strings.Join(f.Actions[1][:], ","), baseWord(f.Bases[1]))
		for _, s := range f.Sides {
			fmt.Fprintf(&b, "  side %d: %d iterations, chosen N=%d Q=%.3f\n", s.Side, s.Iterations, s.Visits, s.Value)
		}
		if m.ended || f.Outcome != "unfinished" {
			b.WriteString(headerStyle.Render("result: "+f.Outcome) + "\n")
		}
	}

	if m.gone {
		if m.err != nil {
			b.WriteString("\n" + errorStyle.Render("disconnected: "+m.err.Error()) + "\n")
		} else {
			b.WriteString("\n" + statusStyle.Render("stream closed") + "\n")
		}
	}
	b.WriteString("\n" + statusStyle.Render("Press q to quit.") + "\n")
	return b.String()
}

func colourBoard(rows []string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, r := range row {
			if st, ok := glyphStyles[r]; ok {
				b.WriteString(st.Render(string(r)))
			} else {
				b.WriteRune(r)
			}
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func baseWord(alive bool) string {
	if alive {
		return "standing"
	}
	return "destroyed"
}
