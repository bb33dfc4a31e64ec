package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// errOrderCancelled is returned when the user quits the order picker.
var errOrderCancelled = errors.New("station ordering cancelled")

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listGrabbedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// OrderModel - Interactive station ordering
// =============================================================================

// OrderModel is the bubbletea model for arranging stations from lowest to
// highest precedence. The station at the bottom of the list wins conflicts.
type OrderModel struct {
	Stations  []string
	Cursor    int
	Grabbed   bool
	Confirmed bool
}

// NewOrderModel creates an order model starting from stations.
func NewOrderModel(stations []string) OrderModel {
	return OrderModel{Stations: append([]string(nil), stations...)}
}

func (m OrderModel) Init() tea.Cmd {
	return nil
}

func (m OrderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		m.Confirmed = true
		return m, tea.Quit
	case " ":
		m.Grabbed = !m.Grabbed
	case "up", "k":
		m.step(-1, m.Grabbed)
	case "down", "j":
		m.step(1, m.Grabbed)
	case "shift+up", "K":
		m.step(-1, true)
	case "shift+down", "J":
		m.step(1, true)
	}
	return m, nil
}

// step moves the cursor by delta, carrying the station along when move is set.
func (m *OrderModel) step(delta int, move bool) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.Stations) {
		return
	}
	if move {
		m.Stations[m.Cursor], m.Stations[next] = m.Stations[next], m.Stations[m.Cursor]
	}
	m.Cursor = next
}

func (m OrderModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Station Order"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space grab  shift+↑/↓ move  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(m.Stations))
	for i, st := range m.Stations {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, strconv.Itoa(i + 1), st})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Priority", "Station").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == m.Cursor && m.Grabbed:
				return listGrabbedStyle
			case row == m.Cursor:
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  lowest precedence first · %s overrides all", m.last())))
	b.WriteString("\n")

	return b.String()
}

func (m OrderModel) last() string {
	if len(m.Stations) == 0 {
		return "-"
	}
	return m.Stations[len(m.Stations)-1]
}

// pickOrder runs the order picker and returns the confirmed station order.
func pickOrder(ctx context.Context, stations []string) ([]string, error) {
	final, err := tea.NewProgram(NewOrderModel(stations), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("order picker: %w", err)
	}
	m := final.(OrderModel)
	if !m.Confirmed {
		return nil, errOrderCancelled
	}
	return m.Stations, nil
}
