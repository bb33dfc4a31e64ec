package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

func press(m OrderModel, keys ...string) (OrderModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(OrderModel)
	}
	return m, cmd
}

func TestOrderModelMove(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{"navigate only", []string{"down", "down", "up"}, []string{"AOI", "CP1", "CP2"}},
		{"shift move", []string{"J"}, []string{"CP1", "AOI", "CP2"}},
		{"grab and carry", []string{" ", "down", "down"}, []string{"CP1", "CP2", "AOI"}},
		{"grab release", []string{" ", "down", " ", "down"}, []string{"CP1", "AOI", "CP2"}},
		{"clamped at top", []string{"K", "up"}, []string{"AOI", "CP1", "CP2"}},
		{"vim keys", []string{"j", "j", "K"}, []string{"AOI", "CP2", "CP1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := press(NewOrderModel([]string{"AOI", "CP1", "CP2"}), tt.keys...)
			if diff := cmp.Diff(tt.want, m.Stations); diff != "" {
				t.Errorf("stations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrderModelConfirm(t *testing.T) {
	m, cmd := press(NewOrderModel([]string{"AOI", "CP1"}), "J", "enter")
	if !m.Confirmed {
		t.Error("enter did not confirm")
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}

	m, cmd = press(NewOrderModel([]string{"AOI", "CP1"}), "esc")
	if m.Confirmed || cmd == nil {
		t.Errorf("esc: confirmed=%v quit=%v", m.Confirmed, cmd != nil)
	}
}

func TestOrderModelDoesNotAliasInput(t *testing.T) {
	in := []string{"AOI", "CP1"}
	press(NewOrderModel(in), "J")
	if in[0] != "AOI" {
		t.Errorf("input modified: %v", in)
	}
}

func TestOrderModelView(t *testing.T) {
	view := NewOrderModel([]string{"AOI", "CP1"}).View()
	for _, want := range []string{"Station Order", "AOI", "CP1", "CP1 overrides all"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}
