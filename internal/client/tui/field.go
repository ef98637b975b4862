package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// field is a single-line text input. Masked fields render every rune as
// a bullet.
type field struct {
	label  string
	value  []rune
	cursor int
	masked bool
}

func newField(label string, masked bool) field {
	return field{label: label, masked: masked}
}

func (f *field) Value() string {
	return string(f.value)
}

func (f *field) SetValue(value string) {
	f.value = []rune(value)
	f.cursor = len(f.value)
}

// Update applies one key press and reports whether the value changed.
func (f *field) Update(message tea.KeyMsg) bool {
	switch message.Type {
	case tea.KeyRunes, tea.KeySpace:
		runes := message.Runes
		if message.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		next := make([]rune, 0, len(f.value)+len(runes))
		next = append(next, f.value[:f.cursor]...)
		next = append(next, runes...)
		next = append(next, f.value[f.cursor:]...)
		f.value = next
		f.cursor += len(runes)
		return true

	case tea.KeyBackspace:
		if f.cursor == 0 {
			return false
		}
		f.value = append(f.value[:f.cursor-1], f.value[f.cursor:]...)
		f.cursor--
		return true

	case tea.KeyDelete:
		if f.cursor >= len(f.value) {
			return false
		}
		f.value = append(f.value[:f.cursor], f.value[f.cursor+1:]...)
		return true

	case tea.KeyLeft:
		if f.cursor > 0 {
			f.cursor--
		}
	case tea.KeyRight:
		if f.cursor < len(f.value) {
			f.cursor++
		}
	case tea.KeyHome, tea.KeyCtrlA:
		f.cursor = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		f.cursor = len(f.value)
	case tea.KeyCtrlU:
		if len(f.value) == 0 {
			return false
		}
		f.value = nil
		f.cursor = 0
		return true
	}
	return false
}

// render draws the value with a block cursor when focused.
func (f *field) render(focused bool) string {
	text := f.value
	if f.masked {
		text = []rune(strings.Repeat("•", len(f.value)))
	}
	if !focused {
		return string(text)
	}
	var b strings.Builder
	b.WriteString(string(text[:f.cursor]))
	if f.cursor < len(text) {
		b.WriteString("\x1b[7m" + string(text[f.cursor]) + "\x1b[27m")
		b.WriteString(string(text[f.cursor+1:]))
	} else {
		b.WriteString("\x1b[7m \x1b[27m")
	}
	return b.String()
}
