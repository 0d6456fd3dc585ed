package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#FFFFFF", "#FF0000", "#626262", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	active lipgloss.Style
	err    lipgloss.Style
	dim    lipgloss.Style
	help   lipgloss.Style
}

func NewPalette(t, a, e, d, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		active: NewBold(a),
		err:    NewBold(e),
		dim:    NewStyle(d),
		help:   NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
