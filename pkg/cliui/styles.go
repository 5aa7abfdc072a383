package cliui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	TimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// speakerPalette holds the colors assigned to speakers.
var speakerPalette = []lipgloss.Color{"39", "208", "170", "114", "220", "81", "203", "147"}

// SpeakerStyle returns a stable bold color for a speaker name.
func SpeakerStyle(name string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	color := speakerPalette[h.Sum32()%uint32(len(speakerPalette))]
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

// StateLabel renders the summarizer run state.
func StateLabel(running bool) string {
	if running {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("running")
	}
	return WarnStyle.Render("paused")
}
