package main

import (
	"github.com/charmbracelet/lipgloss"

	"omnichat/internal/persona"
)

// Terminal palette keyed by the persona color tags from the registry.
var personaColors = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("#2196F3"),
	"purple": lipgloss.Color("#AB47BC"),
	"red":    lipgloss.Color("#E53935"),
	"green":  lipgloss.Color("#43A047"),
	"yellow": lipgloss.Color("#FBC02D"),
	"cyan":   lipgloss.Color("#00ACC1"),
	"indigo": lipgloss.Color("#5C6BC0"),
	"gray":   lipgloss.Color("#90A4AE"),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7E86F7"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E53935"))

	paywallStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 3)
)

// personaStyle returns a bold style in the persona's theme color.
func personaStyle(p persona.Persona) lipgloss.Style {
	color, ok := personaColors[p.Color]
	if !ok {
		color = personaColors["blue"]
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}
