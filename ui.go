package main

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7B68EE")
	colorSecondary = lipgloss.Color("#5B5682")
	colorMuted     = lipgloss.Color("#636363")
	colorHighlight = lipgloss.Color("#E0DAFF")
	colorStatusBg  = lipgloss.Color("#24283B")
	colorWhite     = lipgloss.Color("#C0CAF5")
	colorGreen     = lipgloss.Color("#9ECE6A")
	colorRed       = lipgloss.Color("#F7768E")
	colorYellow    = lipgloss.Color("#E0AF68")
	colorBlue      = lipgloss.Color("#7AA2F7")
)

// Layout constants
const (
	minSidebarWidth = 16
	sidebarPadding  = 4
	sidebarBorder   = 1
	inputMinHeight  = 1
	inputMaxHeight  = 6
)

// Author color palettes, picked to stay readable on the respective
// backgrounds. The active palette is selected once at startup.
var authorColorsDark = []lipgloss.Color{
	"#F7768E", "#9ECE6A", "#E0AF68", "#7AA2F7",
	"#BB9AF7", "#7DCFFF", "#FF9E64", "#73DACA",
}

var authorColorsLight = []lipgloss.Color{
	"#8C4351", "#33635C", "#8F5E15", "#34548A",
	"#5A4A78", "#166775", "#965027", "#485E30",
}

var authorColors = authorColorsDark

// detectAuthorPalette queries the terminal background and selects the
// matching author color palette. Must be called before the TUI starts.
func detectAuthorPalette() {
	if termenv.HasDarkBackground() {
		authorColors = authorColorsDark
	} else {
		authorColors = authorColorsLight
	}
}

// colorForNick returns a stable color for a nickname so the same author
// is always rendered the same way within a session.
func colorForNick(nick string) lipgloss.Color {
	if nick == "" {
		return authorColors[0]
	}
	h := fnv.New32a()
	h.Write([]byte(nick))
	return authorColors[int(h.Sum32())%len(authorColors)]
}

// Styles
var (
	sidebarStyle = lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorSecondary)

	sidebarSectionStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				Padding(0, 1)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				Padding(0, 1)

	sidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Background(colorSecondary).
				Bold(true).
				Padding(0, 1)

	sidebarUnreadStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				Bold(true).
				Padding(0, 1)

	sidebarHighlightStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true).
				Padding(0, 1)

	sidebarLeftStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 1)

	chatOwnAuthorStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	chatTimestampStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	chatSystemStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	chatActionStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Italic(true)

	chatHighlightStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Underline(true)

	unreadMarkerStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	acSuggestionStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 1)

	acSelectedStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Background(colorSecondary).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorStatusBg).
			Padding(0, 1)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	statusErrorStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)
