package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Brand purple for the VIBECHECK banner.
const brandPurple = "#A36CF4"

// VIBECHECK spelled out is too wide for narrow terminals, so the banner
// uses the short wordmark.
var bannerArt = []string{
	"    ██╗   ██╗██╗██████╗ ███████╗",
	"    ██║   ██║██║██╔══██╗██╔════╝",
	"    ██║   ██║██║██████╔╝█████╗  ",
	"    ╚██╗ ██╔╝██║██╔══██╗██╔══╝  ",
	"     ╚████╔╝ ██║██████╔╝███████╗",
	"      ╚═══╝  ╚═╝╚═════╝ ╚══════╝",
}

// Check-mark ASCII art rendered next to the wordmark.
var checkArt = []string{
	"      ██",
	"     ██ ",
	"██  ██  ",
	" ████   ",
	"  ██    ",
	"        ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Thinking  lipgloss.Style
	Persona   lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style // Horizontal line separator
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandPurple)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandPurple)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Thinking:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244")),
		Persona:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")), // White for visibility
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Gray separator line
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")), // Light gray, no background
	}
}

// RenderBanner returns the VIBE ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for i := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(checkArt[i]))
		_, _ = b.WriteString(s.Banner.Render(bannerArt[i]))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Describe a target audience and VibeCheck builds personas from it",
	"  • Answer the generated questions to sharpen the result",
	"  • Use /help to see available commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
