package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named colour palette.
type Theme struct {
	Name string

	// Base surfaces
	Background string
	Surface    string
	SurfaceAlt string
	FocusBg    string

	// Selected row
	SelectionBg   string
	SelectionText string

	// Borders
	Border      string
	BorderMuted string
	BorderFocus string

	// Text
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Job status badges, keyed by lower-case status
	StatusColors map[string]string
}

// Styles returns the lipgloss styles for the theme.
func (t Theme) Styles() Styles {
	return Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),
		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// Styles holds pre-built styles for a theme.
type Styles struct {
	Background lipgloss.Style
	Surface    lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

// StatusStyle returns a badge style for a job status.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[strings.ToLower(strings.TrimSpace(status))]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns a copy whose text styles all carry bgColor, so that
// adjacent segments do not leave gaps in the bar background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	out.Background = s.Background.Background(bg)
	out.Surface = s.Surface.Background(bg)
	out.Text = s.Text.Background(bg)
	out.MutedText = s.MutedText.Background(bg)
	out.FaintText = s.FaintText.Background(bg)
	out.AccentText = s.AccentText.Background(bg)
	out.SuccessText = s.SuccessText.Background(bg)
	out.WarningText = s.WarningText.Background(bg)
	out.DangerText = s.DangerText.Background(bg)
	out.InfoText = s.InfoText.Background(bg)
	out.Header = s.Header.Background(bg)
	out.Logo = s.Logo.Background(bg)
	return out
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns the named theme, or Nightfox when unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the available themes in cycle order.
func ThemeNames() []string {
	return themeOrder
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		FocusBg:    "#29394f", // bg3

		SelectionBg:   "#2b3b51", // sel0
		SelectionText: "#cdcecf", // fg1

		Border:      "#39506d",
		BorderMuted: "#212e3f",
		BorderFocus: "#719cd6",

		Text:    "#cdcecf",
		Muted:   "#738091",
		Faint:   "#71839b",
		Accent:  "#719cd6",
		Success: "#81b29a",
		Warning: "#dbc074",
		Danger:  "#c94f6d",
		Info:    "#63cdcf",

		StatusColors: map[string]string{
			"open":    "#81b29a", // green
			"active":  "#81b29a",
			"paused":  "#dbc074", // yellow
			"closed":  "#738091", // comment
			"filled":  "#9d79d6", // magenta
			"applied": "#63cdcf", // cyan
			"saved":   "#719cd6", // blue
			"local":   "#f4a261", // orange
		},
	}
}

func kanagawaTheme() Theme {
	// https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name: "Kanagawa",

		Background: "#16161d", // sumiInk0
		Surface:    "#1f1f28", // sumiInk3
		SurfaceAlt: "#2a2a37", // sumiInk4
		FocusBg:    "#363646", // sumiInk5

		SelectionBg:   "#2d4f67", // waveBlue2
		SelectionText: "#dcd7ba", // fujiWhite

		Border:      "#54546d", // sumiInk6
		BorderMuted: "#2a2a37",
		BorderFocus: "#7e9cd8", // crystalBlue

		Text:    "#dcd7ba",
		Muted:   "#727169", // fujiGray
		Faint:   "#625e5a",
		Accent:  "#7e9cd8",
		Success: "#98bb6c", // springGreen
		Warning: "#e6c384", // carpYellow
		Danger:  "#e82424", // samuraiRed
		Info:    "#7fb4ca", // springBlue

		StatusColors: map[string]string{
			"open":    "#98bb6c",
			"active":  "#98bb6c",
			"paused":  "#e6c384",
			"closed":  "#727169",
			"filled":  "#957fb8", // oniViolet
			"applied": "#7fb4ca",
			"saved":   "#7e9cd8",
			"local":   "#ffa066", // surimiOrange
		},
	}
}

func slateTheme() Theme {
	return Theme{
		Name: "Slate",

		Background: "#0f172a", // slate-900
		Surface:    "#1e293b", // slate-800
		SurfaceAlt: "#273449",
		FocusBg:    "#334155", // slate-700

		SelectionBg:   "#3b4a63",
		SelectionText: "#f1f5f9", // slate-100

		Border:      "#475569", // slate-600
		BorderMuted: "#273449",
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#e2e8f0", // slate-200
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8",
		Success: "#4ade80", // green-400
		Warning: "#facc15", // yellow-400
		Danger:  "#f87171", // red-400
		Info:    "#22d3ee", // cyan-400

		StatusColors: map[string]string{
			"open":    "#4ade80",
			"active":  "#4ade80",
			"paused":  "#facc15",
			"closed":  "#64748b",
			"filled":  "#c084fc", // purple-400
			"applied": "#22d3ee",
			"saved":   "#38bdf8",
			"local":   "#fb923c", // orange-400
		},
	}
}
