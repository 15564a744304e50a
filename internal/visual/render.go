// ABOUTME: Spectrum bar rendering
// ABOUTME: Draws band levels as colored terminal bars for a preset
package visual

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var defaultPalette = []lipgloss.Color{"#00ff87", "#d7ff00", "#ff5f00"}

var eighths = []rune(" ▁▂▃▄▅▆▇█")

// Palette reads a preset blob as whitespace-separated #rrggbb colors,
// bottom to top.
func Palette(p Preset) []lipgloss.Color {
	var colors []lipgloss.Color
	for _, field := range strings.Fields(string(p.Blob)) {
		if len(field) == 7 && field[0] == '#' && isHex(field[1:]) {
			colors = append(colors, lipgloss.Color(field))
		}
	}
	if len(colors) == 0 {
		return defaultPalette
	}
	return colors
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Bars renders levels as vertical bars of the given height, one column per
// level, colored by row from the preset's palette.
func Bars(levels []float64, height int, p Preset) string {
	if height <= 0 || len(levels) == 0 {
		return ""
	}

	palette := Palette(p)
	rows := make([]string, height)

	for row := range height {
		// row 0 is the top line
		fromBottom := height - 1 - row
		color := palette[fromBottom*len(palette)/height]

		var line strings.Builder
		for _, level := range levels {
			cells := max(min(level, 1), 0) * float64(height)
			fill := cells - float64(fromBottom)
			switch {
			case fill >= 1:
				line.WriteRune(eighths[8])
			case fill <= 0:
				line.WriteRune(' ')
			default:
				line.WriteRune(eighths[int(fill*8)])
			}
		}
		rows[row] = lipgloss.NewStyle().Foreground(color).Render(line.String())
	}

	return strings.Join(rows, "\n")
}
