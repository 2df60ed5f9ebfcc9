package world

import (
	"fmt"
	"strings"
)

// ParseLayout builds a grid from a rectangular text layout: exactly depth
// rows of width digit characters, each digit 0..height giving the initial
// column height (bits 0..n-1 set, material defaulted). Blank lines and lines
// starting with '#' are skipped. Any other shape is a construction error; the
// layout is never truncated or padded.
func ParseLayout(text string, height int) (*Grid, error) {
	lines := splitLayoutLines(text)
	if len(lines) == 0 {
		return nil, fmt.Errorf("layout: empty")
	}
	width := len(lines[0])
	for i, ln := range lines {
		if len(ln) != width {
			return nil, fmt.Errorf("layout: row %d has %d columns, want %d", i, len(ln), width)
		}
	}

	g, err := NewGrid(width, height, len(lines))
	if err != nil {
		return nil, err
	}
	for z, ln := range lines {
		for x := 0; x < width; x++ {
			c := ln[x]
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("layout: row %d col %d: %q is not a digit", z, x, c)
			}
			n := int(c - '0')
			if n > height {
				return nil, fmt.Errorf("layout: row %d col %d: column height %d exceeds world height %d", z, x, n, height)
			}
			for y := 0; y < n; y++ {
				g.SetBlock(x, y, z, true, 0)
			}
		}
	}
	return g, nil
}

// FormatLayout renders the grid's column heights back to layout text. Columns
// taller than 9 cannot be represented; callers generating layouts keep
// heights in the digit range.
func FormatLayout(g *Grid) string {
	var b strings.Builder
	for z := 0; z < g.Depth(); z++ {
		for x := 0; x < g.Width(); x++ {
			n := g.HighestSolidY(x, z) + 1
			if n > 9 {
				n = 9
			}
			b.WriteByte(byte('0' + n))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func splitLayoutLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		lines = append(lines, ln)
	}
	return lines
}
