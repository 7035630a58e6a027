package cli

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// writeTable prints rows under headers in space-separated columns sized
// by display width. The last column is not padded.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var buf strings.Builder
	line := func(cells []string) {
		for i, cell := range cells {
			if i == len(cells)-1 {
				buf.WriteString(cell)
				break
			}
			buf.WriteString(runewidth.FillRight(cell, widths[i]))
			buf.WriteString("  ")
		}
		buf.WriteByte('\n')
	}

	line(headers)
	for _, row := range rows {
		line(row)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}
