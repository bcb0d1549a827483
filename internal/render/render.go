// Package render prints tabular command output: bordered lipgloss tables on
// a terminal, tab-separated text everywhere else, and JSON on request.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

var (
	primaryColor   = lipgloss.Color("62")  // Purple
	secondaryColor = lipgloss.Color("241") // Gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(secondaryColor)

	statusStyles = map[string]lipgloss.Style{
		"open":        cellStyle.Foreground(lipgloss.Color("214")), // Orange
		"in-progress": cellStyle.Foreground(lipgloss.Color("39")),  // Cyan
		"completed":   cellStyle.Foreground(lipgloss.Color("42")),  // Green
	}
)

// Table is a header row plus data rows of equal width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Printer writes tables in the format chosen for its writer.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter returns a printer that styles output when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styled: IsTerminal(w)}
}

// NewPlainPrinter returns a printer that always writes tab-separated text.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Table prints t. Styled output colors a "status" column by value.
func (p *Printer) Table(t Table) error {
	if !p.styled {
		return writeTSV(p.w, t)
	}

	statusCol := -1
	for i, h := range t.Headers {
		if strings.EqualFold(h, "status") {
			statusCol = i
		}
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusCol && row >= 0 && row < len(t.Rows) {
				if s, ok := statusStyles[t.Rows[row][col]]; ok {
					return s
				}
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(p.w, tbl.String())
	return err
}

// JSON prints v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Line prints a line of text.
func (p *Printer) Line(format string, args ...any) error {
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func writeTSV(w io.Writer, t Table) error {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cellReplacer.Replace(c)
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
