// Package output renders command results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

func Success(w io.Writer, format string, a ...interface{}) {
	successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", a...)
}

func Info(w io.Writer, format string, a ...interface{}) {
	infoColor.Fprintf(w, format+"\n", a...)
}

// ValidFormat reports whether f is a known output format.
func ValidFormat(f string) bool {
	switch f {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML re-encodes v through JSON first so that custom MarshalJSON methods
// shape the YAML output too.
func YAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// Table prints aligned columns. Cells may carry a color applied after
// padding so ANSI codes do not break alignment.
type Table struct {
	headers []string
	rows    [][]string
	colors  [][]*color.Color
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
	t.colors = append(t.colors, make([]*color.Color, len(cells)))
}

// ColorCell colors one cell of the last added row.
func (t *Table) ColorCell(col int, c *color.Color) {
	if len(t.colors) == 0 || col >= len(t.colors[len(t.colors)-1]) {
		return
	}
	t.colors[len(t.colors)-1][col] = c
}

func (t *Table) Render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprintf(w, "%-*s  ", widths[i], header)
	}
	fmt.Fprintln(w)

	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(w)

	for r, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			padded := fmt.Sprintf("%-*s  ", widths[i], cell)
			if c := t.colors[r][i]; c != nil {
				c.Fprint(w, padded)
				continue
			}
			fmt.Fprint(w, padded)
		}
		fmt.Fprintln(w)
	}
}
