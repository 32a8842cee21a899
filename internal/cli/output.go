package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// ANSI styles used by the text renderer.
const (
	styleReset  = "\033[0m"
	styleRed    = "\033[31m"
	styleGreen  = "\033[32m"
	styleYellow = "\033[33m"
	styleCyan   = "\033[36m"
	styleBold   = "\033[1m"
	styleDim    = "\033[2m"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// numericCell matches rendered amounts, quantities and rates, which tables
// align to the right.
var numericCell = regexp.MustCompile(`^[-+]?[₩$]?[0-9][0-9,]*(\.[0-9]+)?(%| [A-Z]{3})?$`)

// Output renders command results either as indented JSON or as text.
// Color is used only on a terminal and never in JSON mode.
type Output struct {
	writer   io.Writer
	jsonMode bool
	color    bool
}

// NewOutput creates the Output for cmd, honoring --json and NO_COLOR.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		color:    !jsonMode && os.Getenv("NO_COLOR") == "" && stdoutIsTerminal(),
	}
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

func (o *Output) Success(format string, args ...interface{}) { o.line(styleGreen, format, args...) }
func (o *Output) Error(format string, args ...interface{})   { o.line(styleRed, format, args...) }
func (o *Output) Warning(format string, args ...interface{}) { o.line(styleYellow, format, args...) }
func (o *Output) Bold(format string, args ...interface{})    { o.line(styleBold, format, args...) }
func (o *Output) Dim(format string, args ...interface{})     { o.line(styleDim, format, args...) }

func (o *Output) line(style, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.paint(style, fmt.Sprintf(format, args...)))
}

func (o *Output) paint(style, text string) string {
	if !o.color {
		return text
	}
	return style + text + styleReset
}

func (o *Output) Green(text string) string    { return o.paint(styleGreen, text) }
func (o *Output) Red(text string) string      { return o.paint(styleRed, text) }
func (o *Output) Yellow(text string) string   { return o.paint(styleYellow, text) }
func (o *Output) Cyan(text string) string     { return o.paint(styleCyan, text) }
func (o *Output) BoldText(text string) string { return o.paint(styleBold, text) }
func (o *Output) DimText(text string) string  { return o.paint(styleDim, text) }

// signed paints gains green and losses red.
func (o *Output) signed(v decimal.Decimal, text string) string {
	switch v.Sign() {
	case 1:
		return o.Green(text)
	case -1:
		return o.Red(text)
	}
	return text
}

// FormatPnL formats a profit or loss with sign and color.
func (o *Output) FormatPnL(pnl decimal.Decimal, currency string) string {
	return o.signed(pnl, FormatSigned(pnl, currency))
}

// FormatPercent formats a rate with sign and color.
func (o *Output) FormatPercent(pct decimal.Decimal) string {
	return o.signed(pct, FormatPercent(pct))
}

// Table lays out rows in columns sized by display width, so Hangul names
// line up with ASCII ones.
type Table struct {
	output  *Output
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{output: output, headers: headers}
}

// AddRow adds a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Render writes the header, a rule and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := make([]int, len(t.headers))
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			if w := visibleWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	t.renderRow(t.headers, widths, styleBold)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	t.output.Println(t.output.paint(styleDim, strings.Join(rule, "──")))
	for _, row := range t.rows {
		t.renderRow(row, widths, "")
	}
}

func (t *Table) renderRow(cells []string, widths []int, style string) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := strings.Repeat(" ", max(widths[i]-visibleWidth(cell), 0))
		if style == "" && numericCell.MatchString(stripANSI(cell)) {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
		if style != "" {
			parts[i] = t.output.paint(style, parts[i])
		}
	}
	t.output.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func visibleWidth(s string) int {
	return displayWidth(stripANSI(s))
}

// Box draws title and content inside a frame.
func (o *Output) Box(title string, content []string) {
	inner := visibleWidth(title)
	for _, line := range content {
		inner = max(inner, visibleWidth(line))
	}
	rule := strings.Repeat("─", inner+2)
	row := func(text string) string {
		return "│ " + text + strings.Repeat(" ", inner-visibleWidth(text)) + " │"
	}
	if !o.color {
		rule = strings.Repeat("-", inner+2)
		row = func(text string) string {
			return "| " + text + strings.Repeat(" ", inner-visibleWidth(text)) + " |"
		}
	}

	corner := func(l, r string) string {
		if o.color {
			return o.paint(styleDim, l+rule+r)
		}
		return "+" + rule + "+"
	}
	o.Println(corner("┌", "┐"))
	o.Println(row(o.BoldText(title)))
	o.Println(corner("├", "┤"))
	for _, line := range content {
		o.Println(row(line))
	}
	o.Println(corner("└", "┘"))
}
