package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxListCell is the widest a cell in a list table gets before it is cut.
const maxListCell = 48

// Renderer draws responses as terminal tables.
type Renderer struct {
	w       io.Writer
	printer *message.Printer
}

// NewRenderer creates a table renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, printer: message.NewPrinter(language.English)}
}

// RenderResponse renders a list as one table with a column per field, or a
// single object as a two-column key/value table.
func (r *Renderer) RenderResponse(resp *Response) error {
	switch d := normalizeData(resp.Data).(type) {
	case []map[string]any:
		r.renderList(d)
	case map[string]any:
		r.renderObject(d)
	case nil:
	default:
		fmt.Fprintln(r.w, r.formatValue(d))
	}
	if resp.Summary != "" {
		fmt.Fprintln(r.w, text.Faint.Sprint(resp.Summary))
	}
	return nil
}

// RenderError renders an error envelope.
func (r *Renderer) RenderError(resp *ErrorResponse) error {
	fmt.Fprintln(r.w, text.FgRed.Sprint("Error: ")+resp.Error)
	if resp.Hint != "" {
		fmt.Fprintln(r.w, text.FgHiBlack.Sprint(resp.Hint))
	}
	return nil
}

func (r *Renderer) renderList(items []map[string]any) {
	if len(items) == 0 {
		fmt.Fprintln(r.w, text.Faint.Sprint("No results"))
		return
	}
	columns := columnsOf(items)

	t := r.newTable()
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, item := range items {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = ansi.Truncate(r.formatCell(c, item[c]), maxListCell, "…")
		}
		t.AppendRow(row)
	}
	t.Render()
}

func (r *Renderer) renderObject(obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := r.newTable()
	for _, k := range keys {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(k), r.formatCell(k, obj[k])})
	}
	t.Render()
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	return t
}

// columnsOf returns the union of keys in first-seen order, with "id" first.
func columnsOf(items []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, item := range items {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i] == "id" && cols[j] != "id"
	})
	return cols
}

// formatCell prints identifiers without digit grouping.
func (r *Renderer) formatCell(column string, v any) string {
	if f, ok := v.(float64); ok && (column == "id" || strings.HasSuffix(column, "Id")) {
		return fmt.Sprintf("%d", int64(f))
	}
	return r.formatValue(v)
}

func (r *Renderer) formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if x == float64(int64(x)) {
			return r.printer.Sprintf("%d", int64(x))
		}
		return r.printer.Sprintf("%.2f", x)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, r.formatValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if name, ok := x["name"]; ok {
			return r.formatValue(name)
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
