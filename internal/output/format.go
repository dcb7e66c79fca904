// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"mtrack/internal/fieldcodec"
	"mtrack/internal/filter"
	"mtrack/internal/schema"
	"mtrack/internal/service"
)

// Empty-view messages.
const (
	NoCategories   = "No categories found."
	NoFields       = "No fields found for this category."
	NoItems        = "No items in this category yet."
	NoItemsMatch   = "No items match your filters."
	NoCategoryHits = "No categories match your search."
)

// Styles is the palette used by a Printer.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
}

// DefaultStyles returns the palette bound to r.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:  r.NewStyle().Bold(true),
		Header: r.NewStyle().Bold(true).Padding(0, 1),
		Cell:   r.NewStyle().Padding(0, 1),
		Muted:  r.NewStyle().Faint(true),
		Border: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Printer renders domain values to a writer. Styling follows the writer's
// terminal capabilities, so output to a pipe or buffer is plain text.
type Printer struct {
	w      io.Writer
	styles Styles
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles(lipgloss.NewRenderer(w))}
}

// Styles returns the printer's palette.
func (p *Printer) Styles() Styles { return p.styles }

// Categories prints the displayed category list.
func (p *Printer) Categories(res filter.Result[service.Category]) {
	if res.Empty() {
		msg := NoCategories
		if res.Reason == filter.NoMatches {
			msg = NoCategoryHits
		}
		fmt.Fprintln(p.w, p.styles.Muted.Render(msg))
		return
	}
	rows := make([][]string, 0, len(res.Records))
	for _, c := range res.Records {
		rows = append(rows, []string{id(c.ID), normalizeCell(c.Name), normalizeCell(description(c))})
	}
	fmt.Fprintln(p.w, p.table([]string{"ID", "Name", "Description"}, rows))
}

// CategoryHeader prints a category's name and description.
func (p *Printer) CategoryHeader(c service.Category) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Title.Render(normalizeCell(c.Name)), p.styles.Muted.Render("#"+id(c.ID)))
	fmt.Fprintln(p.w, p.styles.Muted.Render(description(c)))
}

// Fields prints field definitions in API order.
func (p *Printer) Fields(fields []service.Field) {
	if len(fields) == 0 {
		fmt.Fprintln(p.w, p.styles.Muted.Render(NoFields))
		return
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{id(f.ID), normalizeCell(f.Name), string(f.Type), schema.JoinOptions(f.Options)})
	}
	fmt.Fprintln(p.w, p.table([]string{"ID", "Name", "Type", "Options"}, rows))
}

// Items prints the displayed items as a table with one column per
// renderable field. Data keys without a field are not shown.
func (p *Printer) Items(fields []service.Field, res filter.Result[service.Item]) {
	if res.Empty() {
		fmt.Fprintln(p.w, p.styles.Muted.Render(EmptyItemsMessage(res.Reason)))
		return
	}
	headers := append([]string{"ID"}, fieldcodec.Columns(fields)...)
	rows := make([][]string, 0, len(res.Records))
	for _, it := range res.Records {
		cells := fieldcodec.Row(fields, it)
		row := make([]string, 0, len(cells)+1)
		row = append(row, id(it.ID))
		for _, c := range cells {
			row = append(row, normalizeCell(c))
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(p.w, p.table(headers, rows))
	if res.Reason == filter.Filtered {
		fmt.Fprintln(p.w, p.styles.Muted.Render(fmt.Sprintf("%d of %d items", len(res.Records), res.Total)))
	}
}

// Item prints one item as "Field: value" lines in field order.
func (p *Printer) Item(fields []service.Field, it service.Item) {
	fmt.Fprintln(p.w, p.styles.Title.Render("Item #"+id(it.ID)))
	names := fieldcodec.Columns(fields)
	cells := fieldcodec.Row(fields, it)
	for i, name := range names {
		fmt.Fprintf(p.w, "%s: %s\n", name, normalizeCell(cells[i]))
	}
}

// EmptyItemsMessage returns the text shown for an empty item view.
func EmptyItemsMessage(reason filter.Reason) string {
	if reason == filter.NoMatches {
		return NoItemsMatch
	}
	return NoItems
}

func (p *Printer) table(headers []string, rows [][]string) string {
	s := p.styles
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func description(c service.Category) string {
	if strings.TrimSpace(c.Description) == "" {
		return service.DefaultDescription
	}
	return c.Description
}

// normalizeCell flattens a value onto one line.
// Newlines are replaced with spaces so multi-line notes keep rows aligned.
func normalizeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
