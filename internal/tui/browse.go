// Package tui is the interactive item browser of one category.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mtrack/internal/fieldcodec"
	"mtrack/internal/output"
	"mtrack/internal/page"
	"mtrack/internal/service"
)

const (
	maxColumnWidth = 32
	minColumnWidth = 4
	defaultHeight  = 15
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

type keyMap struct {
	Search      key.Binding
	CycleValue  key.Binding
	CycleField  key.Binding
	ClearFilter key.Binding
	Delete      key.Binding
	Reload      key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		CycleValue:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter value")),
		CycleField:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filter field")),
		ClearFilter: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Delete:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Search, k.CycleValue, k.CycleField, k.ClearFilter, k.Delete, k.Reload, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

type openedMsg struct{ err error }

type deletedMsg struct {
	id  int64
	err error
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx        context.Context
	page       *page.CategoryPage
	categoryID int64
	keys       keyMap

	table   table.Model
	search  textinput.Model
	spinner spinner.Model

	searching   bool
	pending     int // opens requested whose result has not arrived
	filterField int // index into the page's filterable fields
	status      string
	expired     bool
}

// New returns a browser for categoryID backed by p.
func New(ctx context.Context, p *page.CategoryPage, categoryID int64) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search items..."
	ti.CharLimit = 100
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:        ctx,
		page:       p,
		categoryID: categoryID,
		keys:       defaultKeys(),
		table:      table.New(table.WithFocused(true), table.WithHeight(defaultHeight)),
		search:     ti,
		spinner:    sp,
		pending:    1,
	}
}

// loading reports whether an open is still running. A superseded open may
// report back while a later one is in flight.
func (m Model) loading() bool { return m.pending > 0 || m.page.Loading() }

// Expired reports whether the browser stopped because the session ended.
func (m Model) Expired() bool { return m.expired }

// Init starts the initial fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.open())
}

func (m Model) open() tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: m.page.Open(m.ctx, m.categoryID)}
	}
}

func (m Model) deleteItem(id int64) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, err: m.page.DeleteItem(m.ctx, id)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		if m.pending > 0 {
			m.pending--
		}
		if errors.Is(msg.err, page.ErrSuperseded) {
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.status = ""
		m.refresh()
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.status = fmt.Sprintf("deleted item #%d", msg.id)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Search):
			m.searching = true
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.CycleField):
			if n := len(m.page.FilterableFields()); n > 0 {
				m.filterField = (m.filterField + 1) % n
			}
			return m, nil
		case key.Matches(msg, m.keys.CycleValue):
			m.cycleFilterValue()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.ClearFilter):
			m.page.ClearFilters()
			m.search.SetValue("")
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			m.pending++
			return m, tea.Batch(m.spinner.Tick, m.open())
		case key.Matches(msg, m.keys.Delete):
			if id, ok := m.selectedID(); ok {
				return m, m.deleteItem(id)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	// live filtering on each keystroke
	m.page.SetSearch(m.search.Value())
	m.refresh()
	return m, cmd
}

// fail shows err inline. An ended session stops the browser; the expiry
// notice itself is printed by whoever observes the session.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, service.ErrSessionExpired) {
		m.expired = true
		return m, tea.Quit
	}
	m.status = err.Error()
	return m, nil
}

func (m *Model) cycleFilterValue() {
	fields := m.page.FilterableFields()
	if len(fields) == 0 {
		return
	}
	if m.filterField >= len(fields) {
		m.filterField = 0
	}
	f := fields[m.filterField]
	values := append([]string{""}, f.Options...)
	current := m.page.Criteria().Equals[f.Name]
	next := 0
	for i, v := range values {
		if v == current {
			next = (i + 1) % len(values)
			break
		}
	}
	m.page.SetFilter(f.Name, values[next])
}

func (m Model) selectedID() (int64, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscan(row[0], &id); err != nil {
		return 0, false
	}
	return id, true
}

// refresh rebuilds the table from the page's displayed view.
func (m *Model) refresh() {
	fields := m.page.Fields()
	res := m.page.Displayed()

	headers := append([]string{"ID"}, fieldcodec.Columns(fields)...)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	rows := make([]table.Row, 0, len(res.Records))
	for _, it := range res.Records {
		row := append(table.Row{fmt.Sprint(it.ID)}, fieldcodec.Row(fields, it)...)
		for i, cell := range row {
			row[i] = strings.ReplaceAll(cell, "\n", " ")
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
		rows = append(rows, row)
	}
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: min(max(widths[i], minColumnWidth), maxColumnWidth)}
	}

	// Rows must never be wider than the columns, so clear them first.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder
	c := m.page.Category()
	if c.ID == 0 {
		if m.loading() {
			fmt.Fprintf(&b, "%s loading...\n", m.spinner.View())
		}
		if m.status != "" {
			b.WriteString(errorStyle.Render(m.status) + "\n")
		}
		b.WriteString(mutedStyle.Render(m.keys.help()) + "\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render(c.Name))
	if m.loading() {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(m.search.View() + "\n")
	if line := m.filterLine(); line != "" {
		b.WriteString(filterStyle.Render(line) + "\n")
	}

	res := m.page.Displayed()
	if res.Empty() {
		b.WriteString(mutedStyle.Render(output.EmptyItemsMessage(res.Reason)) + "\n")
	} else {
		b.WriteString(m.table.View() + "\n")
	}
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status) + "\n")
	}
	b.WriteString(mutedStyle.Render(m.keys.help()) + "\n")
	return b.String()
}

func (m Model) filterLine() string {
	fields := m.page.FilterableFields()
	if len(fields) == 0 {
		return ""
	}
	eq := m.page.Criteria().Equals
	parts := make([]string, 0, len(fields))
	for i, f := range fields {
		v := eq[f.Name]
		if v == "" {
			v = "any"
		}
		part := f.Name + "=" + v
		if i == m.filterField {
			part = "[" + part + "]"
		}
		parts = append(parts, part)
	}
	return "filters: " + strings.Join(parts, "  ")
}

// Run starts the browser on in/out and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, p *page.CategoryPage, categoryID int64, in io.Reader, out io.Writer) (Model, error) {
	prog := tea.NewProgram(New(ctx, p, categoryID),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	final, err := prog.Run()
	if err != nil {
		return Model{}, err
	}
	m, _ := final.(Model)
	return m, nil
}
