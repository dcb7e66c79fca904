package tui

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtrack/internal/output"
	"mtrack/internal/page"
	"mtrack/internal/service"
	"mtrack/internal/testutil"
)

func library(t *testing.T) (*testutil.FakeService, int64) {
	t.Helper()
	fs := testutil.NewFakeService()
	id := fs.AddCategory("Books", "")
	fs.AddField(id, "Title", service.FieldText)
	fs.AddField(id, "Status", service.FieldSelect, "Read", "Unread")
	fs.AddItem(id, map[string]any{"Title": "Dune", "Status": "Unread"})
	fs.AddItem(id, map[string]any{"Title": "Emma", "Status": "Read"})
	return fs, id
}

// opened returns a browser whose initial fetch has completed.
func opened(t *testing.T, fs *testutil.FakeService, id int64) Model {
	t.Helper()
	m := New(context.Background(), page.NewCategoryPage(fs, nil, nil), id)
	return update(t, m, m.open()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	for _, r := range keys {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestBrowse_Open(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)

	assert.False(t, m.loading())
	assert.Len(t, m.table.Rows(), 2)
	cols := m.table.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, "ID", cols[0].Title)
	assert.Equal(t, "Status", cols[2].Title)
	assert.Contains(t, m.View(), "Books")
}

func TestBrowse_SupersededReloadKeepsSpinner(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)

	m = press(t, m, "rr")
	assert.True(t, m.loading())

	m = update(t, m, openedMsg{err: page.ErrSuperseded})
	assert.True(t, m.loading(), "the later reload is still running")
	_, cmd := m.Update(spinner.TickMsg{ID: m.spinner.ID()})
	assert.NotNil(t, cmd, "the spinner keeps ticking")

	m = update(t, m, m.open()())
	assert.False(t, m.loading())
}

func TestBrowse_OpenFailureIsShownInline(t *testing.T) {
	fs, id := library(t)
	fs.ListItemsErr = &service.BusinessError{Status: "error", Message: "Category not found"}
	m := opened(t, fs, id)

	assert.Contains(t, m.View(), "Category not found")
	assert.False(t, m.Expired())
}

func TestBrowse_SessionExpiryQuits(t *testing.T) {
	fs, id := library(t)
	fs.ListItemsErr = service.ErrSessionExpired
	m := New(context.Background(), page.NewCategoryPage(fs, nil, nil), id)

	next, cmd := m.Update(m.open()())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, next.(Model).Expired())
	assert.NotContains(t, next.(Model).View(), "session expired", "no generic error for an expired session")
}

func TestBrowse_Search(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)

	m = press(t, m, "/")
	require.True(t, m.searching)
	m = press(t, m, "EMMA")
	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "Emma", m.table.Rows()[0][1])

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)

	m = press(t, m, "zzz")
	assert.Len(t, m.table.Rows(), 1, "keys are commands once the search is closed")

	m = press(t, m, "/q")
	assert.Contains(t, m.View(), output.NoItemsMatch)
}

func TestBrowse_CycleFilterValue(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)

	m = press(t, m, "f")
	assert.Equal(t, "Read", m.page.Criteria().Equals["Status"])
	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "Emma", m.table.Rows()[0][1])

	m = press(t, m, "f")
	assert.Equal(t, "Unread", m.page.Criteria().Equals["Status"])
	assert.Contains(t, m.View(), "[Status=Unread]")

	m = press(t, m, "f")
	assert.Empty(t, m.page.Criteria().Equals)
	assert.Len(t, m.table.Rows(), 2)

	m = press(t, m, "fc")
	assert.Len(t, m.table.Rows(), 2)
}

func TestBrowse_Delete(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Len(t, m.table.Rows(), 1)
	assert.Contains(t, m.View(), "deleted item")
}

func TestBrowse_DeleteFailureKeepsRows(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)
	fs.DeleteItemErr = &service.BusinessError{Status: "error", Message: "Item not found"}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "Item not found")
}

func TestBrowse_Quit(t *testing.T) {
	fs, id := library(t)
	m := opened(t, fs, id)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
