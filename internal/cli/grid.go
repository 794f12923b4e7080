package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/export"
	"github.com/guidelinehq/guidectl/internal/preview"
)

// gridMode is the grid's input focus.
type gridMode int

const (
	modeBrowse gridMode = iota
	modeSearch
	modeFilter
)

// actionDoneMsg reports a download or export started from the grid.
type actionDoneMsg struct {
	label string
	path  string
	err   error
}

// gridModel is the bubbletea model for the result grid.
type gridModel struct {
	dataset *preview.Dataset
	cols    []preview.Column
	query   preview.Query
	view    preview.View

	kind      client.Kind
	sessionID string
	theme     Theme

	mode      gridMode
	searchBuf string
	activeCol int

	filterCol     int
	filterOptions []string
	filterCursor  int

	status   string
	quitting bool
	openChat bool
}

// newGridModel creates a grid over the full dataset, first page.
func newGridModel(d *preview.Dataset, cols []preview.Column, kind client.Kind, sessionID string) gridModel {
	m := gridModel{
		dataset:   d,
		cols:      cols,
		kind:      kind,
		sessionID: sessionID,
		theme:     defaultTheme,
		query: preview.Query{
			Filters:  map[string][]string{},
			Page:     1,
			PageSize: cfg.PageSize,
		},
	}
	m.view = preview.Apply(d, m.query)
	return m
}

func (m gridModel) Init() tea.Cmd {
	return nil
}

func (m gridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg), nil
		case modeFilter:
			return m.updateFilter(msg), nil
		default:
			return m.updateBrowse(msg)
		}

	case actionDoneMsg:
		if msg.err != nil {
			m.status = m.theme.errorStyle().Render(fmt.Sprintf("%s failed: %v", msg.label, msg.err))
		} else {
			m.status = m.theme.completedStyle().Render(fmt.Sprintf("%s: %s", msg.label, msg.path))
		}
		return m, nil
	}

	return m, nil
}

func (m gridModel) updateBrowse(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "C":
		m.quitting = true
		m.openChat = true
		return m, tea.Quit

	case "/":
		m.mode = modeSearch
		m.searchBuf = m.query.Search
		return m, nil

	case "f":
		if len(m.filterableColumns()) > 0 {
			m.mode = modeFilter
			m.filterCol = 0
			m.filterCursor = 0
			m.refreshFilterOptions()
		}
		return m, nil

	case "right", "l", "n":
		if m.query.Page < m.view.TotalPages {
			m.query.Page++
			m.refresh(false)
		}
		return m, nil

	case "left", "h", "p":
		if m.query.Page > 1 {
			m.query.Page--
			m.refresh(false)
		}
		return m, nil

	case "]":
		m.query.PageSize = nextPageSize(m.query.PageSize)
		m.refresh(true)
		return m, nil

	case "s":
		m.cycleSort()
		return m, nil

	case "r":
		if m.query.SortKey != "" {
			m.query.SortDesc = !m.query.SortDesc
			m.refresh(true)
		}
		return m, nil

	case "esc":
		// Clear search and filters
		m.query.Search = ""
		m.query.Filters = map[string][]string{}
		m.refresh(true)
		return m, nil

	case ">":
		if m.activeCol < len(m.cols)-1 {
			m.activeCol++
		}
		return m, nil

	case "<":
		if m.activeCol > 0 {
			m.activeCol--
		}
		return m, nil

	case "+", "=":
		m.resizeActiveColumn(4)
		return m, nil

	case "-":
		m.resizeActiveColumn(-4)
		return m, nil

	case "d":
		m.status = "Downloading..."
		return m, m.downloadCmd()

	case "x":
		m.status = "Exporting..."
		return m, m.exportCmd("xlsx")

	case "c":
		m.status = "Exporting..."
		return m, m.exportCmd("csv")
	}

	return m, nil
}

func (m gridModel) updateSearch(msg tea.KeyPressMsg) gridModel {
	switch msg.String() {
	case "enter":
		m.mode = modeBrowse
		m.query.Search = m.searchBuf
		m.refresh(true)
	case "esc":
		m.mode = modeBrowse
		m.searchBuf = m.query.Search
	case "backspace":
		if len(m.searchBuf) > 0 {
			runes := []rune(m.searchBuf)
			m.searchBuf = string(runes[:len(runes)-1])
		}
		m.query.Search = m.searchBuf
		m.refresh(true)
	case "space":
		m.searchBuf += " "
		m.query.Search = m.searchBuf
		m.refresh(true)
	default:
		// Live search: every typed character narrows the view
		if s := msg.String(); len([]rune(s)) == 1 {
			m.searchBuf += s
			m.query.Search = m.searchBuf
			m.refresh(true)
		}
	}
	return m
}

func (m gridModel) updateFilter(msg tea.KeyPressMsg) gridModel {
	filterable := m.filterableColumns()

	switch msg.String() {
	case "enter", "esc", "f":
		m.mode = modeBrowse

	case "right", "tab":
		m.filterCol = (m.filterCol + 1) % len(filterable)
		m.filterCursor = 0
		m.refreshFilterOptions()

	case "left":
		m.filterCol = (m.filterCol + len(filterable) - 1) % len(filterable)
		m.filterCursor = 0
		m.refreshFilterOptions()

	case "down", "j":
		if m.filterCursor < len(m.filterOptions)-1 {
			m.filterCursor++
		}

	case "up", "k":
		if m.filterCursor > 0 {
			m.filterCursor--
		}

	case "space":
		if m.filterCursor < len(m.filterOptions) {
			key := filterable[m.filterCol].Key
			m.toggleFilter(key, m.filterOptions[m.filterCursor])
			m.refresh(true)
			m.refreshFilterOptions()
		}

	case "backspace":
		key := filterable[m.filterCol].Key
		delete(m.query.Filters, key)
		m.refresh(true)
		m.refreshFilterOptions()
	}
	return m
}

// resizeActiveColumn widens or narrows the selected column. The change
// lives only as long as this grid.
func (m *gridModel) resizeActiveColumn(delta int) {
	const minWidth, maxWidth = 4, 80
	w := m.cols[m.activeCol].Width + delta
	if w < minWidth {
		w = minWidth
	}
	if w > maxWidth {
		w = maxWidth
	}
	m.cols[m.activeCol].Width = w
}

func (m *gridModel) toggleFilter(key, value string) {
	active := m.query.Filters[key]
	if i := slices.Index(active, value); i >= 0 {
		active = slices.Delete(active, i, i+1)
	} else {
		active = append(active, value)
	}
	if len(active) == 0 {
		delete(m.query.Filters, key)
	} else {
		m.query.Filters[key] = active
	}
}

// refresh recomputes the visible page. Any change to search, filters,
// sorting or page size snaps back to the first page.
func (m *gridModel) refresh(resetPage bool) {
	if resetPage {
		m.query.Page = 1
	}
	m.view = preview.Apply(m.dataset, m.query)
	m.status = ""
}

func (m *gridModel) refreshFilterOptions() {
	filterable := m.filterableColumns()
	if len(filterable) == 0 {
		m.filterOptions = nil
		return
	}
	m.filterOptions = preview.FilterOptions(m.dataset, m.query, filterable[m.filterCol].Key)
	if m.filterCursor >= len(m.filterOptions) {
		m.filterCursor = 0
	}
}

func (m gridModel) filterableColumns() []preview.Column {
	var out []preview.Column
	for _, col := range m.cols {
		if col.Filterable {
			out = append(out, col)
		}
	}
	return out
}

// cycleSort walks unsorted -> first sortable column -> ... -> unsorted.
func (m *gridModel) cycleSort() {
	var sortable []preview.Column
	for _, col := range m.cols {
		if col.Sortable {
			sortable = append(sortable, col)
		}
	}
	if len(sortable) == 0 {
		return
	}

	current := -1
	for i, col := range sortable {
		if col.Key == m.query.SortKey {
			current = i
			break
		}
	}

	next := current + 1
	if next >= len(sortable) {
		m.query.SortKey = ""
	} else {
		m.query.SortKey = sortable[next].Key
	}
	m.query.SortDesc = false
	m.refresh(true)
}

func nextPageSize(current int) int {
	for i, size := range preview.PageSizes {
		if size == current {
			return preview.PageSizes[(i+1)%len(preview.PageSizes)]
		}
	}
	return preview.PageSizes[0]
}

func (m gridModel) downloadCmd() tea.Cmd {
	kind, id := m.kind, m.sessionID
	return func() tea.Msg {
		path, err := api.Download(context.Background(), kind, id, cfg.DownloadDir)
		return actionDoneMsg{label: "Downloaded", path: path, err: err}
	}
}

func (m gridModel) exportCmd(format string) tea.Cmd {
	d, cols, id := m.dataset, m.cols, m.sessionID
	return func() tea.Msg {
		exp := export.New(logger, collector)
		path := fmt.Sprintf("%s/%s-%s.%s", cfg.DownloadDir, m.kind, id, format)
		var err error
		if format == "csv" {
			err = exp.CSV(path, d, cols)
		} else {
			err = exp.XLSX(path, d, cols)
		}
		return actionDoneMsg{label: "Exported", path: path, err: err}
	}
}

func (m gridModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	var b strings.Builder
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return tea.NewView(b.String())
}

func (m gridModel) renderTable() string {
	headers := make([]string, 0, len(m.cols)+1)
	headers = append(headers, "S.NO")
	for i, col := range m.cols {
		title := m.headerTitle(col)
		if i == m.activeCol {
			title = "• " + title
		}
		headers = append(headers, title)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(m.theme.hintStyle()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return m.theme.headerStyle().Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for i, row := range m.view.Rows {
		cells := make([]string, 0, len(m.cols)+1)
		cells = append(cells, strconv.Itoa(m.view.StartIndex+i))
		for _, col := range m.cols {
			cells = append(cells, truncate(preview.CellString(row[col.Key]), col.Width))
		}
		t.Row(cells...)
	}

	return t.Render()
}

// headerTitle renders the uppercase title plus sort and filter markers.
func (m gridModel) headerTitle(col preview.Column) string {
	title := strings.ToUpper(col.Title)
	if col.Key == m.query.SortKey {
		if m.query.SortDesc {
			title += " ▼"
		} else {
			title += " ▲"
		}
	}
	if n := len(m.query.Filters[col.Key]); n > 0 {
		title += fmt.Sprintf(" [%d]", n)
	}
	return title
}

func (m gridModel) renderFooter() string {
	var b strings.Builder

	page := fmt.Sprintf("Page %d/%d", m.view.Page, max(m.view.TotalPages, 1))
	rows := fmt.Sprintf("%d rows", m.view.TotalRows)
	size := fmt.Sprintf("%d per page", m.query.PageSize)
	b.WriteString(m.theme.statusStyle().Render(page + " · " + rows + " · " + size))
	b.WriteString("\n")

	switch m.mode {
	case modeSearch:
		b.WriteString(fmt.Sprintf("Search: %s█\n", m.searchBuf))
		b.WriteString(m.theme.hintStyle().Render("enter apply · esc cancel"))

	case modeFilter:
		b.WriteString(m.renderFilterPanel())

	default:
		if m.query.Search != "" {
			b.WriteString(fmt.Sprintf("Search: %q\n", m.query.Search))
		}
		if m.status != "" {
			b.WriteString(m.status)
			b.WriteString("\n")
		}
		b.WriteString(m.theme.hintStyle().Render(
			"/ search · f filter · s sort · r reverse · ←→ page · ] page size · <> column · +- width · d download · x xlsx · c csv · C chat · q quit"))
	}

	return b.String()
}

func (m gridModel) renderFilterPanel() string {
	filterable := m.filterableColumns()
	col := filterable[m.filterCol]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Filter %s (%d/%d columns)\n", col.Title, m.filterCol+1, len(filterable)))

	active := m.query.Filters[col.Key]
	for i, opt := range m.filterOptions {
		cursor := "  "
		if i == m.filterCursor {
			cursor = "> "
		}
		mark := "[ ]"
		if slices.Contains(active, opt) {
			mark = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, mark, truncate(opt, 60)))
	}
	if len(m.filterOptions) == 0 {
		b.WriteString(m.theme.hintStyle().Render("  no values under the current view\n"))
	}

	b.WriteString(m.theme.hintStyle().Render("space toggle · ←→ column · backspace clear · enter done"))
	return b.String()
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// runGrid shows the dataset in the interactive grid. It reports whether
// the user asked to open the chat on exit.
func runGrid(d *preview.Dataset, kind client.Kind, sessionID string) (openChat bool, err error) {
	cols := preview.InferColumns(d, nil)
	model := newGridModel(d, cols, kind, sessionID)

	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return false, fmt.Errorf("grid UI error: %w", err)
	}
	if m, ok := finalModel.(gridModel); ok {
		return m.openChat, nil
	}
	return false, nil
}
