package cli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/preview"
)

func gridFixture(t *testing.T, rows int) gridModel {
	t.Helper()

	d := &preview.Dataset{Keys: []string{"category", "attribute"}}
	for i := 0; i < rows; i++ {
		d.Rows = append(d.Rows, preview.Row{
			"category":  fmt.Sprintf("Group %d", i%3),
			"attribute": fmt.Sprintf("Rule %02d", i),
		})
	}

	cols := preview.InferColumns(d, nil)
	m := newGridModel(d, cols, client.KindIngest, "abc123")
	m.query.PageSize = 10
	m.refresh(true)
	return m
}

func TestGridSearchResetsPage(t *testing.T) {
	m := gridFixture(t, 35)

	m.query.Page = 3
	m.refresh(false)
	require.Equal(t, 3, m.view.Page)

	m.query.Search = "group 1"
	m.refresh(true)
	assert.Equal(t, 1, m.view.Page, "any search change snaps back to the first page")
	assert.Equal(t, 12, m.view.TotalRows)
}

func TestGridSortCycleResetsPageAndDirection(t *testing.T) {
	m := gridFixture(t, 35)
	m.query.Page = 2
	m.query.SortDesc = true
	m.refresh(false)

	m.cycleSort()
	assert.Equal(t, "category", m.query.SortKey)
	assert.False(t, m.query.SortDesc, "a new sort column starts ascending")
	assert.Equal(t, 1, m.view.Page)

	m.cycleSort()
	assert.Equal(t, "attribute", m.query.SortKey)

	m.cycleSort()
	assert.Equal(t, "", m.query.SortKey, "cycling past the last column clears the sort")
}

func TestGridFilterToggle(t *testing.T) {
	m := gridFixture(t, 30)

	m.toggleFilter("category", "Group 0")
	m.refresh(true)
	assert.Equal(t, 10, m.view.TotalRows)

	m.toggleFilter("category", "Group 0")
	m.refresh(true)
	assert.Equal(t, 30, m.view.TotalRows, "toggling twice removes the filter entirely")
	assert.NotContains(t, m.query.Filters, "category")
}

func TestGridPageSizeCycle(t *testing.T) {
	assert.Equal(t, 25, nextPageSize(10))
	assert.Equal(t, 50, nextPageSize(25))
	assert.Equal(t, 10, nextPageSize(100), "wraps around")
	assert.Equal(t, 10, nextPageSize(7), "unknown sizes snap to the smallest")
}

func TestGridSerialNumbersFollowPages(t *testing.T) {
	m := gridFixture(t, 35)

	m.query.Page = 2
	m.refresh(false)
	assert.Equal(t, 11, m.view.StartIndex)

	rendered := m.renderTable()
	assert.Contains(t, rendered, "S.NO")
	assert.Contains(t, rendered, "CATEGORY")
}

func TestGridHeaderMarkers(t *testing.T) {
	m := gridFixture(t, 5)
	m.query.SortKey = "category"
	m.query.SortDesc = true
	m.query.Filters["category"] = []string{"Group 0", "Group 1"}

	title := m.headerTitle(m.cols[0])
	assert.True(t, strings.HasPrefix(title, "CATEGORY"))
	assert.Contains(t, title, "▼")
	assert.Contains(t, title, "[2]")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "long…", truncate("longer", 5))
}
