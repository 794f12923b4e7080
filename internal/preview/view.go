package preview

import (
	"sort"
	"strings"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50, 100}

// Query is the full set of user-adjustable view inputs. The rendered
// view is a pure function of (dataset, query); nothing is accumulated
// incrementally, so re-deriving it is idempotent.
type Query struct {
	Search string
	// Filters maps column key to selected values. Values within one
	// column are OR'd; columns compose with AND, and with the search.
	Filters  map[string][]string
	SortKey  string
	SortDesc bool
	Page     int // 1-based
	PageSize int
}

// View is one rendered page of the dataset.
type View struct {
	Rows       []Row
	TotalRows  int
	TotalPages int
	Page       int
	// StartIndex is the 1-based ordinal of the first row on this page
	// within the filtered view (the S.No of the first rendered row).
	StartIndex int
}

// Apply computes the view for a query: search and filters compose, then
// single-column lexicographic sort, then the page slice. An out-of-range
// page is clamped rather than rendered empty.
func Apply(d *Dataset, q Query) View {
	rows := matchRows(d.Rows, q.Search, q.Filters)

	if q.SortKey != "" {
		// Lexicographic on the stringified cell, deliberately not
		// numeric-aware: "10" sorts before "2".
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := CellString(rows[i][q.SortKey]), CellString(rows[j][q.SortKey])
			if q.SortDesc {
				return a > b
			}
			return a < b
		})
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = PageSizes[0]
	}

	totalPages := (len(rows) + pageSize - 1) / pageSize

	page := q.Page
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	return View{
		Rows:       rows[start:end],
		TotalRows:  len(rows),
		TotalPages: totalPages,
		Page:       page,
		StartIndex: start + 1,
	}
}

// FilterOptions returns the candidate values for one column's filter,
// computed from the currently filtered result set - the output of the
// free-text search and every already-applied filter - so narrowing one
// column narrows the choices offered on the others. It is recomputed
// from scratch on every call, never precomputed from the full dataset.
func FilterOptions(d *Dataset, q Query, key string) []string {
	rows := matchRows(d.Rows, q.Search, q.Filters)

	seen := make(map[string]struct{})
	var options []string
	for _, row := range rows {
		v := CellString(row[key])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		options = append(options, v)
	}
	sort.Strings(options)
	return options
}

// matchRows applies the search and the active filters.
func matchRows(rows []Row, search string, filters map[string][]string) []Row {
	needle := strings.ToLower(strings.TrimSpace(search))

	var out []Row
	for _, row := range rows {
		if needle != "" && !rowMatchesSearch(row, needle) {
			continue
		}
		if !rowMatchesFilters(row, filters) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// rowMatchesSearch reports whether any cell's stringified value contains
// the needle, case-insensitive.
func rowMatchesSearch(row Row, needle string) bool {
	for _, v := range row {
		if strings.Contains(strings.ToLower(CellString(v)), needle) {
			return true
		}
	}
	return false
}

func rowMatchesFilters(row Row, filters map[string][]string) bool {
	for key, selected := range filters {
		if len(selected) == 0 {
			continue
		}
		v := CellString(row[key])
		matched := false
		for _, want := range selected {
			if v == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
