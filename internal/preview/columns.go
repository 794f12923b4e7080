package preview

import "strings"

// Column describes one table column. Derived deterministically from data
// at render time; never persisted.
type Column struct {
	Key        string
	Title      string
	Sortable   bool
	Filterable bool
	Width      int
}

const (
	minColumnWidth = 6
	maxColumnWidth = 40
)

// InferColumns derives the column set. An explicit list wins verbatim;
// otherwise one column per key of the first row; with no data and no
// schema, a single fallback message column.
func InferColumns(d *Dataset, explicit []Column) []Column {
	if len(explicit) > 0 {
		return explicit
	}

	if len(d.Keys) == 0 {
		return []Column{{
			Key:      FallbackKey,
			Title:    "Message",
			Width:    maxColumnWidth,
			Sortable: true,
		}}
	}

	cols := make([]Column, 0, len(d.Keys))
	for _, key := range d.Keys {
		cols = append(cols, Column{
			Key:        key,
			Title:      Humanize(key),
			Sortable:   true,
			Filterable: true,
			Width:      columnWidth(d, key),
		})
	}
	return cols
}

// Humanize turns a snake_case key into a display title: underscores
// become spaces and each word is capitalized.
func Humanize(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// columnWidth sizes a column to its title and cell contents, clamped to
// keep one wide value from eating the screen.
func columnWidth(d *Dataset, key string) int {
	width := len(Humanize(key))
	for _, row := range d.Rows {
		if l := len(CellString(row[key])); l > width {
			width = l
		}
	}
	if width < minColumnWidth {
		width = minColumnWidth
	}
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return width
}
