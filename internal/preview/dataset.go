// Package preview renders arbitrary job result rows as a searchable,
// filterable, sortable, paginated table without a declared schema.
package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Sentinel content shown when a completed job produced no rows.
const (
	FallbackKey   = "content"
	NoDataMessage = "No structured data found"
)

// Row is one result record: an open-ended mapping from column key to a
// primitive display value. Shape is whatever the backend produced.
type Row = map[string]any

// Dataset is a decoded preview payload. Keys preserves the first row's
// key order from the wire, which is authoritative for column inference;
// a plain Go map would lose it.
type Dataset struct {
	Rows []Row
	Keys []string
}

// ParseDataset decodes a preview payload, capturing the first row's key
// order before the generic unmarshal discards it.
func ParseDataset(data []byte) (*Dataset, error) {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse preview rows: %w", err)
	}

	keys, err := firstRowKeys(data)
	if err != nil {
		return nil, err
	}
	return &Dataset{Rows: rows, Keys: keys}, nil
}

// NoDataDataset is the sentinel substituted for an empty preview so the
// grid always has something to render.
func NoDataDataset() *Dataset {
	return &Dataset{
		Rows: []Row{{FallbackKey: NoDataMessage}},
		Keys: []string{FallbackKey},
	}
}

// firstRowKeys walks the token stream of the first array element and
// collects its top-level keys in order.
func firstRowKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening '['.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse preview rows: %w", err)
	}
	if !dec.More() {
		return nil, nil
	}
	// Opening '{' of the first row.
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse preview rows: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parse preview rows: first element is not an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse preview rows: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse preview rows: unexpected token %v", tok)
		}
		keys = append(keys, key)

		// Skip the value, whatever shape it has.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, fmt.Errorf("parse preview rows: %w", err)
		}
	}
	return keys, nil
}

// CellString renders a cell value for display, search, filtering, and
// sorting. Consumers treat values as display strings only.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
