package preview

import "testing"

func TestHumanize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single word", "category", "Category"},
		{"snake case", "guideline_summary", "Guideline Summary"},
		{"three words", "max_loan_amount", "Max Loan Amount"},
		{"already capitalized", "Category", "Category"},
		{"empty", "", ""},
		{"double underscore", "a__b", "A  B"},
		{"numeric start", "30_year_rate", "30 Year Rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Humanize(tt.in); got != tt.want {
				t.Errorf("Humanize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInferColumnsFromFirstRow(t *testing.T) {
	d := &Dataset{
		Rows: []Row{
			{"a": "1", "b": "2"},
			{"a": "3", "b": "4"},
		},
		Keys: []string{"a", "b"},
	}

	cols := InferColumns(d, nil)
	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	if cols[0].Key != "a" || cols[0].Title != "A" {
		t.Errorf("first column = %+v, want key a title A", cols[0])
	}
	if cols[1].Key != "b" || cols[1].Title != "B" {
		t.Errorf("second column = %+v, want key b title B", cols[1])
	}
	if !cols[0].Sortable || !cols[0].Filterable {
		t.Error("inferred columns should be sortable and filterable")
	}
}

func TestInferColumnsExplicitSchemaWins(t *testing.T) {
	d := &Dataset{
		Rows: []Row{{"a": "1", "b": "2"}},
		Keys: []string{"a", "b"},
	}
	explicit := []Column{{Key: "b", Title: "Only B", Width: 10}}

	cols := InferColumns(d, explicit)
	if len(cols) != 1 || cols[0].Key != "b" || cols[0].Title != "Only B" {
		t.Errorf("explicit schema not used verbatim: %+v", cols)
	}
}

func TestInferColumnsEmptyDatasetFallback(t *testing.T) {
	cols := InferColumns(&Dataset{}, nil)
	if len(cols) != 1 {
		t.Fatalf("got %d columns, want 1 fallback column", len(cols))
	}
	if cols[0].Key != FallbackKey {
		t.Errorf("fallback column key = %q, want %q", cols[0].Key, FallbackKey)
	}
}

func TestColumnWidthClamped(t *testing.T) {
	d := &Dataset{
		Rows: []Row{
			{"short": "x", "long": "this value is much longer than the forty character clamp allows for"},
		},
		Keys: []string{"short", "long"},
	}

	cols := InferColumns(d, nil)
	if cols[0].Width < minColumnWidth {
		t.Errorf("short column width %d below minimum %d", cols[0].Width, minColumnWidth)
	}
	if cols[1].Width != maxColumnWidth {
		t.Errorf("long column width = %d, want clamped to %d", cols[1].Width, maxColumnWidth)
	}
}
