package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/guidelinehq/guidectl/internal/preview"
)

func sampleDataset() (*preview.Dataset, []preview.Column) {
	d := &preview.Dataset{
		Keys: []string{"category", "attribute", "guideline_summary"},
		Rows: []preview.Row{
			{"category": "Credit", "attribute": "Min Score", "guideline_summary": "660"},
			{"category": "Property", "attribute": "Max LTV", "guideline_summary": float64(80)},
			{"category": "Income", "attribute": "DTI", "guideline_summary": nil},
		},
	}
	return d, preview.InferColumns(d, nil)
}

func TestXLSXRoundTrip(t *testing.T) {
	d, cols := sampleDataset()
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, New(nil, nil).XLSX(path, d, cols))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Guideline Data")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Category", "Attribute", "Guideline Summary"}, rows[0])
	assert.Equal(t, []string{"Credit", "Min Score", "660"}, rows[1])
	assert.Equal(t, "80", rows[2][2], "numeric cells keep their display form")
	assert.Equal(t, "Income", rows[3][0])
}

func TestXLSXEmptyDataset(t *testing.T) {
	d := preview.NoDataDataset()
	cols := preview.InferColumns(d, nil)
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, New(nil, nil).XLSX(path, d, cols))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Guideline Data")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, preview.NoDataMessage, rows[1][0])
}

func TestCSVRoundTrip(t *testing.T) {
	d, cols := sampleDataset()
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, New(nil, nil).CSV(path, d, cols))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Category", "Attribute", "Guideline Summary"}, records[0])
	assert.Equal(t, []string{"Income", "DTI", ""}, records[3])
}

func TestCSVCreateFailure(t *testing.T) {
	d, cols := sampleDataset()
	err := New(nil, nil).CSV(filepath.Join(t.TempDir(), "missing", "out.csv"), d, cols)
	require.Error(t, err)
}
