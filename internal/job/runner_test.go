package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/preview"
	"github.com/guidelinehq/guidectl/internal/session"
)

// fakeBackend serves the submit/progress/preview endpoints and counts
// how often each was hit.
type fakeBackend struct {
	mux *http.ServeMux

	progressOpens  atomic.Int32
	previewFetches atomic.Int32

	frames      []string
	previewBody string
}

func newFakeBackend(frames []string, previewBody string) *fakeBackend {
	b := &fakeBackend{mux: http.NewServeMux(), frames: frames, previewBody: previewBody}

	b.mux.HandleFunc("POST /ingest/guideline", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.SubmitResponse{SessionID: "abc123"})
	})
	b.mux.HandleFunc("POST /compare/guidelines", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.SubmitResponse{SessionID: "cmp-1"})
	})
	b.mux.HandleFunc("POST /compare/from-db", func(w http.ResponseWriter, r *http.Request) {
		var req client.CompareFromDBRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.IngestIDs) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(client.SubmitResponse{SessionID: "cmp-db-1"})
	})
	b.mux.HandleFunc("GET /ingest/progress/{id}", b.progress)
	b.mux.HandleFunc("GET /compare/progress/{id}", b.progress)
	b.mux.HandleFunc("GET /ingest/preview/{id}", b.preview)
	b.mux.HandleFunc("GET /compare/preview/{id}", b.preview)

	return b
}

func (b *fakeBackend) progress(w http.ResponseWriter, r *http.Request) {
	b.progressOpens.Add(1)
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, frame := range b.frames {
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}
}

func (b *fakeBackend) preview(w http.ResponseWriter, r *http.Request) {
	b.previewFetches.Add(1)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(b.previewBody))
}

func testRunner(t *testing.T, backend *fakeBackend) (*Runner, *fakeBackend) {
	t.Helper()
	srv := httptest.NewServer(backend.mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	store := session.NewStoreAt(filepath.Join(dir, "durable.json"), filepath.Join(dir, "session.json"))
	require.NoError(t, store.Set(&session.Credentials{AccessToken: "tok"}, false))

	c := client.New(client.Options{BaseURL: srv.URL, Session: store, Timeout: 5 * time.Second})
	r := NewRunner(c, nil)
	r.previewDelay = time.Millisecond
	return r, backend
}

// minimalPDF writes the smallest one-page PDF the validator accepts.
func minimalPDF(t *testing.T, name string) string {
	t.Helper()

	header := "%PDF-1.4\n"
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}

	body := header
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = len(body)
		body += obj
	}
	xrefPos := len(body)
	body += fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		body += fmt.Sprintf("%010d 00000 n \n", off)
	}
	body += fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func validIngest(t *testing.T) client.IngestUpload {
	return client.IngestUpload{
		FilePath:      minimalPDF(t, "acme.pdf"),
		Investor:      "Acme",
		Version:       "v1",
		ModelProvider: "openai",
		ModelName:     "gpt-4o",
		SystemPrompt:  "extract",
		UserPrompt:    "rules",
	}
}

func TestRunIngestHappyPath(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(
		[]string{
			`{"progress": 10, "message": "Starting"}`,
			`{"progress": 100, "status": "completed"}`,
		},
		`[{"category":"Credit","attribute":"Min Score","guideline_summary":"660"}]`,
	))

	var states []State
	r.OnUpdate = func(j Job) { states = append(states, j.State) }

	result, err := r.RunIngest(context.Background(), validIngest(t))
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.Job.ID)
	assert.Equal(t, StatePreviewing, result.Job.State)
	assert.Equal(t, 100, result.Job.ProgressPercent)

	require.Len(t, result.Dataset.Rows, 1)
	assert.Equal(t, "Credit", result.Dataset.Rows[0]["category"])
	assert.Equal(t, []string{"category", "attribute", "guideline_summary"}, result.Dataset.Keys)

	assert.Equal(t, int32(1), backend.progressOpens.Load(), "exactly one progress connection per job")
	assert.Equal(t, int32(1), backend.previewFetches.Load(), "preview fetched exactly once, after the terminal event")

	assert.Contains(t, states, StateValidating)
	assert.Contains(t, states, StateStreaming)
	assert.Contains(t, states, StateCompleted)
	assert.Equal(t, StatePreviewing, states[len(states)-1])
}

func TestRunIngestProgressOnlyTermination(t *testing.T) {
	// Some backends never send status=completed and only reach 100.
	r, backend := testRunner(t, newFakeBackend(
		[]string{`{"progress": 100, "message": "Done"}`},
		`[{"a":"1"}]`,
	))

	result, err := r.RunIngest(context.Background(), validIngest(t))
	require.NoError(t, err)
	assert.Equal(t, StatePreviewing, result.Job.State)
	assert.Equal(t, int32(1), backend.previewFetches.Load())
}

func TestRunIngestValidationAvoidsNetwork(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(nil, "[]"))

	up := validIngest(t)
	up.Investor = ""
	_, err := r.RunIngest(context.Background(), up)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, int32(0), backend.progressOpens.Load())
	assert.Equal(t, int32(0), backend.previewFetches.Load())
}

func TestRunCompareMissingSecondFile(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(nil, "[]"))

	_, err := r.RunCompare(context.Background(), client.CompareUpload{
		File1Path:     minimalPDF(t, "one.pdf"),
		ModelProvider: "openai",
		ModelName:     "gpt-4o",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "exactly two")
	assert.Equal(t, int32(0), backend.progressOpens.Load(), "no network call on local rejection")
}

func TestRunIngestFailedEvent(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(
		[]string{
			`{"progress": 40, "message": "Parsing"}`,
			`{"status": "failed", "error": "model quota exhausted"}`,
		},
		`[{"a":"1"}]`,
	))

	var last Job
	r.OnUpdate = func(j Job) { last = j }

	_, err := r.RunIngest(context.Background(), validIngest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model quota exhausted")
	assert.Equal(t, StateFailed, last.State)
	assert.Equal(t, int32(0), backend.previewFetches.Load(), "no preview fetch after failure")
}

func TestRunIngestStreamEndsWithoutTerminal(t *testing.T) {
	// The stream drops before any terminal event: transport failure.
	r, backend := testRunner(t, newFakeBackend(
		[]string{`{"progress": 30, "message": "Working"}`},
		`[{"a":"1"}]`,
	))

	var last Job
	r.OnUpdate = func(j Job) { last = j }

	_, err := r.RunIngest(context.Background(), validIngest(t))
	require.Error(t, err)
	assert.Equal(t, StateFailed, last.State)
	assert.Equal(t, int32(0), backend.previewFetches.Load())
	assert.Equal(t, int32(1), backend.progressOpens.Load(), "failed streams are never reopened")
}

func TestRunIngestEmptyPreviewSentinel(t *testing.T) {
	r, _ := testRunner(t, newFakeBackend(
		[]string{`{"progress": 100, "status": "completed"}`},
		`[]`,
	))

	result, err := r.RunIngest(context.Background(), validIngest(t))
	require.NoError(t, err)
	require.Len(t, result.Dataset.Rows, 1)
	assert.Equal(t, preview.NoDataMessage, result.Dataset.Rows[0][preview.FallbackKey])
}

func TestRunCompareFromDB(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(
		[]string{`{"progress": 100, "status": "completed"}`},
		`[{"rule":"LTV","file1":"80%","file2":"75%","commentary":"tightened"}]`,
	))

	result, err := r.RunCompareFromDB(context.Background(), client.CompareFromDBRequest{
		IngestIDs:     []string{"rec-1", "rec-2"},
		ModelProvider: "gemini",
		ModelName:     "gemini-1.5-pro",
	})
	require.NoError(t, err)
	assert.Equal(t, "cmp-db-1", result.Job.ID)
	assert.Equal(t, client.KindCompare, result.Job.Kind)
	assert.Equal(t, int32(1), backend.progressOpens.Load())
}

func TestRunCompareFromDBSelectionInvariant(t *testing.T) {
	r, backend := testRunner(t, newFakeBackend(nil, "[]"))

	tests := []struct {
		name string
		ids  []string
	}{
		{"one record", []string{"rec-1"}},
		{"three records", []string{"a", "b", "c"}},
		{"duplicate records", []string{"rec-1", "rec-1"}},
		{"no records", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RunCompareFromDB(context.Background(), client.CompareFromDBRequest{
				IngestIDs:     tt.ids,
				ModelProvider: "openai",
				ModelName:     "gpt-4o",
			})
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
	assert.Equal(t, int32(0), backend.progressOpens.Load())
}

func TestSubmitFailureReturnsToIdle(t *testing.T) {
	backend := newFakeBackend(nil, "[]")
	backend.mux = http.NewServeMux()
	backend.mux.HandleFunc("POST /ingest/guideline", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r, _ := testRunner(t, backend)

	var last Job
	r.OnUpdate = func(j Job) { last = j }

	_, err := r.RunIngest(context.Background(), validIngest(t))
	require.Error(t, err)
	assert.Equal(t, StateIdle, last.State, "no partial job is left dangling")
}

func TestPreviewFailureLeavesJobCompleted(t *testing.T) {
	backend := newFakeBackend(
		[]string{`{"progress": 100, "status": "completed"}`},
		`{not json`,
	)

	r, _ := testRunner(t, backend)

	result, err := r.RunIngest(context.Background(), validIngest(t))
	require.Error(t, err)
	require.NotNil(t, result, "the job itself completed")
	assert.Equal(t, StateCompleted, result.Job.State)
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{42.7, 42},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampPercent(tt.in))
	}
}
