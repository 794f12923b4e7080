// Package job drives one long-running backend job from submission to
// either a populated preview or a surfaced failure.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/pdfcheck"
	"github.com/guidelinehq/guidectl/internal/preview"
)

// State is the job's position in its lifecycle. failed and previewing
// are terminal; a new submission always creates a new Job.
type State string

// Lifecycle states.
const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StatePreviewing State = "previewing"
)

// previewDelay tolerates backend eventual consistency between "job
// marked complete" and "preview data readable".
const previewDelay = 500 * time.Millisecond

// ValidationError is a local input rejection; nothing was sent over the
// network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Job is the client-visible ephemeral job state. Owned exclusively by
// the runner that created it; discarded once its preview closes.
type Job struct {
	ID              string
	Kind            client.Kind
	State           State
	ProgressPercent int
	ProgressMessage string
	Err             string
}

// Result is a finished job plus its preview rows.
type Result struct {
	Job     Job
	Dataset *preview.Dataset
}

// Runner executes job lifecycles against the backend. The OnUpdate hook,
// when set, receives a snapshot of the job after every state or progress
// change; it is called from the goroutine running the lifecycle.
type Runner struct {
	client       *client.Client
	logger       *slog.Logger
	previewDelay time.Duration
	OnUpdate     func(Job)
}

// NewRunner creates a runner.
func NewRunner(c *client.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		client:       c,
		logger:       logger,
		previewDelay: previewDelay,
	}
}

// RunIngest validates and runs a guideline extraction job to completion.
func (r *Runner) RunIngest(ctx context.Context, up client.IngestUpload) (*Result, error) {
	job := &Job{Kind: client.KindIngest, State: StateValidating}
	r.update(job)

	if err := validateIngest(up); err != nil {
		return r.reject(job, err)
	}
	return r.run(ctx, job, func() (string, error) {
		return r.client.SubmitIngest(ctx, up)
	})
}

// RunCompare validates and runs a file-based comparison job.
func (r *Runner) RunCompare(ctx context.Context, up client.CompareUpload) (*Result, error) {
	job := &Job{Kind: client.KindCompare, State: StateValidating}
	r.update(job)

	if err := validateCompare(up); err != nil {
		return r.reject(job, err)
	}
	return r.run(ctx, job, func() (string, error) {
		return r.client.SubmitCompare(ctx, up)
	})
}

// RunCompareFromDB validates and runs a comparison over stored records.
func (r *Runner) RunCompareFromDB(ctx context.Context, req client.CompareFromDBRequest) (*Result, error) {
	job := &Job{Kind: client.KindCompare, State: StateValidating}
	r.update(job)

	if err := validateCompareFromDB(req); err != nil {
		return r.reject(job, err)
	}
	return r.run(ctx, job, func() (string, error) {
		return r.client.SubmitCompareFromDB(ctx, req)
	})
}

// Download fetches the job's spreadsheet into destDir.
func (r *Runner) Download(ctx context.Context, kind client.Kind, sessionID, destDir string) (string, error) {
	return r.client.Download(ctx, kind, sessionID, destDir)
}

// run submits the job, observes its progress stream to a terminal event,
// and fetches the preview. The stream is opened exactly once per job and
// closed exactly once on every exit path.
func (r *Runner) run(ctx context.Context, job *Job, submit func() (string, error)) (*Result, error) {
	sessionID, err := submit()
	if err != nil {
		// No partial job is left dangling; a resubmission starts fresh.
		job.State = StateIdle
		r.update(job)
		return nil, fmt.Errorf("submit job: %w", err)
	}

	job.ID = sessionID
	job.State = StateStreaming
	r.update(job)

	terminal, err := r.observe(ctx, job)
	if err != nil {
		return nil, err
	}

	job.State = StateCompleted
	r.update(job)

	dataset, err := r.fetchPreview(ctx, job)
	if err != nil {
		// The job completed but its result cannot be shown; the caller
		// may still download the spreadsheet. No automatic retry.
		return &Result{Job: *job}, fmt.Errorf("fetch preview: %w", err)
	}

	job.State = StatePreviewing
	if terminal.Message != "" {
		job.ProgressMessage = terminal.Message
	}
	r.update(job)

	return &Result{Job: *job, Dataset: dataset}, nil
}

// observe consumes the job's progress stream until a terminal event or a
// transport failure. There is never a second observer for the same job.
func (r *Runner) observe(ctx context.Context, job *Job) (*client.ProgressEvent, error) {
	stream, err := r.client.OpenProgress(ctx, job.Kind, job.ID)
	if err != nil {
		return nil, r.fail(job, fmt.Sprintf("open progress stream: %v", err))
	}
	defer stream.Close()

	for event := range stream.Events() {
		job.ProgressPercent = clampPercent(event.Progress)
		job.ProgressMessage = event.Message
		r.update(job)

		if event.Failed() {
			reason := event.Error
			if reason == "" {
				reason = "job failed"
			}
			return nil, r.fail(job, reason)
		}
		if event.Completed() {
			job.ProgressPercent = 100
			ev := event
			return &ev, nil
		}
	}

	// Stream ended without a terminal event: transport-level failure.
	reason := "progress stream ended unexpectedly"
	if err := stream.Err(); err != nil {
		reason = err.Error()
	}
	return nil, r.fail(job, reason)
}

// fetchPreview waits out backend eventual consistency, fetches the rows
// once, and substitutes the sentinel dataset when the result is empty so
// the grid never renders nothing silently.
func (r *Runner) fetchPreview(ctx context.Context, job *Job) (*preview.Dataset, error) {
	select {
	case <-time.After(r.previewDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	dataset, err := r.client.Preview(ctx, job.Kind, job.ID)
	if err != nil {
		return nil, err
	}
	if len(dataset.Rows) == 0 {
		return preview.NoDataDataset(), nil
	}
	return dataset, nil
}

func (r *Runner) reject(job *Job, err error) (*Result, error) {
	job.State = StateIdle
	r.update(job)
	return nil, err
}

func (r *Runner) fail(job *Job, reason string) error {
	job.State = StateFailed
	job.Err = reason
	r.update(job)
	r.logger.Warn("job failed", "session_id", job.ID, "kind", job.Kind, "reason", reason)
	return errors.New(reason)
}

func (r *Runner) update(job *Job) {
	if r.OnUpdate != nil {
		r.OnUpdate(*job)
	}
}

func clampPercent(p float64) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(p)
	}
}

func validateIngest(up client.IngestUpload) error {
	switch {
	case up.FilePath == "":
		return &ValidationError{Reason: "a guideline PDF is required"}
	case up.Investor == "":
		return &ValidationError{Reason: "investor is required"}
	case up.Version == "":
		return &ValidationError{Reason: "version is required"}
	case up.ModelProvider == "" || up.ModelName == "":
		return &ValidationError{Reason: "model provider and model name are required"}
	}
	if err := pdfcheck.Validate(up.FilePath); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

func validateCompare(up client.CompareUpload) error {
	switch {
	case up.File1Path == "" || up.File2Path == "":
		return &ValidationError{Reason: "a comparison needs exactly two guideline PDFs"}
	case up.File1Path == up.File2Path:
		return &ValidationError{Reason: "the two guideline PDFs must differ"}
	case up.ModelProvider == "" || up.ModelName == "":
		return &ValidationError{Reason: "model provider and model name are required"}
	}
	for _, path := range []string{up.File1Path, up.File2Path} {
		if err := pdfcheck.Validate(path); err != nil {
			return &ValidationError{Reason: err.Error()}
		}
	}
	return nil
}

func validateCompareFromDB(req client.CompareFromDBRequest) error {
	switch {
	case len(req.IngestIDs) != 2:
		return &ValidationError{Reason: "a database comparison needs exactly two stored records"}
	case req.IngestIDs[0] == req.IngestIDs[1]:
		return &ValidationError{Reason: "the two stored records must differ"}
	case req.ModelProvider == "" || req.ModelName == "":
		return &ValidationError{Reason: "model provider and model name are required"}
	}
	return nil
}
