package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/guidelinehq/guidectl/internal/metrics"
	"github.com/guidelinehq/guidectl/internal/preview"
)

// Kind selects the backend job family a session id belongs to.
type Kind string

// Job kinds.
const (
	KindIngest  Kind = "ingest"
	KindCompare Kind = "compare"
)

func (k Kind) pathPrefix() string {
	return "/" + string(k)
}

// SubmitResponse carries the job session identifier.
type SubmitResponse struct {
	SessionID string `json:"session_id"`
}

// IngestUpload is the input for a guideline extraction job.
type IngestUpload struct {
	FilePath      string
	Investor      string
	Version       string
	ModelProvider string
	ModelName     string
	EffectiveDate string
	ExpiryDate    string
	SystemPrompt  string
	UserPrompt    string
}

// SubmitIngest uploads one guideline PDF and starts an extraction job.
func (c *Client) SubmitIngest(ctx context.Context, up IngestUpload) (string, error) {
	body, contentType, err := buildMultipart(
		map[string]string{
			"investor":       up.Investor,
			"version":        up.Version,
			"model_provider": up.ModelProvider,
			"model_name":     up.ModelName,
			"effective_date": up.EffectiveDate,
			"expiry_date":    up.ExpiryDate,
			"system_prompt":  up.SystemPrompt,
			"user_prompt":    up.UserPrompt,
		},
		map[string]string{"file": up.FilePath},
	)
	if err != nil {
		return "", err
	}

	var resp SubmitResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/ingest/guideline",
		body:        body,
		contentType: contentType,
		out:         &resp,
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("ingest job submitted", "session_id", resp.SessionID, "investor", up.Investor)
	return resp.SessionID, nil
}

// CompareUpload is the input for a file-based comparison job.
type CompareUpload struct {
	File1Path     string
	File2Path     string
	ModelProvider string
	ModelName     string
	SystemPrompt  string
	UserPrompt    string
}

// SubmitCompare uploads two guideline PDFs and starts a comparison job.
func (c *Client) SubmitCompare(ctx context.Context, up CompareUpload) (string, error) {
	body, contentType, err := buildMultipart(
		map[string]string{
			"model_provider": up.ModelProvider,
			"model_name":     up.ModelName,
			"system_prompt":  up.SystemPrompt,
			"user_prompt":    up.UserPrompt,
		},
		map[string]string{
			"file1": up.File1Path,
			"file2": up.File2Path,
		},
	)
	if err != nil {
		return "", err
	}

	var resp SubmitResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/compare/guidelines",
		body:        body,
		contentType: contentType,
		out:         &resp,
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("compare job submitted", "session_id", resp.SessionID)
	return resp.SessionID, nil
}

// CompareFromDBRequest starts a comparison over previously ingested records.
type CompareFromDBRequest struct {
	IngestIDs     []string `json:"ingest_ids"`
	ModelProvider string   `json:"model_provider"`
	ModelName     string   `json:"model_name"`
	SystemPrompt  string   `json:"system_prompt"`
	UserPrompt    string   `json:"user_prompt"`
}

// SubmitCompareFromDB starts a comparison job over stored ingest records.
func (c *Client) SubmitCompareFromDB(ctx context.Context, req CompareFromDBRequest) (string, error) {
	body, err := marshalBody(req)
	if err != nil {
		return "", err
	}

	var resp SubmitResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/compare/from-db",
		body:        body,
		contentType: "application/json",
		out:         &resp,
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("compare-from-db job submitted", "session_id", resp.SessionID, "records", len(req.IngestIDs))
	return resp.SessionID, nil
}

// Preview fetches the structured result rows for a completed job. Row
// shape is whatever the extraction produced; key order of the first row
// is preserved so callers can lay out columns the way the backend did.
func (c *Client) Preview(ctx context.Context, kind Kind, sessionID string) (*preview.Dataset, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpPreviewFetch, time.Since(start))
	}()

	var raw json.RawMessage
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   kind.pathPrefix() + "/preview/" + sessionID,
		out:    &raw,
	})
	if err != nil {
		return nil, err
	}
	dataset, err := preview.ParseDataset(raw)
	if err != nil {
		return nil, fmt.Errorf("parse preview payload: %w", err)
	}
	return dataset, nil
}

// Download saves the job's spreadsheet into destDir and returns the
// written path. The filename comes from Content-Disposition when present.
func (c *Client) Download(ctx context.Context, kind Kind, sessionID, destDir string) (string, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpDownload, time.Since(start))
	}()

	cl := call{
		method: http.MethodGet,
		path:   kind.pathPrefix() + "/download/" + sessionID,
	}

	resp, err := c.send(ctx, cl, c.credentials())
	if err != nil {
		c.notifier.Notify("Could not reach the server. Check your connection and try again.")
		return "", fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			c.notifier.Notify("Your session has expired. Please log in again.")
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		resp, err = c.send(ctx, cl, c.credentials())
		if err != nil {
			return "", fmt.Errorf("retry request: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
		c.notifier.Notify(apiErr.Message)
		return "", apiErr
	}

	name := downloadName(resp.Header.Get("Content-Disposition"), kind, sessionID)
	destPath := filepath.Join(destDir, name)

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write download file: %w", err)
	}

	c.logger.Info("spreadsheet downloaded", "path", destPath, "session_id", sessionID)
	return destPath, nil
}

// downloadName picks a filename from the Content-Disposition header, with
// a deterministic fallback.
func downloadName(disposition string, kind Kind, sessionID string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return fmt.Sprintf("%s-%s.xlsx", kind, sessionID)
}

// buildMultipart assembles a multipart body from form fields and file
// paths. Empty field values are omitted.
func buildMultipart(fields map[string]string, files map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for field, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open upload file: %w", err)
		}
		part, err := w.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("create form file %s: %w", field, err)
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("copy upload file: %w", err)
		}
		f.Close()
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
