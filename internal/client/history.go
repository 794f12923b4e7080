package client

import (
	"context"
	"net/http"
	"time"
)

// IngestRecord is the stored metadata of a completed extraction job.
type IngestRecord struct {
	ID            string    `json:"id"`
	Investor      string    `json:"investor"`
	Version       string    `json:"version"`
	FileName      string    `json:"file_name"`
	ModelProvider string    `json:"model_provider"`
	ModelName     string    `json:"model_name"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// CompareRecord is the stored metadata of a completed comparison job.
type CompareRecord struct {
	ID            string    `json:"id"`
	File1Name     string    `json:"file1_name"`
	File2Name     string    `json:"file2_name"`
	ModelProvider string    `json:"model_provider"`
	ModelName     string    `json:"model_name"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// IngestHistory lists stored extraction records, newest first.
func (c *Client) IngestHistory(ctx context.Context) ([]IngestRecord, error) {
	var records []IngestRecord
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/history/ingest",
		out:    &records,
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CompareHistory lists stored comparison records, newest first.
func (c *Client) CompareHistory(ctx context.Context) ([]CompareRecord, error) {
	var records []CompareRecord
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/history/compare",
		out:    &records,
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteIngestRecord deletes one stored extraction record.
func (c *Client) DeleteIngestRecord(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/history/ingest/" + id,
	})
}

// DeleteAllIngestRecords deletes every stored extraction record.
func (c *Client) DeleteAllIngestRecords(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/history/ingest",
	})
}

// DeleteCompareRecord deletes one stored comparison record.
func (c *Client) DeleteCompareRecord(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/history/compare/" + id,
	})
}

// DeleteAllCompareRecords deletes every stored comparison record.
func (c *Client) DeleteAllCompareRecords(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/history/compare",
	})
}
