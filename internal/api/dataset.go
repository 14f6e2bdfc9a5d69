package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const datasetURLQuery = `
    query($tournament: Int!) {
      dataset(tournament: $tournament)
    }`

// DownloadDataset downloads the current dataset archive to zipPath. The
// dataset URL is requested from the service, then the archive is fetched
// over plain HTTP; both steps follow the retry schedule for transport
// failures.
func (c *Client) DownloadDataset(ctx context.Context, zipPath string) error {
	const op = "download_dataset"

	data, err := c.rawQuery(ctx, op, datasetURLQuery, map[string]any{"tournament": c.tournament}, false)
	if err != nil {
		return err
	}

	var payload struct {
		Dataset string `json:"dataset"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%s: decode payload: %w", op, err)
	}
	if payload.Dataset == "" {
		return fmt.Errorf("%s: service returned no dataset URL", op)
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o750); err != nil {
		return fmt.Errorf("%s: create dataset directory: %w", op, err)
	}

	return c.withRetry(ctx, op, func() error {
		return c.fetchFile(ctx, op, payload.Dataset, zipPath)
	})
}

// fetchFile downloads url to dest in a single attempt, writing through a
// temporary file so an interrupted download never leaves a truncated
// archive at the final path.
func (c *Client) fetchFile(ctx context.Context, operation, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ServiceError{Operation: operation, Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("%s: create temp file: %w", operation, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
