package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

const submissionUploadAuthQuery = `
    query($filename: String!, $tournament: Int!) {
      submissionUploadAuth(filename: $filename, tournament: $tournament) {
        filename
        url
      }
    }`

const createSubmissionMutation = `
    mutation($filename: String!, $tournament: Int!) {
      createSubmission(filename: $filename, tournament: $tournament) {
        id
      }
    }`

const submissionStatusQuery = `
    query($submissionId: String!) {
      submissions(id: $submissionId) {
        concordance {
          pending
          value
        }
        consistency
      }
    }`

// SubmissionStatus holds the quality metrics the service computes for an
// uploaded prediction. Pending indicates the checks have not finished yet.
type SubmissionStatus struct {
	Pending     bool
	Concordance bool
	Consistency float64
}

// UploadPredictions uploads a prediction file and registers it as a
// submission. Requires credentials. Returns the submission id.
func (c *Client) UploadPredictions(ctx context.Context, path string) (string, error) {
	const op = "upload_predictions"

	if !c.HasCredentials() {
		return "", &AuthError{Operation: op}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: read predictions file: %w", op, err)
	}
	filename := filepath.Base(path)

	authData, err := c.rawQuery(ctx, op, submissionUploadAuthQuery,
		map[string]any{"filename": filename, "tournament": c.tournament}, true)
	if err != nil {
		return "", err
	}

	var auth struct {
		SubmissionUploadAuth struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		} `json:"submissionUploadAuth"`
	}
	if err := json.Unmarshal(authData, &auth); err != nil {
		return "", fmt.Errorf("%s: decode upload auth: %w", op, err)
	}
	if auth.SubmissionUploadAuth.URL == "" {
		return "", fmt.Errorf("%s: service returned no upload URL", op)
	}

	if err := c.withRetry(ctx, op, func() error {
		return c.putFile(ctx, op, auth.SubmissionUploadAuth.URL, content)
	}); err != nil {
		return "", err
	}

	createData, err := c.rawQuery(ctx, op, createSubmissionMutation,
		map[string]any{"filename": auth.SubmissionUploadAuth.Filename, "tournament": c.tournament}, true)
	if err != nil {
		return "", err
	}

	var created struct {
		CreateSubmission struct {
			ID string `json:"id"`
		} `json:"createSubmission"`
	}
	if err := json.Unmarshal(createData, &created); err != nil {
		return "", fmt.Errorf("%s: decode submission: %w", op, err)
	}
	return created.CreateSubmission.ID, nil
}

// SubmissionStatus requests the scoring status of a submission.
func (c *Client) SubmissionStatus(ctx context.Context, submissionID string) (SubmissionStatus, error) {
	const op = "submission_status"

	data, err := c.rawQuery(ctx, op, submissionStatusQuery,
		map[string]any{"submissionId": submissionID}, true)
	if err != nil {
		return SubmissionStatus{}, err
	}

	var payload struct {
		Submissions struct {
			Concordance struct {
				Pending bool `json:"pending"`
				Value   bool `json:"value"`
			} `json:"concordance"`
			Consistency float64 `json:"consistency"`
		} `json:"submissions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return SubmissionStatus{}, fmt.Errorf("%s: decode payload: %w", op, err)
	}

	return SubmissionStatus{
		Pending:     payload.Submissions.Concordance.Pending,
		Concordance: payload.Submissions.Concordance.Value,
		Consistency: payload.Submissions.Consistency,
	}, nil
}

// putFile uploads content to a presigned URL in a single attempt.
func (c *Client) putFile(ctx context.Context, operation, url string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
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
	return nil
}
