package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournauto/tournauto/internal/api"
	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/lifecycle"
)

type fakeUploadClient struct {
	uploadErr    error
	statusErr    error
	status       api.SubmissionStatus
	uploadedPath string
}

func (c *fakeUploadClient) UploadPredictions(ctx context.Context, path string) (string, error) {
	c.uploadedPath = path
	if c.uploadErr != nil {
		return "", c.uploadErr
	}
	return "sub-42", nil
}

func (c *fakeUploadClient) SubmissionStatus(ctx context.Context, id string) (api.SubmissionStatus, error) {
	return c.status, c.statusErr
}

func uploaderRuntime(t *testing.T, round int) *lifecycle.Runtime {
	t.Helper()
	return &lifecycle.Runtime{
		Config: config.Default(),
		Log:    slog.Default(),
		Report: lifecycle.NewReport(),
		Round:  round,
	}
}

func predictionsDir(t *testing.T, round int, filename string) string {
	t.Helper()
	dir := t.TempDir()
	roundDir := filepath.Join(dir, fmt.Sprintf("round_%d", round))
	require.NoError(t, os.MkdirAll(roundDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(roundDir, filename), []byte("id,prediction\na,0.5\n"), 0o640))
	return dir
}

func TestNewPredictionUploaderValidation(t *testing.T) {
	_, err := NewPredictionUploader("", "./predictions", "predictions.csv", &fakeUploadClient{})
	assert.ErrorIs(t, err, lifecycle.ErrEmptyName)

	_, err = NewPredictionUploader("main", "./predictions", "", &fakeUploadClient{})
	assert.Error(t, err)
}

func TestUploadSuccessWritesReport(t *testing.T) {
	dir := predictionsDir(t, 100, "predictions.csv")
	client := &fakeUploadClient{status: api.SubmissionStatus{Concordance: true, Consistency: 83.3}}
	u, err := NewPredictionUploader("main", dir, "predictions.csv", client)
	require.NoError(t, err)

	rt := uploaderRuntime(t, 100)
	require.NoError(t, u.OnNewTournamentData(context.Background(), rt))

	assert.Equal(t, filepath.Join(dir, "round_100", "predictions.csv"), client.uploadedPath)

	id, ok := rt.Report.Get("submissions", "main", "id")
	require.True(t, ok)
	assert.Equal(t, "sub-42", id)
	concordance, ok := rt.Report.Get("submissions", "main", "concordance")
	require.True(t, ok)
	assert.Equal(t, true, concordance)
	consistency, ok := rt.Report.Get("submissions", "main", "consistency")
	require.True(t, ok)
	assert.Equal(t, 83.3, consistency)
}

func TestUploadPendingConcordance(t *testing.T) {
	dir := predictionsDir(t, 100, "predictions.csv")
	client := &fakeUploadClient{status: api.SubmissionStatus{Pending: true}}
	u, err := NewPredictionUploader("main", dir, "predictions.csv", client)
	require.NoError(t, err)

	rt := uploaderRuntime(t, 100)
	require.NoError(t, u.OnNewTournamentData(context.Background(), rt))

	concordance, ok := rt.Report.Get("submissions", "main", "concordance")
	require.True(t, ok)
	assert.Equal(t, "pending", concordance)
}

func TestServiceRejectionDowngradedToWarning(t *testing.T) {
	// A service-side rejection must not wedge the round: the error lands in
	// the report and the hook returns nil so state still advances.
	client := &fakeUploadClient{uploadErr: &api.ServiceError{Operation: "upload_predictions", Status: 400}}
	u, err := NewPredictionUploader("main", t.TempDir(), "predictions.csv", client)
	require.NoError(t, err)

	rt := uploaderRuntime(t, 100)
	require.NoError(t, u.OnNewTournamentData(context.Background(), rt))

	msg, ok := rt.Report.Get("submissions", "main", "error")
	require.True(t, ok)
	assert.Contains(t, msg.(string), "HTTP 400")
}

func TestTransportExhaustionPropagates(t *testing.T) {
	client := &fakeUploadClient{uploadErr: &api.RetryError{Operation: "upload_predictions", Attempts: 12}}
	u, err := NewPredictionUploader("main", t.TempDir(), "predictions.csv", client)
	require.NoError(t, err)

	rt := uploaderRuntime(t, 100)
	assert.Error(t, u.OnNewTournamentData(context.Background(), rt))
}

func TestStatusFailureIsNotFatal(t *testing.T) {
	dir := predictionsDir(t, 100, "predictions.csv")
	client := &fakeUploadClient{statusErr: &api.RetryError{Operation: "submission_status", Attempts: 12}}
	u, err := NewPredictionUploader("main", dir, "predictions.csv", client)
	require.NoError(t, err)

	rt := uploaderRuntime(t, 100)
	require.NoError(t, u.OnNewTournamentData(context.Background(), rt))

	id, ok := rt.Report.Get("submissions", "main", "id")
	require.True(t, ok)
	assert.Equal(t, "sub-42", id)
	_, ok = rt.Report.Get("submissions", "main", "concordance")
	assert.False(t, ok)
}
