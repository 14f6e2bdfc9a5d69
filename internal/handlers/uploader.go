// Package handlers ships the stock lifecycle handlers: prediction upload,
// report writing and event publishing. Model training and inference stay
// outside this repository; custom handlers embed lifecycle.Base the same
// way these do.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tournauto/tournauto/internal/api"
	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/logfields"
)

// Uploader is the slice of the API client the prediction uploader needs.
type Uploader interface {
	UploadPredictions(ctx context.Context, path string) (string, error)
	SubmissionStatus(ctx context.Context, submissionID string) (api.SubmissionStatus, error)
}

// PredictionUploader uploads a prediction file on every new tournament
// dataset. Service-side rejections are downgraded to logged warnings with
// manual-recovery guidance so the round still completes and state still
// advances; only transport exhaustion propagates.
type PredictionUploader struct {
	lifecycle.Base
	client         Uploader
	predictionsDir string
	filename       string
}

// NewPredictionUploader creates an uploader for
// <predictionsDir>/round_<n>/<filename>.
func NewPredictionUploader(name, predictionsDir, filename string, client Uploader) (*PredictionUploader, error) {
	base, err := lifecycle.NewBase(name)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, errors.New("predictions filename can not be empty")
	}
	return &PredictionUploader{
		Base:           base,
		client:         client,
		predictionsDir: predictionsDir,
		filename:       filename,
	}, nil
}

func (u *PredictionUploader) OnNewTournamentData(ctx context.Context, rt *lifecycle.Runtime) error {
	path := filepath.Join(u.predictionsDir, fmt.Sprintf("round_%d", rt.Round), u.filename)
	rt.Log.Info("Uploading predictions",
		logfields.Handler(u.Name()), logfields.Round(rt.Round), logfields.Path(path))

	submissionID, err := u.client.UploadPredictions(ctx, path)
	if err != nil {
		var serviceErr *api.ServiceError
		var authErr *api.AuthError
		if errors.As(err, &serviceErr) || errors.As(err, &authErr) {
			rt.Log.Error("Prediction upload rejected",
				logfields.Handler(u.Name()), logfields.Round(rt.Round), logfields.Error(err))
			rt.Log.Error(fmt.Sprintf(
				"Predictions not uploaded successfully; upload %s manually, or remove %s and restart to process this round again",
				path, rt.Config.StateFile))
			rt.Report.Set(err.Error(), "submissions", u.Name(), "error")
			return nil
		}
		return err
	}

	rt.Report.Set(submissionID, "submissions", u.Name(), "id")
	rt.Report.Set(u.filename, "submissions", u.Name(), "file")

	status, err := u.client.SubmissionStatus(ctx, submissionID)
	if err != nil {
		rt.Log.Warn("Could not fetch submission status",
			logfields.Handler(u.Name()), logfields.Error(err))
		return nil
	}
	if status.Pending {
		rt.Report.Set("pending", "submissions", u.Name(), "concordance")
	} else {
		rt.Report.Set(status.Concordance, "submissions", u.Name(), "concordance")
	}
	rt.Report.Set(status.Consistency, "submissions", u.Name(), "consistency")

	rt.Log.Info("Predictions uploaded",
		logfields.Handler(u.Name()), logfields.Round(rt.Round),
		logfields.Path(path))
	return nil
}
