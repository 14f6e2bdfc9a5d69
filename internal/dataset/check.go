package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tournauto/tournauto/internal/logfields"
)

// ErrNewDataNotReadable signals that the new dataset could not be loaded.
// Callers treat this as "not yet valid" and re-fetch, never as a change
// verdict.
var ErrNewDataNotReadable = errors.New("new dataset could not be loaded")

// Changed compares two dataset snapshots and reports whether the new one is
// materially different from the old one. If dataType is non-empty, both
// tables are first restricted to rows with that data_type.
//
// Missing-file semantics are deliberately asymmetric: an unreadable new
// file is a load failure (ErrNewDataNotReadable), while a missing old file
// means there is nothing to compare against and the data counts as changed.
func Changed(oldPath, newPath, dataType string, log *slog.Logger) (bool, error) {
	if log == nil {
		log = slog.Default()
	}

	if _, err := os.Stat(newPath); err != nil {
		log.Error("New dataset not readable", logfields.Path(newPath), logfields.Error(err))
		return false, fmt.Errorf("%w: %s", ErrNewDataNotReadable, newPath)
	}
	if _, err := os.Stat(oldPath); err != nil {
		log.Info("No previous dataset available, treating data as changed", logfields.Path(oldPath))
		return true, nil
	}

	log.Debug("Comparing datasets",
		slog.String("old", oldPath), slog.String("new", newPath), slog.String("data_type", dataType))

	oldTable, err := LoadTable(oldPath)
	if err != nil {
		// Old data unreadable counts as changed; there is nothing to compare against.
		log.Warn("Previous dataset unreadable, treating data as changed", logfields.Path(oldPath), logfields.Error(err))
		return true, nil
	}
	newTable, err := LoadTable(newPath)
	if err != nil {
		log.Error("New dataset not readable", logfields.Path(newPath), logfields.Error(err))
		return false, fmt.Errorf("%w: %v", ErrNewDataNotReadable, err)
	}

	if dataType != "" {
		oldTable = oldTable.FilterDataType(dataType)
		newTable = newTable.FilterDataType(dataType)
	}

	if len(oldTable.Rows) != len(newTable.Rows) {
		log.Debug("Row count changed",
			slog.Int("old_rows", len(oldTable.Rows)), slog.Int("new_rows", len(newTable.Rows)))
		return true, nil
	}

	if !oldTable.SortByID().Equal(newTable.SortByID()) {
		log.Debug("Dataset content changed")
		return true, nil
	}

	log.Debug("No dataset change detected")
	return false, nil
}
