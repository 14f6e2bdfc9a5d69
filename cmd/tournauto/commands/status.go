package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/history"
	"github.com/tournauto/tournauto/internal/state"
)

// StatusCmd implements the 'status' command: persisted progress plus the
// most recent entries of the round journal.
type StatusCmd struct {
	Limit int `short:"n" help:"Number of history entries to show" default:"10"`
}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := state.NewStore(cfg.StateFile).Load()
	if err != nil {
		return err
	}

	if processed, ok := st.Processed(); ok {
		fmt.Printf("last round processed: %d\n", processed)
	} else {
		fmt.Println("last round processed: (none)")
	}
	if trained, ok := st.Trained(); ok {
		fmt.Printf("last round trained:   %d\n", trained)
	} else {
		fmt.Println("last round trained:   (none)")
	}

	if _, err := os.Stat(cfg.HistoryFile); os.IsNotExist(err) {
		return nil
	}

	journal, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	records, err := journal.Recent(context.Background(), s.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tOUTCOME\tTRAINED\tDURATION\tPROCESSED AT")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%v\t%s\t%s\n",
			rec.Round, rec.Outcome, rec.Trained,
			rec.Duration.Round(time.Second),
			rec.ProcessedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
