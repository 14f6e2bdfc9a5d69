package config

import (
	"fmt"
	"os"
)

const defaultConfigTemplate = `# tournauto configuration

# Tournament track to follow.
tournament: 1

# Root directory for downloaded per-round datasets.
data_directory: ./data

# Run the cheaper validation-subset comparison before the full
# training-data comparison when deciding whether to retrain.
check_validation_data: true

# Seconds before the reported round close at which fine polling starts.
wakeup_time: 300

# Seconds between fine polls near the round boundary.
round_wait_interval: 60

# Seconds to wait before re-downloading a dataset that did not
# validate as new data.
invalid_dataset_waittime: 600

# Single-shot mode exits without waiting if the next round boundary is
# more than this many seconds away.
single_run_max_wait: 86400

# Per-attempt waits (seconds) for transient API failures. Exhausting the
# schedule is fatal.
retry_wait_schedule: [60, 60, 60, 60, 60, 600, 600, 600, 3600, 3600, 3600]

state_file: state.json
history_file: history.db

# Prediction files to submit each round, looked up under
# <predictions_directory>/round_<n>/<file>. Requires API credentials.
predictions_directory: ./predictions
# uploads:
#   - name: main
#     file: predictions.csv

# Shell commands to run on round events. %round% and %dataset_path% are
# substituted before execution.
# commands:
#   - name: notifier
#     on_new_tournament_data: "echo New round %round%, data in %dataset_path%"

api:
  base_url: https://api-tournament.numer.ai
  # Credentials are read from the environment (or a .env file):
  #   TOURNAUTO_PUBLIC_ID, TOURNAUTO_SECRET_KEY

# metrics:
#   listen: ":9090"

# events:
#   nats_url: nats://localhost:4222
#   subject_prefix: tournauto.rounds

reports:
  directory: ./reports
`

// Init writes a commented default configuration file.
func Init(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
		}
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
