package api

import "time"

// Schedule is an ordered list of wait durations indexed by consecutive
// failure count. A transient failure after the last step is fatal.
type Schedule []time.Duration

// DefaultSchedule returns the default backoff schedule: five 1-minute
// steps, three 10-minute steps and three 1-hour steps (about 3h35m total).
func DefaultSchedule() Schedule {
	return Schedule{
		time.Minute, time.Minute, time.Minute, time.Minute, time.Minute,
		10 * time.Minute, 10 * time.Minute, 10 * time.Minute,
		time.Hour, time.Hour, time.Hour,
	}
}

// Total returns the sum of all waits in the schedule.
func (s Schedule) Total() time.Duration {
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total
}
