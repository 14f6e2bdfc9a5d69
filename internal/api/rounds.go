package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RoundInfo is the immutable snapshot of the current round as reported by
// the service. Number is the ordering key; CloseTime drives wake scheduling
// and is re-read on every poll because the service may move it.
type RoundInfo struct {
	Number      int
	OpenTime    time.Time
	CloseTime   time.Time
	ResolveTime time.Time
}

const roundDetailsQuery = `
    query($tournament: Int!) {
      rounds(tournament: $tournament, number: 0) {
        number
        openTime
        closeTime
        resolveTime
      }
    }`

type rawRound struct {
	Number      int    `json:"number"`
	OpenTime    string `json:"openTime"`
	CloseTime   string `json:"closeTime"`
	ResolveTime string `json:"resolveTime"`
}

// CurrentRoundDetails requests the number and timing of the current round.
func (c *Client) CurrentRoundDetails(ctx context.Context) (RoundInfo, error) {
	const op = "current_round_details"

	data, err := c.rawQuery(ctx, op, roundDetailsQuery, map[string]any{"tournament": c.tournament}, false)
	if err != nil {
		return RoundInfo{}, err
	}

	var payload struct {
		Rounds []rawRound `json:"rounds"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return RoundInfo{}, fmt.Errorf("%s: decode payload: %w", op, err)
	}
	if len(payload.Rounds) == 0 {
		return RoundInfo{}, fmt.Errorf("%s: service reported no current round", op)
	}

	return payload.Rounds[0].toRoundInfo()
}

// CurrentRoundNumber requests only the current round number.
func (c *Client) CurrentRoundNumber(ctx context.Context) (int, error) {
	info, err := c.CurrentRoundDetails(ctx)
	if err != nil {
		return 0, err
	}
	return info.Number, nil
}

func (r rawRound) toRoundInfo() (RoundInfo, error) {
	info := RoundInfo{Number: r.Number}
	for _, f := range []struct {
		raw  string
		dest *time.Time
		name string
	}{
		{r.OpenTime, &info.OpenTime, "openTime"},
		{r.CloseTime, &info.CloseTime, "closeTime"},
		{r.ResolveTime, &info.ResolveTime, "resolveTime"},
	} {
		if f.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, f.raw)
		if err != nil {
			return RoundInfo{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dest = t
	}
	return info, nil
}
