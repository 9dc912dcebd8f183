package models

import "errors"

// ErrMissingCredentials is returned when a discovery is requested for a user
// that never registered. Surfaced as-is to interactive callers; the scheduler
// never hits it because it only enumerates registered users.
var ErrMissingCredentials = errors.New("you need to set your Last.fm username and API key")

// Credentials ties a Discord identity to a Last.fm account.
type Credentials struct {
	DiscordID int64
	Username  string
	APIKey    string
}

// Track is a candidate or delivered unit. Artist and Name together identify a
// track in the seen ledger, so both are kept exactly as Last.fm reports them.
type Track struct {
	Artist string
	Name   string
}

// TimeRange is one of the Last.fm top-tracks listening windows.
type TimeRange string

const (
	RangeWeek     TimeRange = "7day"
	RangeMonth    TimeRange = "1month"
	RangeQuarter  TimeRange = "3month"
	RangeHalfYear TimeRange = "6month"
	RangeYear     TimeRange = "12month"
	RangeOverall  TimeRange = "overall"
)

// TimeRanges lists the windows from shortest to longest. The order is the
// discovery priority: shorter windows reflect what a user is currently into,
// so they are checked first.
var TimeRanges = []TimeRange{
	RangeWeek,
	RangeMonth,
	RangeQuarter,
	RangeHalfYear,
	RangeYear,
	RangeOverall,
}
