package discovery

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/herald-fm/herald/db"
	"github.com/herald-fm/herald/models"
	"github.com/herald-fm/herald/service/lastfm"
)

// Service finds the first track a user has listened to that has never been
// surfaced before. Time ranges are walked shortest-first and tracks within a
// range in rank order, so the strongest "currently into this" signal wins.
type Service struct {
	db     *db.DB
	lastfm *lastfm.Service
	logger *log.Logger

	// now is swapped out in tests to cross calendar days.
	now func() time.Time
}

func New(database *db.DB, lfm *lastfm.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		db:     database,
		lastfm: lfm,
		logger: logger,
		now:    time.Now,
	}
}

// Discover returns the first unseen track for the user, recording it in the
// ledger before returning. Returns nil, nil when every fetched track has
// already been seen: no new track today is not an error.
//
// The ledger insert and the caller's notification dispatch are two separate
// steps. A crash between them permanently marks the track seen without the
// user ever hearing about it. That is the accepted tradeoff: no-duplicate
// delivery is preferred over guaranteed delivery.
func (s *Service) Discover(ctx context.Context, session *http.Client, creds *models.Credentials) (*models.Track, error) {
	seen, err := s.db.SeenTracks(creds.DiscordID)
	if err != nil {
		return nil, err
	}

	for _, period := range models.TimeRanges {
		tracks, err := s.lastfm.TopTracks(ctx, session, creds, period)
		if err != nil {
			return nil, err
		}

		for _, track := range tracks {
			if _, ok := seen[track]; ok {
				continue
			}

			date := s.now().UTC().Format(db.DateFormat)
			if err := s.db.RecordSeen(creds.DiscordID, track, date); err != nil {
				return nil, err
			}

			s.logger.Printf("Discovered %q by %q for user %d (period %s)",
				track.Name, track.Artist, creds.DiscordID, period)
			return &track, nil
		}
	}

	return nil, nil
}
