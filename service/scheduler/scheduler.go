package scheduler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/herald-fm/herald/db"
	"github.com/herald-fm/herald/models"
	"github.com/herald-fm/herald/service/discord"
	"github.com/herald-fm/herald/service/discovery"
	"github.com/herald-fm/herald/service/webhook"
)

// Notifier dispatches one notification per discovered track.
type Notifier interface {
	Notify(ctx context.Context, session *http.Client, sender webhook.Sender, track models.Track) error
}

// Resolver turns a Discord id into a display identity. May be absent.
type Resolver interface {
	FetchUser(ctx context.Context, session *http.Client, userID int64) (*discord.User, error)
}

// Service runs the daily sweep: once per interval, walk every registered
// user, discover at most one new track each and notify. A sweep is a single
// goroutine processing users sequentially, so no two discoveries race and no
// two sweeps overlap.
type Service struct {
	db        *db.DB
	discovery *discovery.Service
	notifier  Notifier
	resolver  Resolver
	logger    *log.Logger

	now        func() time.Time
	newSession func() *http.Client
}

func New(database *db.DB, disc *discovery.Service, notifier Notifier, resolver Resolver, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		db:        database,
		discovery: disc,
		notifier:  notifier,
		resolver:  resolver,
		logger:    logger,
		now:       time.Now,
		newSession: func() *http.Client {
			return &http.Client{Timeout: 15 * time.Second}
		},
	}
}

// Start runs one sweep immediately, then one per interval, in a background
// goroutine until ctx is cancelled. Even if a sweep overruns into the next
// firing, the delivered-today check keeps double-processing harmless.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		s.RunSweep(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Printf("Daily sweep stopped: %v", ctx.Err())
				return
			case <-ticker.C:
				s.RunSweep(ctx)
			}
		}
	}()

	s.logger.Printf("Daily sweep started with interval %v", interval)
}

// RunSweep processes every registered user once. One shared session serves
// all network calls in the sweep and is released on every exit path. Any
// single user's failure is logged and never aborts the rest of the sweep.
func (s *Service) RunSweep(ctx context.Context) {
	users, err := s.db.ListCredentials()
	if err != nil {
		s.logger.Printf("Error listing users for sweep: %v", err)
		return
	}

	session := s.newSession()
	defer session.CloseIdleConnections()

	s.logger.Printf("Starting sweep for %d users...", len(users))
	for _, creds := range users {
		if ctx.Err() != nil {
			s.logger.Printf("Context cancelled during sweep at user %d.", creds.DiscordID)
			return
		}
		if err := s.sweepUser(ctx, session, creds); err != nil {
			s.logger.Printf("Error while fetching track for %d: %v", creds.DiscordID, err)
			continue
		}
	}
	s.logger.Printf("Finished sweep.")
}

// sweepUser delivers today's track for one user, or does nothing if the user
// was already served today or has nothing unseen left.
func (s *Service) sweepUser(ctx context.Context, session *http.Client, creds *models.Credentials) error {
	today := s.now().UTC().Format(db.DateFormat)

	done, err := s.db.DeliveredOn(creds.DiscordID, today)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	track, err := s.discovery.Discover(ctx, session, creds)
	if err != nil {
		return err
	}
	if track == nil {
		return nil
	}

	sender := webhook.Sender{
		UserID:      creds.DiscordID,
		DisplayName: creds.Username,
	}
	if s.resolver != nil {
		user, err := s.resolver.FetchUser(ctx, session, creds.DiscordID)
		if err != nil {
			// The track is already in the ledger at this point; skipping the
			// notification here is the documented at-most-once tradeoff.
			return err
		}
		sender.DisplayName = user.DisplayName()
		sender.AvatarURL = user.AvatarURL()
		sender.AccentColour = user.AccentColor
	}

	return s.notifier.Notify(ctx, session, sender, *track)
}
