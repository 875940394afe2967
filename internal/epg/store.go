package epg

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/models"
	"github.com/stwalsh4118/epgrab/internal/provider"
)

// DayBatch is the outcome of fetching one channel for one broadcast day
type DayBatch struct {
	ChannelID string
	// Day is the broadcast day in models.BroadcastDayLayout.
	Day    string
	Result provider.DayResult
}

// Store persists guide data. Only days that fetched successfully replace what
// is stored, so a failed fetch keeps the previous run's programmes.
type Store struct {
	repos  *db.Repositories
	source string
	loc    *time.Location
	log    zerolog.Logger
}

// NewStore creates a store for source. Programme times are restored in loc.
func NewStore(repos *db.Repositories, source string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		repos:  repos,
		source: source,
		loc:    loc,
		log:    logger.With("store"),
	}
}

// Repositories returns the underlying repositories
func (s *Store) Repositories() *db.Repositories {
	return s.repos
}

// SaveChannels upserts channel metadata without touching programmes
func (s *Store) SaveChannels(ctx context.Context, channels []*provider.Channel) error {
	rows := make([]*models.Channel, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, models.NewChannel(s.source, *ch))
	}
	if err := s.repos.Channels.Upsert(ctx, rows...); err != nil {
		return fmt.Errorf("failed to save channels: %w", err)
	}
	return nil
}

// Prune drops stored programmes of broadcast days before the day holding first
func (s *Store) Prune(ctx context.Context, first time.Time) (int64, error) {
	day := first.In(s.loc).Format(models.BroadcastDayLayout)
	removed, err := s.repos.Programmes.DeleteBefore(ctx, day)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info().Str("before", day).Int64("removed", removed).Msg("Pruned past programmes")
	}
	return removed, nil
}

// SaveGuide stores channels and, per channel, replaces every successfully
// fetched day inside one transaction.
func (s *Store) SaveGuide(ctx context.Context, channels []*provider.Channel, batches []DayBatch) (int, error) {
	byChannel := make(map[string]map[string][]*models.Programme)
	for _, b := range batches {
		if b.Result.Status != provider.StatusOK {
			continue
		}
		days, ok := byChannel[b.ChannelID]
		if !ok {
			days = make(map[string][]*models.Programme)
			byChannel[b.ChannelID] = days
		}
		for _, p := range b.Result.Programmes {
			days[b.Day] = append(days[b.Day], models.NewProgramme(b.Day, p))
		}
	}

	saved := 0
	for _, ch := range channels {
		row := models.NewChannel(s.source, *ch)
		days := byChannel[ch.ID]
		err := s.repos.DB().WithTransaction(ctx, func(tx *db.DB) error {
			if err := s.repos.Channels.WithTx(tx).Upsert(ctx, row); err != nil {
				return err
			}
			return s.repos.Programmes.WithTx(tx).ReplaceDays(ctx, ch.ID, days)
		})
		if err != nil {
			return saved, fmt.Errorf("failed to save guide of %s: %w", ch.ID, err)
		}
		for _, ps := range days {
			saved += len(ps)
		}
	}

	s.log.Info().
		Int("channels", len(channels)).
		Int("programmes", saved).
		Msg("Guide saved to database")
	return saved, nil
}

// LoadGuide reads every stored channel with its programmes
func (s *Store) LoadGuide(ctx context.Context) ([]provider.Channel, error) {
	rows, err := s.repos.Channels.List(ctx)
	if err != nil {
		return nil, err
	}
	programmes, err := s.repos.Programmes.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rows))
	channels := make([]provider.Channel, 0, len(rows))
	for _, row := range rows {
		index[row.ID] = len(channels)
		channels = append(channels, row.ToProvider())
	}
	for _, p := range programmes {
		i, ok := index[p.ChannelID]
		if !ok {
			continue
		}
		channels[i].AppendProgrammes(p.ToProvider(s.loc))
	}

	s.log.Debug().
		Int("channels", len(channels)).
		Int("programmes", len(programmes)).
		Msg("Guide loaded from database")
	return channels, nil
}

// LoadChannelProgrammes reads one stored channel and its programmes for day.
// An empty day loads every stored day.
func (s *Store) LoadChannelProgrammes(ctx context.Context, channelID, day string) (*provider.Channel, error) {
	row, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	programmes, err := s.repos.Programmes.ListByChannel(ctx, channelID, day)
	if err != nil {
		return nil, err
	}

	ch := row.ToProvider()
	for _, p := range programmes {
		ch.AppendProgrammes(p.ToProvider(s.loc))
	}
	return &ch, nil
}

// StartRun records a new running ingest run
func (s *Store) StartRun(ctx context.Context) (*models.IngestRun, error) {
	run := models.NewIngestRun(s.source)
	if err := s.repos.Runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun stores a run's final status and counters
func (s *Store) FinishRun(ctx context.Context, run *models.IngestRun) error {
	return s.repos.Runs.Update(ctx, run)
}
