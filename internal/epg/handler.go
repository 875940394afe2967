// Package epg drives guide collection: it lists a provider's channels, selects
// the requested ones, fetches each (channel, day) of the fetch window exactly
// once and hands the result to the store and the XMLTV writer.
package epg

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/metrics"
	"github.com/stwalsh4118/epgrab/internal/models"
	"github.com/stwalsh4118/epgrab/internal/provider"
)

const defaultFetchLimit = 2

// Options configures a Handler
type Options struct {
	// FetchLimit is the number of days fetched, starting today.
	FetchLimit int
	// Parallel bounds how many channels are fetched at once. 1 is sequential.
	Parallel int
	// Requested lists service ids to collect. Empty collects every channel.
	Requested []string
	// IDFormat renders XMLTV channel ids, see FormatID.
	IDFormat string
	// ChannelFile is read when the provider's channel listing yields nothing.
	ChannelFile string
	// Location is the broadcast calendar's zone. Nil uses the provider's.
	Location *time.Location
}

// Stats summarizes the day fetches of a run
type Stats struct {
	Days       int `json:"days"`
	EmptyDays  int `json:"empty_days"`
	FailedDays int `json:"failed_days"`
	Programmes int `json:"programmes"`
	Skipped    int `json:"skipped"`
}

func (s *Stats) add(res provider.DayResult) {
	s.Days++
	switch res.Status {
	case provider.StatusEmpty:
		s.EmptyDays++
	case provider.StatusFailed:
		s.FailedDays++
	}
	s.Programmes += len(res.Programmes)
	s.Skipped += res.Skipped
}

// Result is the outcome of one ingest run
type Result struct {
	Run      *models.IngestRun
	Channels []*provider.Channel
	Batches  []DayBatch
	Stats    Stats
}

type fetchKey struct {
	channelID string
	day       string
}

// Handler runs ingest for one provider. Only one Run executes at a time.
type Handler struct {
	prov    provider.Provider
	opts    Options
	store   *Store
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger

	running atomic.Bool

	mu      sync.Mutex
	fetched map[fetchKey]struct{}
}

// NewHandler creates a handler. store and m may be nil.
func NewHandler(prov provider.Provider, opts Options, store *Store, m *metrics.Metrics) *Handler {
	if opts.FetchLimit < 1 {
		opts.FetchLimit = defaultFetchLimit
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}

	loc := opts.Location
	if loc == nil {
		loc = provider.Location(prov)
	}

	return &Handler{
		prov:    prov,
		opts:    opts,
		store:   store,
		metrics: m,
		loc:     loc,
		now:     time.Now,
		log:     logger.With("epg").With().Str("source", prov.Name()).Logger(),
		fetched: make(map[fetchKey]struct{}),
	}
}

// Source returns the provider name
func (h *Handler) Source() string {
	return h.prov.Name()
}

// Location returns the broadcast calendar's zone
func (h *Handler) Location() *time.Location {
	return h.loc
}

// Store returns the handler's store, or nil
func (h *Handler) Store() *Store {
	return h.store
}

// Running reports whether a run is in progress
func (h *Handler) Running() bool {
	return h.running.Load()
}

// Days returns the fetch window: midnight of today and the following
// FetchLimit-1 days, in the broadcast zone.
func (h *Handler) Days() []time.Time {
	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	days := make([]time.Time, 0, h.opts.FetchLimit)
	for d := 0; d < h.opts.FetchLimit; d++ {
		days = append(days, today.AddDate(0, 0, d))
	}
	return days
}

// LoadChannels lists the provider's service channels, falling back to the
// channel file when the listing yields nothing.
func (h *Handler) LoadChannels(ctx context.Context) ([]provider.ServiceChannel, error) {
	res := h.prov.ListChannels(ctx)
	h.metrics.SetChannels(h.Source(), "listed", len(res.Channels))
	if res.Status == provider.StatusOK {
		return res.Channels, nil
	}

	if h.opts.ChannelFile != "" {
		channels, err := ReadChannelFile(h.opts.ChannelFile, h.Source())
		if err != nil {
			h.log.Warn().Err(err).Str("file", h.opts.ChannelFile).Msg("Channel file fallback unavailable")
		} else if len(channels) > 0 {
			h.log.Warn().
				Str("listing", res.Status.String()).
				Str("file", h.opts.ChannelFile).
				Int("channels", len(channels)).
				Msg("Channel listing yielded nothing, using channel file")
			return channels, nil
		}
	}

	if res.Err != nil {
		return nil, fmt.Errorf("%w: %s listing %s: %w", ErrNoChannels, h.Source(), res.Status, res.Err)
	}
	return nil, fmt.Errorf("%w: %s listing %s", ErrNoChannels, h.Source(), res.Status)
}

// UpdateChannels lists every service channel and stores it in the channel
// file and the database, whichever are configured.
func (h *Handler) UpdateChannels(ctx context.Context) ([]provider.ServiceChannel, error) {
	res := h.prov.ListChannels(ctx)
	h.metrics.SetChannels(h.Source(), "listed", len(res.Channels))
	if res.Status != provider.StatusOK {
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s listing %s: %w", ErrNoChannels, h.Source(), res.Status, res.Err)
		}
		return nil, fmt.Errorf("%w: %s listing %s", ErrNoChannels, h.Source(), res.Status)
	}

	if h.opts.ChannelFile != "" {
		if err := WriteChannelFile(h.opts.ChannelFile, h.Source(), res.Channels); err != nil {
			return nil, err
		}
		h.log.Info().Str("file", h.opts.ChannelFile).Int("channels", len(res.Channels)).Msg("Channel file written")
	}

	if h.store != nil {
		all, _ := SelectChannels(h.Source(), h.opts.IDFormat, res.Channels, nil)
		if err := h.store.SaveChannels(ctx, all); err != nil {
			return nil, err
		}
	}
	return res.Channels, nil
}

// FetchProgrammes fetches the fetch window for every channel and appends the
// programmes to each channel. A (channel, day) already fetched since the last
// Run started is skipped. Batches come back in channel order, then day order.
func (h *Handler) FetchProgrammes(ctx context.Context, channels []*provider.Channel) ([]DayBatch, Stats) {
	days := h.Days()
	perChannel := make([][]DayBatch, len(channels))

	fetchChannel := func(ctx context.Context, i int) {
		ch := channels[i]
		for _, day := range days {
			if ctx.Err() != nil {
				return
			}
			key := fetchKey{channelID: ch.ID, day: day.Format(models.BroadcastDayLayout)}
			if !h.markFetched(key) {
				h.log.Debug().Str("channel", ch.Name).Str("day", key.day).Msg("Day already fetched, skipping")
				continue
			}

			res := h.prov.FetchDay(ctx, *ch, day)
			h.metrics.ObserveDay(h.Source(), res)
			ch.AppendProgrammes(res.Programmes...)
			perChannel[i] = append(perChannel[i], DayBatch{ChannelID: ch.ID, Day: key.day, Result: res})
		}
	}

	if h.opts.Parallel <= 1 {
		for i := range channels {
			fetchChannel(ctx, i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.opts.Parallel)
		for i := range channels {
			g.Go(func() error {
				fetchChannel(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var batches []DayBatch
	var stats Stats
	for _, bs := range perChannel {
		for _, b := range bs {
			stats.add(b.Result)
			batches = append(batches, b)
		}
	}
	return batches, stats
}

// Run performs one complete ingest: list, select, fetch and, when a store is
// configured, save. It returns ErrRunInProgress if another run is active.
func (h *Handler) Run(ctx context.Context) (*Result, error) {
	if !h.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer h.running.Store(false)
	return h.runLocked(ctx)
}

// Start begins a run in the background and returns at once. It returns
// ErrRunInProgress if another run is active. onDone, if set, is called with
// the outcome before the run is marked finished.
func (h *Handler) Start(ctx context.Context, onDone func(*Result, error)) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer h.running.Store(false)
		res, err := h.runLocked(ctx)
		if onDone != nil {
			onDone(res, err)
		}
	}()
	return nil
}

func (h *Handler) runLocked(ctx context.Context) (*Result, error) {
	h.resetFetched()

	var run *models.IngestRun
	if h.store != nil {
		var err error
		if run, err = h.store.StartRun(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Failed to record ingest run start")
			run = nil
		}
	}
	if run == nil {
		run = models.NewIngestRun(h.Source())
	}

	result := &Result{Run: run}
	err := h.run(ctx, result)

	run.Channels = len(result.Channels)
	run.Programmes = result.Stats.Programmes
	run.Skipped = result.Stats.Skipped
	run.FailedDays = result.Stats.FailedDays
	run.Finish(err)
	h.metrics.ObserveRun(h.Source(), run.Status, run.Duration().Seconds(), float64(run.FinishedAt.Unix()))

	if h.store != nil {
		if ferr := h.store.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
			h.log.Warn().Err(ferr).Str("run_id", run.ID.String()).Msg("Failed to record ingest run result")
		}
	}

	event := h.log.Info()
	if err != nil {
		event = h.log.Error().Err(err)
	}
	event.
		Str("run_id", run.ID.String()).
		Int("channels", run.Channels).
		Int("days", result.Stats.Days).
		Int("failed_days", result.Stats.FailedDays).
		Int("programmes", run.Programmes).
		Int("skipped", run.Skipped).
		Dur("duration", run.Duration()).
		Msg("Ingest run finished")

	return result, err
}

func (h *Handler) run(ctx context.Context, result *Result) error {
	services, err := h.LoadChannels(ctx)
	if err != nil {
		return err
	}

	channels, missing := SelectChannels(h.Source(), h.opts.IDFormat, services, h.opts.Requested)
	for _, id := range missing {
		h.log.Warn().Str("service_id", id).Msg("Requested channel is not listed")
	}
	h.metrics.SetChannels(h.Source(), "selected", len(channels))
	if len(channels) == 0 {
		return fmt.Errorf("%w: none of the requested channels are listed", ErrNoChannels)
	}

	result.Channels = channels
	result.Batches, result.Stats = h.FetchProgrammes(ctx, channels)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingest run interrupted: %w", err)
	}

	if h.store != nil {
		if _, err := h.store.SaveGuide(ctx, channels, result.Batches); err != nil {
			return err
		}
		// Days before the fetch window are never refreshed again
		if days := h.Days(); len(days) > 0 {
			if _, err := h.store.Prune(ctx, days[0]); err != nil {
				h.log.Warn().Err(err).Msg("Failed to prune past programmes")
			}
		}
	}
	return nil
}

func (h *Handler) markFetched(key fetchKey) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fetched[key]; ok {
		return false
	}
	h.fetched[key] = struct{}{}
	return true
}

func (h *Handler) resetFetched() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetched = make(map[fetchKey]struct{})
}
