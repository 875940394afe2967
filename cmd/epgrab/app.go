package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/config"
	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/metrics"
	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/provider/lguplus"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

// app holds the collaborators shared by every command
type app struct {
	cfg     *config.Config
	db      *db.DB
	redis   *cache.Redis
	breaker *transport.CircuitBreaker
	metrics *metrics.Metrics
	ingest  *epg.Handler
}

// newApp wires the provider, store and cache from cfg. requireDB opens the
// database even when database.enabled is false.
func newApp(cfg *config.Config, requireDB bool) (*app, error) {
	fetcher := transport.New(transport.Options{
		Timeout: cfg.Transport.Timeout,
		Headers: transport.DefaultHeaders(
			cfg.Transport.UserAgent,
			cfg.Transport.UnityVersion,
			cfg.Transport.AcceptLanguage,
			cfg.Transport.Referer,
		),
		RateLimit:        cfg.Transport.RateLimit,
		RateBurst:        cfg.Transport.RateBurst,
		CircuitThreshold: cfg.Transport.CircuitThreshold,
		CircuitReset:     cfg.Transport.CircuitReset,
	})

	registry, err := provider.NewRegistry(lguplus.New(fetcher, lguplus.Config{
		ChannelsURL: cfg.Provider.ChannelsURL,
		ScheduleURL: cfg.Provider.ScheduleURL,
	}))
	if err != nil {
		return nil, err
	}
	prov, ok := registry.Get(cfg.Provider.Name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", cfg.Provider.Name, strings.Join(registry.Names(), ", "))
	}

	a := &app{cfg: cfg, breaker: fetcher.Breaker(), metrics: metrics.New()}

	var store *epg.Store
	if cfg.Database.Enabled || requireDB {
		database, err := db.Open(cfg.Database.Path, cfg.Database.MigrationsPath, db.Options{
			EnableWAL:         cfg.Database.EnableWAL,
			ConnectionTimeout: cfg.Database.ConnectionTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = database

		store = epg.NewStore(db.NewRepositories(database), prov.Name(), provider.Location(prov))
		logger.Log.Info().Str("path", cfg.Database.Path).Msg("Database ready")
	}

	if cfg.Cache.URL != "" {
		r, err := cache.New(cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to configure cache: %w", err)
		}
		a.redis = r
	}

	a.ingest = epg.NewHandler(prov, epg.Options{
		FetchLimit:  cfg.Provider.FetchLimit,
		Parallel:    cfg.Provider.Parallel,
		Requested:   cfg.Channels.Requested,
		IDFormat:    cfg.Channels.IDFormat,
		ChannelFile: cfg.Channels.File,
	}, store, a.metrics)
	return a, nil
}

// Close releases the database and cache connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// runGuide collects the guide and writes it to the configured output
func (a *app) runGuide(ctx context.Context) error {
	res, err := a.ingest.Run(ctx)
	if err != nil {
		return err
	}

	tv := epg.BuildGuide(epg.Values(res.Channels), epg.XMLTVOptions(a.ingest.Source()))
	if err := epg.WriteGuide(a.cfg.Output.XMLFile, a.cfg.Output.XMLSock, tv); err != nil {
		return err
	}
	a.invalidateGuide(ctx)

	logger.Log.Info().
		Str("output", outputName(a.cfg.Output)).
		Int("channels", len(tv.Channels)).
		Int("programmes", len(tv.Programmes)).
		Msg("XMLTV guide written")
	return nil
}

// fromDB writes the stored guide to the configured output
func (a *app) fromDB(ctx context.Context) error {
	store := a.ingest.Store()
	if store == nil {
		return epg.ErrNoStore
	}
	channels, err := store.LoadGuide(ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return errors.New("database holds no channels, run epgrab run with database.enabled first")
	}

	tv := epg.BuildGuide(channels, epg.XMLTVOptions(a.ingest.Source()))
	if err := epg.WriteGuide(a.cfg.Output.XMLFile, a.cfg.Output.XMLSock, tv); err != nil {
		return err
	}

	logger.Log.Info().
		Str("output", outputName(a.cfg.Output)).
		Int("channels", len(tv.Channels)).
		Int("programmes", len(tv.Programmes)).
		Msg("XMLTV guide written from database")
	return nil
}

// updateChannels refreshes the channel file and stored channel metadata
func (a *app) updateChannels(ctx context.Context) error {
	channels, err := a.ingest.UpdateChannels(ctx)
	if err != nil {
		return err
	}
	logger.Log.Info().Int("channels", len(channels)).Msg("Channels updated")
	return nil
}

func (a *app) invalidateGuide(ctx context.Context) {
	if a.redis == nil {
		return
	}
	guide := cache.NewGuideCache(a.redis, a.ingest.Source(), a.cfg.Cache.TTL)
	if err := guide.Invalidate(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to invalidate cached guide")
	}
}

func outputName(out config.OutputConfig) string {
	switch {
	case out.XMLFile != "":
		return out.XMLFile
	case out.XMLSock != "":
		return "unix:" + out.XMLSock
	default:
		return "stdout"
	}
}
