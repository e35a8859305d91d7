package main

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type sourceCache struct {
	store           *relationalStore
	refreshInterval time.Duration
	logger          zerolog.Logger
	sources         atomic.Pointer[map[string]sourceRow] // keyed by upper-cased source code
}

func newSourceCache(store *relationalStore, interval time.Duration, logger zerolog.Logger) *sourceCache {
	f := sourceCache{
		store:           store,
		refreshInterval: interval,
		logger:          logger,
	}

	return &f
}

func (f *sourceCache) start() {
	if f.store == nil {
		f.logger.Warn().Msg("[CACHE] no relational store; source cache disabled")
		return
	}

	// load once before serving so journal codes resolve on the first request
	if err := f.refreshSources(context.Background()); err != nil {
		f.logger.Error().Err(err).Msg("[CACHE] initial source load failed")
	}

	go f.monitorSources()
}

func (f *sourceCache) monitorSources() {
	for {
		f.logger.Info().Msgf("[CACHE] refresh scheduled in %d seconds", int(f.refreshInterval/time.Second))
		time.Sleep(f.refreshInterval)

		if err := f.refreshSources(context.Background()); err != nil {
			f.logger.Error().Err(err).Msg("[CACHE] source refresh failed")
		}
	}
}

func (f *sourceCache) refreshSources(ctx context.Context) error {
	f.logger.Info().Msg("[CACHE] refreshing sources...")

	if f.store == nil {
		return errors.New("no relational store configured")
	}

	rows, err := f.store.GetAllSources(ctx)
	if err != nil {
		return err
	}

	f.setSources(rows)

	return nil
}

func (f *sourceCache) setSources(rows []sourceRow) {
	sourceMap := make(map[string]sourceRow)

	for _, row := range rows {
		sourceMap[strings.ToUpper(row.SrcCode)] = row
	}

	f.sources.Store(&sourceMap)

	getServiceMetrics().sourcesCached.Set(float64(len(sourceMap)))

	f.logger.Info().Int("sources", len(sourceMap)).Msg("[CACHE] sources loaded")
}

func (f *sourceCache) lookup(code string) (sourceRow, bool) {
	if f == nil {
		return sourceRow{}, false
	}

	// grab the current map in case it is swapped while we are running
	current := f.sources.Load()
	if current == nil {
		return sourceRow{}, false
	}

	row, ok := (*current)[strings.ToUpper(strings.TrimSpace(code))]

	return row, ok
}

func (f *sourceCache) isSourceCode(code string) bool {
	_, ok := f.lookup(code)
	return ok
}
