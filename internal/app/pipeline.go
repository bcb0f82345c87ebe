package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/store"
)

// watch reacts to control changes until ctx ends:
//  1. wake the render loop so the change shows on the next frame even while
//     the loop idles at the slow rate
//  2. persist the filter once changes settle for persistDelay
//
// saved is the filter already in the store. On exit the current filter is
// written if it differs.
func (a *App) watch(ctx context.Context, updates <-chan control.Snapshot, saved savedFilter) {
	defer close(a.watchDone)

	var flush <-chan time.Time
	save := func() {
		if f := a.stateFilter(a.state.Snapshot()); f != saved {
			a.persist(f)
			saved = f
		}
	}

	for {
		select {
		case <-ctx.Done():
			save()
			return

		case <-updates:
			a.loop.Wake()
			if flush == nil {
				flush = time.After(persistDelay)
			}

		case <-flush:
			flush = nil
			save()
		}
	}
}

func (a *App) stateFilter(snap control.Snapshot) savedFilter {
	return savedFilter{Band: snap.Params.Band, Blend: snap.Params.Blend}
}

// persist writes f as the saved filter. It uses its own context so the
// final flush still runs while the app shuts down.
func (a *App) persist(f savedFilter) {
	if a.config.Backend == nil {
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		a.log.WithError(err).Warn("encoding filter")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
	defer cancel()
	if err := a.config.Backend.Settings().Set(ctx, store.SettingFilter, string(data)); err != nil {
		a.log.WithError(err).Warn("saving filter")
		return
	}
	a.log.Debug("filter saved")
}
