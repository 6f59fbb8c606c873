package app

import (
	"context"
	"time"

	"github.com/ioan45/open-my-files/store"
)

// AutoSaver saves the document on a fixed interval while the auto_save
// setting is on and there are unsaved edits.
type AutoSaver struct {
	app      *App
	interval time.Duration
}

func NewAutoSaver(a *App, interval time.Duration) *AutoSaver {
	if interval <= 0 {
		interval = a.cfg.AutoSaveInterval()
	}
	return &AutoSaver{app: a, interval: interval}
}

// Run ticks until ctx is cancelled. It always returns nil so it can run
// inside an errgroup next to the UI.
func (s *AutoSaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one auto-save check.
func (s *AutoSaver) Tick(ctx context.Context) {
	if !s.app.store.Setting(store.SettingAutoSave) || !s.app.store.Dirty() {
		return
	}
	if _, err := s.app.Save(ctx, true); err != nil {
		log.WithError(err).Warn("Auto save failed")
	}
}
