package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"savekeep/internal/watch"
)

// StatusFunc receives a fresh status view after every rescan.
type StatusFunc func([]*ProfileStatus)

// Watch reports profile status whenever the save root changes and runs
// quicksave/quick-restore on the hotkey signals until ctx is canceled.
// key selects the hotkey profile; empty means whichever profile was saved
// most recently. Hotkey failures are logged and never end the watch.
func (a *SKApp) Watch(ctx context.Context, key string, onStatus StatusFunc) error {
	d := NewDispatcher(a.logger, 32)
	d.Start()
	defer d.Stop()

	refresh := func() error {
		statuses, err := a.Status(ctx)
		if err != nil {
			return fmt.Errorf("refreshing status: %w", err)
		}
		onStatus(statuses)
		return nil
	}
	d.Submit("refresh", refresh)

	w, err := watch.New(a.cfg.Saves.Root, a.cfg.Watch.Debounce(), func(paths []string) {
		a.logger.Debug("save root changed", "paths", len(paths))
		d.Submit("refresh", refresh)
	}, a.logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	actions := hotkeySignals()
	sigs := make(chan os.Signal, 4)
	if len(actions) > 0 {
		keys := make([]os.Signal, 0, len(actions))
		for s := range actions {
			keys = append(keys, s)
		}
		signal.Notify(sigs, keys...)
		defer signal.Stop(sigs)
	}

	a.logger.Info("watching save root", "root", a.cfg.Saves.Root, "debounce", a.cfg.Watch.Debounce())
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			action := actions[sig]
			d.Submit(action.String(), func() error {
				return a.RunHotkey(ctx, key, action)
			})
		}
	}
}

// RunHotkey performs a hotkey action as its own recorded operation.
func (a *SKApp) RunHotkey(ctx context.Context, key string, action HotkeyAction) error {
	p, err := a.Profile(ctx, key)
	if err != nil {
		return err
	}

	op, err := a.db.CreateOperation(action.String(), p.ID)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	status := StatusSuccess

	switch action {
	case HotkeyQuickSave:
		_, err = a.service.QuickSave(p)
	case HotkeyQuickRestore:
		_, err = a.service.QuickRestore(p)
	default:
		err = fmt.Errorf("unknown hotkey action %d", action)
	}
	if err != nil {
		status = StatusError
	}

	if ferr := a.db.FinishOperation(op.ID, status); ferr != nil {
		a.logger.Warn("finishing hotkey operation", "error", ferr)
	}
	return err
}
