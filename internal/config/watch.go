package config

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/pixstorm/internal/config/watcher"
)

// ErrNoPath is returned by Watch when Options has no file path.
var ErrNoPath = errors.New("no config file to watch")

// Reload is the outcome of reloading the config file after a change.
type Reload struct {
	Config *Config
	Err    error
	Time   time.Time
}

// Watch reloads the config file described by opts whenever it changes.
// Results arrive on the returned channel, which is closed once ctx is
// done. If the consumer falls behind, only the newest result is kept.
func Watch(ctx context.Context, opts Options, debounce time.Duration) (<-chan Reload, error) {
	if opts.Path == "" {
		return nil, ErrNoPath
	}

	w, err := watcher.New(watcher.WithDebounce(debounce))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(opts.Path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	out := make(chan Reload, 1)
	events := make(chan watcher.Event, 1)
	w.OnChange(func(ev watcher.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	go func() {
		defer close(out)
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
					continue
				}
				cfg, err := Load(opts)
				deliver(out, Reload{Config: cfg, Err: err, Time: ev.Time})
			}
		}
	}()

	return out, nil
}

// deliver replaces any unread result with r.
func deliver(out chan Reload, r Reload) {
	for {
		select {
		case out <- r:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
