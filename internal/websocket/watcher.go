package websocket

import (
	"sync"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/tracking"
)

// watcher delivers throttled samples to one subscriber on its own goroutine,
// so a slow store write never blocks the device read loop.
type watcher struct {
	opts     tracking.WatchOptions
	onSample func(models.LocationSample)

	samples  chan models.LocationSample
	done     chan struct{}
	stopOnce sync.Once

	// Guarded by the hub lock
	last     *models.GeoPoint
	lastSent time.Time
}

func newWatcher(opts tracking.WatchOptions, onSample func(models.LocationSample)) *watcher {
	return &watcher{
		opts:     opts,
		onSample: onSample,
		samples:  make(chan models.LocationSample, 16),
		done:     make(chan struct{}),
	}
}

// accept applies the watch thresholds: the first sample always passes, later
// ones need both the time and the distance interval to have elapsed.
func (w *watcher) accept(sample models.LocationSample, now time.Time) bool {
	point := models.GeoPoint{Latitude: sample.Latitude, Longitude: sample.Longitude}
	if w.last != nil {
		if now.Sub(w.lastSent) < w.opts.TimeInterval {
			return false
		}
		if models.DistanceMeters(*w.last, point) < w.opts.DistanceInterval {
			return false
		}
	}
	w.last = &point
	w.lastSent = now
	return true
}

func (w *watcher) offer(sample models.LocationSample, now time.Time) {
	if !w.accept(sample, now) {
		return
	}
	select {
	case w.samples <- sample:
	default:
	}
}

func (w *watcher) run() {
	for {
		select {
		case s := <-w.samples:
			w.onSample(s)
		case <-w.done:
			return
		}
	}
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}
