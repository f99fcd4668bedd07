package snapshot

import (
	"go.uber.org/zap"

	"github.com/dogpark/server/internal/app"
)

// Autosaver writes periodic snapshots driven by the game tick. With a
// period of zero it only saves when Save is called explicitly (the
// shutdown path).
type Autosaver struct {
	app      *app.App
	path     string
	periodMs float64
	elapsed  float64
	log      *zap.Logger
}

func NewAutosaver(a *app.App, path string, periodMs float64, log *zap.Logger) *Autosaver {
	return &Autosaver{app: a, path: path, periodMs: periodMs, log: log}
}

// OnTick accumulates tick time and saves once the period is reached.
// The accumulator keeps the overshoot so long ticks do not starve the
// schedule.
func (as *Autosaver) OnTick(deltaMs float64) {
	if as.periodMs <= 0 {
		return
	}
	as.elapsed += deltaMs
	if as.elapsed < as.periodMs {
		return
	}
	as.elapsed -= as.periodMs
	as.Save()
}

// Save snapshots the current state. Failures are logged, not fatal: a
// later tick retries.
func (as *Autosaver) Save() {
	if err := Save(as.app, as.path); err != nil {
		as.log.Error("state save failed", zap.String("path", as.path), zap.Error(err))
	}
}
