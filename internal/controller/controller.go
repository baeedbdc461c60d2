// Package controller owns the live view of the amplifier. It runs the
// periodic refresh, drives presets through the capture/apply engine, and
// publishes every change on the event bus.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/presets"
)

// Device is the transport the controller needs beyond the engine's.
type Device interface {
	engine.ParamClient
	GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error)
}

// Options configures a Controller.
type Options struct {
	Version string
	// Host is the amplifier address shown in Info and kept in the pairing.
	Host string
	// ConfigDir holds the pairing record; empty disables pairing.
	ConfigDir string
	// Repair replaces a pairing with a different amplifier.
	Repair bool
	// GainRange converts gains for the decibel view.
	GainRange models.GainRange
}

// Controller is the single source of truth for the live state.
// All state mutations go through apply, which publishes the result.
type Controller struct {
	mu    sync.RWMutex
	state models.State

	dev   Device
	eng   *engine.Engine
	store *presets.Store
	bus   *events.Bus
	opts  Options

	// devMu keeps capture, apply and set sequences from interleaving.
	devMu   sync.Mutex
	blocked error

	now func() time.Time
}

// New creates a Controller. The store must already be loaded. No device I/O
// happens until the first Refresh.
func New(dev Device, eng *engine.Engine, store *presets.Store, bus *events.Bus, opts Options) *Controller {
	if opts.GainRange == (models.GainRange{}) {
		opts.GainRange = models.ExtendedGainRange
	}
	c := &Controller{
		dev:   dev,
		eng:   eng,
		store: store,
		bus:   bus,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
	c.state = models.State{
		Info: models.Info{
			Version: opts.Version,
			Host:    opts.Host,
			Schema:  eng.Schema().Name,
		},
		Outputs: []models.OutputView{},
		Presets: store.Summaries(),
	}
	return c
}

// State returns a deep copy of the current state.
func (c *Controller) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.DeepCopy()
}

// Info returns daemon and device identification.
func (c *Controller) Info() models.Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Info
}

// Engine returns the capture/apply engine.
func (c *Controller) Engine() *engine.Engine { return c.eng }

// apply is the core mutation primitive. It:
//  1. Acquires the write lock
//  2. Makes a deep copy of current state
//  3. Calls fn to modify the copy (fn may return an error to abort)
//  4. If fn succeeds: updates state and publishes an event of kind
func (c *Controller) apply(kind events.Kind, fn func(*models.State) error) (models.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.DeepCopy()
	if err := fn(&next); err != nil {
		return models.State{}, err
	}

	c.state = next
	out := c.state.DeepCopy()
	if c.bus != nil {
		c.bus.Publish(events.Event{Kind: kind, State: out})
	}
	return out, nil
}

// setSnapshot stores snap as the live snapshot and derives the views.
func (c *Controller) setSnapshot(s *models.State, snap *models.Snapshot) {
	s.Snapshot = snap
	s.Standby = snap.Standby
	s.Outputs = models.OutputViews(snap, c.opts.GainRange)
}

// Run refreshes immediately and then every interval until ctx is cancelled.
// A failed refresh marks the device offline; the next tick retries.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	slog.Info("controller: refresh loop started", "interval", interval)
	tick := func() {
		if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("controller: refresh failed, retrying next tick", "err", err)
		}
	}
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("controller: refresh loop stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}
