package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/identity"
	"github.com/openbias/biasd/internal/models"
)

// Refresh captures the live snapshot and publishes it. The first successful
// contact also identifies the device and checks the pairing.
func (c *Controller) Refresh(ctx context.Context) (models.State, error) {
	c.devMu.Lock()
	defer c.devMu.Unlock()
	return c.refreshLocked(ctx)
}

// refreshLocked must be called with c.devMu held.
func (c *Controller) refreshLocked(ctx context.Context) (models.State, error) {
	if c.blocked != nil {
		c.markOffline(c.blocked)
		return models.State{}, c.blocked
	}
	if c.Info().Device.Serial == "" {
		if err := c.identifyLocked(ctx); err != nil {
			c.markOffline(err)
			return models.State{}, err
		}
	}

	snap, err := c.eng.Capture(ctx)
	if err != nil {
		c.markOffline(err)
		return models.State{}, err
	}

	return c.apply(events.KindState, func(s *models.State) error {
		if !s.Online {
			slog.Info("controller: device online", "host", c.opts.Host)
		}
		s.Online = true
		s.LastError = ""
		s.UpdatedAt = c.now()
		c.setSnapshot(s, snap)
		return nil
	})
}

// Identify reads the device information and checks it against the pairing.
func (c *Controller) Identify(ctx context.Context) (models.DeviceInfo, error) {
	c.devMu.Lock()
	defer c.devMu.Unlock()
	if err := c.identifyLocked(ctx); err != nil {
		return models.DeviceInfo{}, err
	}
	return c.Info().Device, nil
}

// identifyLocked must be called with c.devMu held.
func (c *Controller) identifyLocked(ctx context.Context) error {
	info, err := c.dev.GetDeviceInfo(ctx)
	if err != nil {
		return err
	}

	paired := false
	if c.opts.ConfigDir != "" {
		rec, err := identity.Pair(c.opts.ConfigDir, c.opts.Host, info, c.opts.Repair)
		if errors.Is(err, identity.ErrSerialMismatch) {
			slog.Error("controller: refusing to control unpaired amplifier", "err", err)
			c.blocked = err
			return err
		}
		if err != nil {
			slog.Warn("controller: pairing record unavailable", "err", err)
		}
		paired = err == nil && rec.Serial != ""
	}

	_, err = c.apply(events.KindState, func(s *models.State) error {
		s.Info.Device = info
		s.Info.Paired = paired
		return nil
	})
	slog.Info("controller: device identified", "model", info.Model, "serial", info.Serial, "paired", paired)
	return err
}

// markOffline records err as the reason the device is unavailable.
func (c *Controller) markOffline(err error) {
	_, _ = c.apply(events.KindOffline, func(s *models.State) error {
		if s.Online {
			slog.Warn("controller: device offline", "host", c.opts.Host, "err", err, "retryable", device.IsRetryable(err))
		}
		s.Online = false
		s.LastError = err.Error()
		return nil
	})
}
