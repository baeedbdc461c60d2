package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
)

// GetPresets returns all presets.
func (c *Controller) GetPresets() []models.Preset {
	return c.store.GetAllScenes()
}

// GetPreset returns a single preset by ID.
func (c *Controller) GetPreset(id int) (models.Preset, *models.AppError) {
	p, err := c.store.GetSceneByID(id)
	if err != nil {
		return models.Preset{}, AsAppError(err)
	}
	return p, nil
}

// CreatePreset stores a new preset. Without a snapshot in req the live
// device state is captured.
func (c *Controller) CreatePreset(ctx context.Context, req models.PresetCreate) (models.Preset, *models.AppError) {
	snap, appErr := c.snapshotFor(ctx, req.Snapshot, req.Snapshot == nil)
	if appErr != nil {
		return models.Preset{}, appErr
	}
	id, err := c.store.CreateScene(req.Name, *snap, req.ID)
	if err != nil {
		return models.Preset{}, AsAppError(err)
	}
	c.publishPresets()
	return c.GetPreset(id)
}

// UpdatePreset replaces a preset's snapshot (given or recaptured) and/or
// renames it.
func (c *Controller) UpdatePreset(ctx context.Context, id int, upd models.PresetUpdate) (models.Preset, *models.AppError) {
	if _, err := c.store.GetSceneByID(id); err != nil {
		return models.Preset{}, AsAppError(err)
	}
	if upd.Snapshot != nil && upd.Recapture {
		return models.Preset{}, models.ErrBadRequest("snapshot and recapture are mutually exclusive")
	}

	switch {
	case upd.Snapshot != nil || upd.Recapture:
		snap, appErr := c.snapshotFor(ctx, upd.Snapshot, upd.Recapture)
		if appErr != nil {
			return models.Preset{}, appErr
		}
		if err := c.store.UpdateScene(id, *snap, upd.Name); err != nil {
			return models.Preset{}, AsAppError(err)
		}
	case upd.Name != nil:
		if err := c.store.RenameScene(id, *upd.Name); err != nil {
			return models.Preset{}, AsAppError(err)
		}
	default:
		return models.Preset{}, models.ErrBadRequest("nothing to update")
	}

	c.publishPresets()
	return c.GetPreset(id)
}

// DeletePreset removes a preset by ID.
func (c *Controller) DeletePreset(id int) *models.AppError {
	if err := c.store.DeleteScene(id); err != nil {
		return AsAppError(err)
	}
	c.publishPresets()
	return nil
}

// LoadPreset applies a preset to the device and refreshes the live state.
// After a partial failure the state is still refreshed so it shows what the
// device actually holds.
func (c *Controller) LoadPreset(ctx context.Context, id int) (models.State, *models.AppError) {
	p, err := c.store.GetSceneByID(id)
	if err != nil {
		return models.State{}, AsAppError(err)
	}

	c.devMu.Lock()
	defer c.devMu.Unlock()
	if c.blocked != nil {
		return models.State{}, AsAppError(c.blocked)
	}

	applyErr := c.eng.Apply(ctx, &p.Snapshot)
	if applyErr != nil && !isPartial(applyErr) {
		return models.State{}, AsAppError(applyErr)
	}

	state, err := c.refreshLocked(ctx)
	if applyErr != nil {
		slog.Warn("controller: preset applied partially", "id", id, "err", applyErr)
		return models.State{}, AsAppError(applyErr)
	}
	if err != nil {
		return models.State{}, AsAppError(err)
	}
	slog.Info("controller: preset loaded", "id", id, "name", p.Name)
	return state, nil
}

// snapshotFor returns given, or a fresh capture when capture is set.
func (c *Controller) snapshotFor(ctx context.Context, given *models.Snapshot, capture bool) (*models.Snapshot, *models.AppError) {
	if !capture {
		if given == nil {
			return nil, models.ErrBadRequest("snapshot is required")
		}
		return given, nil
	}

	c.devMu.Lock()
	defer c.devMu.Unlock()
	if c.blocked != nil {
		return nil, AsAppError(c.blocked)
	}
	snap, err := c.eng.Capture(ctx)
	if err != nil {
		c.markOffline(err)
		return nil, AsAppError(fmt.Errorf("capture for preset: %w", err))
	}
	return snap, nil
}

func (c *Controller) publishPresets() {
	summaries := c.store.Summaries()
	_, _ = c.apply(events.KindPresets, func(s *models.State) error {
		s.Presets = summaries
		return nil
	})
}
