package controller

import (
	"context"
	"fmt"

	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// SetOutput changes the gain and/or mute of one output channel. A gain may be
// given linear or in decibels, not both.
func (c *Controller) SetOutput(ctx context.Context, ch int, upd models.OutputUpdate) (models.State, *models.AppError) {
	if ch < 0 || ch >= params.OutputChannels {
		return models.State{}, models.ErrNotFound(fmt.Sprintf("output %d not found", ch))
	}
	if upd.Gain != nil && upd.GainDB != nil {
		return models.State{}, models.ErrBadRequest("give gain or gain_db, not both")
	}

	gain := upd.Gain
	if upd.GainDB != nil {
		g := c.opts.GainRange.DBToLinear(*upd.GainDB)
		gain = &g
	}

	var values []engine.Assignment
	if gain != nil {
		values = append(values, engine.Assignment{
			Key:   params.Key{Section: params.SectionOutput, Field: params.FieldGain, Channel: ch},
			Value: *gain,
		})
	}
	if upd.Mute != nil {
		values = append(values, engine.Assignment{
			Key:   params.Key{Section: params.SectionOutput, Field: params.FieldMute, Channel: ch},
			Value: *upd.Mute,
		})
	}
	if len(values) == 0 {
		return models.State{}, models.ErrBadRequest("nothing to update")
	}

	if err := c.set(ctx, values...); err != nil {
		return models.State{}, AsAppError(err)
	}

	state, err := c.apply(events.KindState, func(s *models.State) error {
		if s.Snapshot == nil {
			return nil
		}
		oc := s.Snapshot.Output(ch)
		if oc == nil {
			return nil
		}
		if gain != nil {
			oc.Gain = models.Ptr(*gain)
		}
		if upd.Mute != nil {
			oc.Mute = models.Ptr(*upd.Mute)
		}
		c.setSnapshot(s, s.Snapshot)
		return nil
	})
	if err != nil {
		return models.State{}, AsAppError(err)
	}
	return state, nil
}

// SetStandby switches device standby. Firmware that rejects the write is
// tolerated; the next refresh shows the real value.
func (c *Controller) SetStandby(ctx context.Context, standby bool) (models.State, *models.AppError) {
	key := params.Key{Section: params.SectionGenerals, Field: params.FieldStandby}
	if err := c.set(ctx, engine.Assignment{Key: key, Value: standby}); err != nil {
		return models.State{}, AsAppError(err)
	}
	state, err := c.apply(events.KindState, func(s *models.State) error {
		s.Standby = models.Ptr(standby)
		if s.Snapshot != nil {
			s.Snapshot.Standby = models.Ptr(standby)
		}
		return nil
	})
	if err != nil {
		return models.State{}, AsAppError(err)
	}
	return state, nil
}

func (c *Controller) set(ctx context.Context, values ...engine.Assignment) error {
	c.devMu.Lock()
	defer c.devMu.Unlock()
	if c.blocked != nil {
		return c.blocked
	}
	return c.eng.SetAll(ctx, values...)
}
