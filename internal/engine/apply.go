package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// ErrUnknownKey is returned by Set for a key the table does not contain.
var ErrUnknownKey = errors.New("unknown parameter")

// Writes validates snap and returns one write entry per present field, in
// table order. Absent fields are skipped so older snapshots never clobber
// sections they do not carry.
func (e *Engine) Writes(snap *models.Snapshot) ([]device.WriteEntry, error) {
	if err := models.ValidateShape(snap); err != nil {
		return nil, err
	}
	if err := models.ValidateChannelGains(snap, e.Schema().MaxChannelGain); err != nil {
		return nil, err
	}
	if err := models.ValidateFinite(snap); err != nil {
		return nil, err
	}

	var out []device.WriteEntry
	for _, ent := range e.table.Entries() {
		r, ok := locate(snap, ent.Key, false)
		if !ok || !r.present() {
			continue
		}
		out = append(out, device.WriteEntry{Path: ent.Path, Value: value(r, ent.Kind)})
	}
	return out, nil
}

// value reads the present field behind r in its wire form.
func value(r ref, kind params.Kind) any {
	switch {
	case r.s != nil:
		return **r.s
	case r.f != nil:
		return **r.f
	case r.i != nil:
		if kind == params.KindInt {
			return codec.Int(**r.i)
		}
		return float64(**r.i)
	case r.b != nil:
		return **r.b
	}
	return nil
}

// Apply validates snap and writes every present field in one batch. Failures
// on soft paths (standby) are logged; any other failed path yields a
// *PartialApplyError naming every such path.
func (e *Engine) Apply(ctx context.Context, snap *models.Snapshot) error {
	entries, err := e.Writes(snap)
	if err != nil {
		return err
	}
	return e.write(ctx, entries)
}

// Assignment is one parameter value for SetAll.
type Assignment struct {
	Key   params.Key
	Value any
}

// Set writes a single parameter. v must coerce to the field's kind.
func (e *Engine) Set(ctx context.Context, k params.Key, v any) error {
	return e.SetAll(ctx, Assignment{Key: k, Value: v})
}

// SetAll writes the given parameters in one batch. Every value is checked
// before any I/O.
func (e *Engine) SetAll(ctx context.Context, values ...Assignment) error {
	entries := make([]device.WriteEntry, 0, len(values))
	for _, a := range values {
		ent, ok := e.entry(a.Key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, a.Key)
		}
		var scratch models.Snapshot
		r, _ := locate(&scratch, a.Key, true)
		if !assign(r, ent.Kind, a.Value) {
			return fmt.Errorf("%w: %s: %v is not a valid value", models.ErrValidation, ent.Path, a.Value)
		}
		if a.Key.Section == params.SectionOutput && a.Key.Field == params.FieldGain {
			if g := **r.f; math.IsNaN(g) || g < 0 || g > e.Schema().MaxChannelGain {
				return fmt.Errorf("%w: gain %v outside [0, %v]", models.ErrValidation, g, e.Schema().MaxChannelGain)
			}
		}
		entries = append(entries, device.WriteEntry{Path: ent.Path, Value: value(r, ent.Kind)})
	}
	return e.write(ctx, entries)
}

func (e *Engine) entry(k params.Key) (params.Entry, bool) {
	path, ok := e.table.Path(k)
	if !ok {
		return params.Entry{}, false
	}
	return e.table.Lookup(path)
}

func (e *Engine) write(ctx context.Context, entries []device.WriteEntry) error {
	if len(entries) == 0 {
		return nil
	}
	res, err := e.client.WriteValues(ctx, entries)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	for _, p := range res.Soft {
		slog.Warn("engine: ignoring soft write failure", "path", p)
	}
	if !res.OK() {
		return &PartialApplyError{Paths: res.Failed, Results: res.Results}
	}
	slog.Debug("engine: applied", "entries", len(entries))
	return nil
}
