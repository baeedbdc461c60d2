package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// Capture reads every table path in one batch and returns a complete
// snapshot. Paths the device did not report get their default. A failed
// batch fails the capture.
func (e *Engine) Capture(ctx context.Context) (*models.Snapshot, error) {
	values, err := e.client.ReadValues(ctx, e.table.Paths())
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	snap, missing := e.Decode(values)
	if missing > 0 {
		slog.Debug("engine: capture defaulted missing paths", "missing", missing, "total", e.table.Len())
	}
	return snap, nil
}

// Decode builds a snapshot from a path→value map and reports how many table
// paths were absent or uncoercible and therefore defaulted.
func (e *Engine) Decode(values map[string]any) (*models.Snapshot, int) {
	snap := &models.Snapshot{}
	missing := 0
	for _, ent := range e.table.Entries() {
		r, ok := locate(snap, ent.Key, true)
		if !ok {
			continue
		}
		v, found := values[ent.Path]
		if found && assign(r, ent.Kind, v) {
			continue
		}
		if found {
			slog.Warn("engine: value has wrong kind, using default", "path", ent.Path, "value", v)
		}
		missing++
		assign(r, ent.Kind, Default(ent.Key))
	}
	return snap, missing
}

// assign coerces v to kind and stores it through r.
func assign(r ref, kind params.Kind, v any) bool {
	switch kind {
	case params.KindString:
		s, ok := codec.AsString(v)
		if !ok || r.s == nil {
			return false
		}
		*r.s = &s
	case params.KindFloat:
		f, ok := codec.AsFloat(v)
		if !ok || r.f == nil {
			return false
		}
		*r.f = &f
	case params.KindInt:
		n, ok := codec.AsInt(v)
		if !ok || r.i == nil {
			return false
		}
		*r.i = &n
	case params.KindBool:
		b, ok := codec.AsBool(v)
		if !ok || r.b == nil {
			return false
		}
		*r.b = &b
	default:
		return false
	}
	return true
}
