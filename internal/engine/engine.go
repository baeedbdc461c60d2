// Package engine maps between the flat device parameter tree and the
// structured snapshot: one batched read to capture, one batched write to
// apply.
package engine

import (
	"context"

	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/params"
)

// ParamClient is the subset of the transport client the engine needs.
type ParamClient interface {
	ReadValues(ctx context.Context, paths []string) (map[string]any, error)
	WriteValues(ctx context.Context, entries []device.WriteEntry) (*device.WriteResult, error)
}

// Engine captures and applies snapshots for one schema.
type Engine struct {
	client ParamClient
	table  *params.Table
}

// New returns an engine using the path table of schema.
func New(client ParamClient, schema params.Schema) *Engine {
	return &Engine{client: client, table: params.NewTable(schema)}
}

// Table returns the path table.
func (e *Engine) Table() *params.Table { return e.table }

// Schema returns the schema the engine was built for.
func (e *Engine) Schema() params.Schema { return e.table.Schema() }
