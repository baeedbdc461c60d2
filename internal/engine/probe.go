package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbias/biasd/internal/params"
)

// Probe decides the schema generation of the connected device. Only late
// firmware exposes a third crossover band or a ninth output IIR band, so a
// read of those two paths on channel 0 tells the tables apart. Legacy and
// extended firmware share a tree and are indistinguishable here.
func Probe(ctx context.Context, c ParamClient) (params.Schema, error) {
	late := params.NewTable(params.Late)
	markers := []params.Key{
		{Section: params.SectionCrossover, Field: params.FieldEnable, Channel: 0, Band: params.Extended.CrossoverBands},
		{Section: params.SectionOutputIIR, Field: params.FieldEnable, Channel: 0, Band: params.Extended.OutputIIRBands},
	}
	paths := make([]string, 0, len(markers))
	for _, k := range markers {
		p, ok := late.Path(k)
		if !ok {
			return params.Schema{}, fmt.Errorf("probe: marker %s not in late table", k)
		}
		paths = append(paths, p)
	}

	vals, err := c.ReadValues(ctx, paths)
	if err != nil {
		return params.Schema{}, fmt.Errorf("probe: %w", err)
	}
	for _, p := range paths {
		if _, ok := vals[p]; ok {
			slog.Info("engine: probe found late firmware", "marker", p)
			return params.Late, nil
		}
	}
	return params.Extended, nil
}

// Resolve maps a configured schema name to a schema, probing the device for
// "auto".
func Resolve(ctx context.Context, c ParamClient, name string) (params.Schema, error) {
	if name == "auto" {
		return Probe(ctx, c)
	}
	return params.SchemaByName(name)
}
