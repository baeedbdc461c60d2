// Package params holds the amplifier's parameter path table: every address
// the scene engine reads or writes, computed once from structured keys.
package params

import "fmt"

// Fixed device topology.
const (
	OutputChannels = 4
	InputChannels  = 4
	MatrixInputs   = 4
)

// Schema describes one firmware generation's table shape.
type Schema struct {
	Name           string
	OutputIIRBands int
	PreIIRBands    int
	InputIIRBands  int
	CrossoverBands int
	// MaxChannelGain is the upper bound accepted for an output channel's
	// linear gain when a scene is applied.
	MaxChannelGain float64
}

// Known schemas. Extended is the default.
var (
	Legacy = Schema{
		Name:           "legacy",
		OutputIIRBands: 8,
		PreIIRBands:    8,
		InputIIRBands:  7,
		CrossoverBands: 2,
		MaxChannelGain: 2.0,
	}
	Extended = Schema{
		Name:           "extended",
		OutputIIRBands: 8,
		PreIIRBands:    8,
		InputIIRBands:  7,
		CrossoverBands: 2,
		MaxChannelGain: 10.0,
	}
	Late = Schema{
		Name:           "late",
		OutputIIRBands: 16,
		PreIIRBands:    8,
		InputIIRBands:  7,
		CrossoverBands: 3,
		MaxChannelGain: 10.0,
	}
)

// SchemaByName resolves a schema name from configuration.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "", Extended.Name:
		return Extended, nil
	case Legacy.Name:
		return Legacy, nil
	case Late.Name:
		return Late, nil
	default:
		return Schema{}, fmt.Errorf("params: unknown schema %q", name)
	}
}

// FilterTypeName returns the display name of an IIR filter type code.
func FilterTypeName(code int) string {
	if code < 0 || code >= len(filterTypes) {
		return fmt.Sprintf("Type %d", code)
	}
	return filterTypes[code]
}

// FilterTypeNames lists filter type names indexed by wire code.
func FilterTypeNames() []string {
	out := make([]string, len(filterTypes))
	copy(out, filterTypes)
	return out
}

var filterTypes = []string{
	"Peaking",
	"LowShelf",
	"HighShelf",
	"LowPass",
	"HighPass",
	"BandPass",
	"Notch",
	"AllPass",
}
