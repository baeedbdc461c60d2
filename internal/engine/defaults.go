package engine

import (
	"fmt"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/params"
)

// Default returns the value capture uses when the device does not report k.
// The result has the Go type of k's kind: string, float64, int or bool.
func Default(k params.Key) any {
	switch k.Field {
	case params.FieldName:
		return fmt.Sprintf("Output %d", k.Channel+1)
	case params.FieldEnable:
		switch k.Section {
		case params.SectionOutput, params.SectionInput:
			return true
		}
		return false
	case params.FieldGain, params.FieldShadingGain, params.FieldQ, params.FieldThreshold:
		return 1.0
	case params.FieldFc:
		return 1000.0
	case params.FieldDelay:
		return 0.0
	case params.FieldType:
		return 0
	case params.FieldSlope:
		return 12
	}
	// mute, polarity, delay_enable, standby
	return false
}

// Defaults returns the default of every table entry keyed by path, ready to
// seed a mock device. Integer fields carry codec.Int so they keep their tag.
func Defaults(t *params.Table) map[string]any {
	out := make(map[string]any, t.Len())
	for _, e := range t.Entries() {
		v := Default(e.Key)
		if n, ok := v.(int); ok {
			v = codec.Int(n)
		}
		out[e.Path] = v
	}
	return out
}
