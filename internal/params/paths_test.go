package params_test

import (
	"strings"
	"testing"

	"github.com/openbias/biasd/internal/params"
)

func TestTableSize(t *testing.T) {
	tests := []struct {
		schema params.Schema
		want   int
	}{
		// 4*(7+48+48+14+6) + 4*(7+42) + 8 + 32 + 1
		{params.Extended, 729},
		{params.Legacy, 729},
		// 4*(7+96+48+14+9) + 196 + 40 + 1
		{params.Late, 933},
	}
	for _, tt := range tests {
		t.Run(tt.schema.Name, func(t *testing.T) {
			tbl := params.NewTable(tt.schema)
			if tbl.Len() != tt.want {
				t.Errorf("Len = %d, want %d", tbl.Len(), tt.want)
			}
		})
	}
}

func TestPathsUniqueAndRooted(t *testing.T) {
	tbl := params.NewTable(params.Late)
	seen := make(map[string]bool)
	for _, p := range tbl.Paths() {
		if seen[p] {
			t.Fatalf("duplicate path %s", p)
		}
		seen[p] = true
		if !strings.HasPrefix(p, "/Device/Audio/Presets/Live/") {
			t.Errorf("path %s outside live preset tree", p)
		}
	}
}

func TestKnownPaths(t *testing.T) {
	tbl := params.NewTable(params.Extended)
	tests := []struct {
		key  params.Key
		want string
	}{
		{
			params.Key{Section: params.SectionOutput, Field: params.FieldGain, Channel: 0},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-0/Gain/Value",
		},
		{
			params.Key{Section: params.SectionOutput, Field: params.FieldName, Channel: 3},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-3/Name",
		},
		{
			params.Key{Section: params.SectionOutput, Field: params.FieldDelayEnable, Channel: 1},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-1/OutDelay/Enable",
		},
		{
			params.Key{Section: params.SectionOutputIIR, Field: params.FieldFc, Channel: 2, Band: 7},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-2/IIR/Bands/Band-7/Fc/Value",
		},
		{
			params.Key{Section: params.SectionOutputPreIIR, Field: params.FieldEnable, Channel: 0, Band: 0},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-0/PreIIR/Bands/Band-0/Enable",
		},
		{
			params.Key{Section: params.SectionLimiter, Field: params.FieldThreshold, Channel: 1, Limiter: params.LimiterTruePower},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-1/Limiters/TruePowerLimiter/Threshold/Value",
		},
		{
			params.Key{Section: params.SectionCrossover, Field: params.FieldSlope, Channel: 0, Band: 1},
			"/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-0/Xover/Bands/Band-1/Slope/Value",
		},
		{
			params.Key{Section: params.SectionInput, Field: params.FieldDelayEnable, Channel: 2},
			"/Device/Audio/Presets/Live/InputProcess/Channels/Channel-2/InDelay/Enable/Value",
		},
		{
			params.Key{Section: params.SectionInputIIR, Field: params.FieldQ, Channel: 3, Band: 6},
			"/Device/Audio/Presets/Live/InputProcess/Channels/Channel-3/ZoneBlock/IIR/Bands/Band-6/Q/Value",
		},
		{
			params.Key{Section: params.SectionMatrixInput, Field: params.FieldMute, Input: 2},
			"/Device/Audio/Presets/Live/InputProcess/Matrix/Inputs/Input-2/Mute/Value",
		},
		{
			params.Key{Section: params.SectionMatrixRouting, Field: params.FieldGain, Channel: 1, Input: 3},
			"/Device/Audio/Presets/Live/InputProcess/Matrix/Channels/Channel-1/Routing/Input-3/Gain/Value",
		},
		{
			params.Key{Section: params.SectionGenerals, Field: params.FieldStandby},
			params.StandbyPath,
		},
	}
	for _, tt := range tests {
		got, ok := tbl.Path(tt.key)
		if !ok {
			t.Errorf("missing key %v", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("Path(%v) = %s, want %s", tt.key, got, tt.want)
		}
		e, ok := tbl.Lookup(got)
		if !ok || e.Key != tt.key {
			t.Errorf("Lookup(%s) = %v, %v", got, e.Key, ok)
		}
	}
}

func TestSchemaBounds(t *testing.T) {
	ext := params.NewTable(params.Extended)
	if _, ok := ext.Path(params.Key{Section: params.SectionCrossover, Field: params.FieldEnable, Band: 2}); ok {
		t.Error("extended schema should not expose crossover band 2")
	}
	if _, ok := ext.Path(params.Key{Section: params.SectionInputIIR, Field: params.FieldEnable, Band: 7}); ok {
		t.Error("input IIR has 7 bands")
	}
	late := params.NewTable(params.Late)
	if _, ok := late.Path(params.Key{Section: params.SectionOutputIIR, Field: params.FieldEnable, Band: 15}); !ok {
		t.Error("late schema should expose output IIR band 15")
	}
}

func TestKinds(t *testing.T) {
	tbl := params.NewTable(params.Extended)
	for _, e := range tbl.Entries() {
		switch e.Key.Field {
		case params.FieldType, params.FieldSlope:
			if e.Kind != params.KindInt {
				t.Errorf("%s kind = %v, want int", e.Path, e.Kind)
			}
		case params.FieldName:
			if e.Kind != params.KindString {
				t.Errorf("%s kind = %v, want string", e.Path, e.Kind)
			}
		}
	}
}

func TestSchemaByName(t *testing.T) {
	for _, name := range []string{"", "extended", "legacy", "late"} {
		if _, err := params.SchemaByName(name); err != nil {
			t.Errorf("SchemaByName(%q): %v", name, err)
		}
	}
	if _, err := params.SchemaByName("v9"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestFilterTypeName(t *testing.T) {
	if got := params.FilterTypeName(0); got != "Peaking" {
		t.Errorf("FilterTypeName(0) = %s", got)
	}
	if got := params.FilterTypeName(7); got != "AllPass" {
		t.Errorf("FilterTypeName(7) = %s", got)
	}
	if got := params.FilterTypeName(9); got != "Type 9" {
		t.Errorf("FilterTypeName(9) = %s", got)
	}
	if n := len(params.FilterTypeNames()); n != 8 {
		t.Errorf("len(FilterTypeNames) = %d", n)
	}
}
