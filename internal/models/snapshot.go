package models

import (
	"encoding/json"
	"strconv"
)

// Snapshot is a structured capture of the amplifier's live parameters.
//
// Every field is optional. A nil field means "not part of this snapshot": it
// is never written when the snapshot is applied. Indexed collections are keyed
// by the canonical decimal index ("0".."3"); any other spelling is ignored.
type Snapshot struct {
	OutputChannels map[string]*OutputChannel `json:"output_channels,omitempty"`
	InputChannels  map[string]*InputChannel  `json:"input_channels,omitempty"`
	Limiters       map[string]*LimiterBank   `json:"limiters,omitempty"`
	Crossovers     map[string]Crossover      `json:"crossovers,omitempty"`
	Matrix         *Matrix                   `json:"matrix,omitempty"`
	Standby        *bool                     `json:"standby,omitempty"`
}

// OutputChannel holds one amplifier output's processing block.
type OutputChannel struct {
	Name        *string            `json:"name,omitempty"`
	Enable      *bool              `json:"enable,omitempty"`
	Gain        *float64           `json:"gain,omitempty"`
	Mute        *bool              `json:"mute,omitempty"`
	Polarity    *bool              `json:"polarity,omitempty"`
	DelayEnable *bool              `json:"delay_enable,omitempty"`
	Delay       *float64           `json:"delay,omitempty"`
	IIR         map[string]*EQBand `json:"iir,omitempty"`
	PreIIR      map[string]*EQBand `json:"pre_iir,omitempty"`
}

// InputChannel holds one input's processing block.
type InputChannel struct {
	Enable      *bool              `json:"enable,omitempty"`
	Gain        *float64           `json:"gain,omitempty"`
	Mute        *bool              `json:"mute,omitempty"`
	Polarity    *bool              `json:"polarity,omitempty"`
	ShadingGain *float64           `json:"shading_gain,omitempty"`
	DelayEnable *bool              `json:"delay_enable,omitempty"`
	Delay       *float64           `json:"delay,omitempty"`
	IIR         map[string]*EQBand `json:"iir,omitempty"`
}

// EQBand is one parametric IIR stage. Type is a filter code 0-7.
type EQBand struct {
	Enable *bool    `json:"enable,omitempty"`
	Type   *int     `json:"type,omitempty"`
	Fc     *float64 `json:"fc,omitempty"`
	Gain   *float64 `json:"gain,omitempty"`
	Q      *float64 `json:"q,omitempty"`
	Slope  *int     `json:"slope,omitempty"`
}

// LimiterBank holds the seven limiters of one output channel.
type LimiterBank struct {
	Clip      *Limiter `json:"clip,omitempty"`
	Peak      *Limiter `json:"peak,omitempty"`
	VRMS      *Limiter `json:"vrms,omitempty"`
	IRMS      *Limiter `json:"irms,omitempty"`
	Clamp     *Limiter `json:"clamp,omitempty"`
	Thermal   *Limiter `json:"thermal,omitempty"`
	TruePower *Limiter `json:"truepower,omitempty"`
}

// Limiter is an enable flag plus threshold. Threshold units depend on the
// limiter kind.
type Limiter struct {
	Enable    *bool    `json:"enable,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Crossover maps band index to band.
type Crossover map[string]*CrossoverBand

// CrossoverBand is one crossover filter stage.
type CrossoverBand struct {
	Enable *bool    `json:"enable,omitempty"`
	Fc     *float64 `json:"fc,omitempty"`
	Slope  *int     `json:"slope,omitempty"`
}

// Matrix is the input gain stage plus the input-to-output routing grid.
type Matrix struct {
	Inputs   map[string]*GainMute      `json:"inputs,omitempty"`
	Channels map[string]*MatrixChannel `json:"channels,omitempty"`
}

// MatrixChannel holds one output channel's routing from each input.
type MatrixChannel struct {
	Routing map[string]*GainMute `json:"routing,omitempty"`
}

// GainMute is a linear gain and mute pair.
type GainMute struct {
	Gain *float64 `json:"gain,omitempty"`
	Mute *bool    `json:"mute,omitempty"`
}

// Index returns the canonical map key for a channel, band or input index.
func Index(i int) string { return strconv.Itoa(i) }

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Output returns output channel i, or nil.
func (s *Snapshot) Output(i int) *OutputChannel {
	if s == nil {
		return nil
	}
	return s.OutputChannels[Index(i)]
}

// Input returns input channel i, or nil.
func (s *Snapshot) Input(i int) *InputChannel {
	if s == nil {
		return nil
	}
	return s.InputChannels[Index(i)]
}

// DeepCopy returns a copy sharing no pointers with s.
func (s Snapshot) DeepCopy() Snapshot {
	data, err := json.Marshal(s)
	if err != nil {
		return Snapshot{}
	}
	var cp Snapshot
	if err := json.Unmarshal(data, &cp); err != nil {
		return Snapshot{}
	}
	return cp
}

// Slot returns the field holding the limiter with the given snapshot key
// ("clip", "peak", ...), or nil for an unknown key.
func (b *LimiterBank) Slot(key string) **Limiter {
	switch key {
	case "clip":
		return &b.Clip
	case "peak":
		return &b.Peak
	case "vrms":
		return &b.VRMS
	case "irms":
		return &b.IRMS
	case "clamp":
		return &b.Clamp
	case "thermal":
		return &b.Thermal
	case "truepower":
		return &b.TruePower
	}
	return nil
}
