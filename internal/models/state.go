// Package models holds the data types shared across biasd: the device
// snapshot, presets, the live state view, and API error shapes.
package models

import "time"

// Preset is a named, stored snapshot. Snapshot fields are inlined in JSON so
// the persisted layout is {id, name, output_channels, ..., created_at, updated_at}.
type Preset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Snapshot
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy of p sharing no pointers with it.
func (p Preset) DeepCopy() Preset {
	cp := p
	cp.Snapshot = p.Snapshot.DeepCopy()
	return cp
}

// PresetSummary is the compact preset listing used in state broadcasts.
type PresetSummary struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceInfo identifies an amplifier. Serial is the stable identity key.
type DeviceInfo struct {
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Manufacturer string `json:"manufacturer"`
}

// Info is the daemon information response.
type Info struct {
	Version string     `json:"version"`
	Host    string     `json:"host"`
	Schema  string     `json:"schema"`
	Device  DeviceInfo `json:"device"`
	Paired  bool       `json:"paired"`
}

// OutputView is the display view of one output channel.
type OutputView struct {
	Channel int     `json:"channel"`
	Name    string  `json:"name"`
	Gain    float64 `json:"gain"`
	GainDB  float64 `json:"gain_db"`
	Mute    bool    `json:"mute"`
}

// State is the live view returned by GET /api and broadcast on every
// refresh.
type State struct {
	Info      Info            `json:"info"`
	Online    bool            `json:"online"`
	LastError string          `json:"last_error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	Standby   *bool           `json:"standby,omitempty"`
	Outputs   []OutputView    `json:"outputs"`
	Snapshot  *Snapshot       `json:"snapshot,omitempty"`
	Presets   []PresetSummary `json:"presets"`
}

// DeepCopy returns a deep copy of the state.
func (s State) DeepCopy() State {
	next := s
	if s.Standby != nil {
		next.Standby = Ptr(*s.Standby)
	}
	next.Outputs = make([]OutputView, len(s.Outputs))
	copy(next.Outputs, s.Outputs)
	if s.Snapshot != nil {
		snap := s.Snapshot.DeepCopy()
		next.Snapshot = &snap
	}
	next.Presets = make([]PresetSummary, len(s.Presets))
	copy(next.Presets, s.Presets)
	return next
}

// OutputViews derives the display view of a snapshot's output channels using
// the given decibel range.
func OutputViews(s *Snapshot, r GainRange) []OutputView {
	views := make([]OutputView, 0, MandatoryOutputs)
	for ch := 0; ch < MandatoryOutputs; ch++ {
		oc := s.Output(ch)
		if oc == nil {
			continue
		}
		v := OutputView{Channel: ch, Gain: 1.0}
		if oc.Name != nil {
			v.Name = *oc.Name
		}
		if oc.Gain != nil {
			v.Gain = *oc.Gain
		}
		if oc.Mute != nil {
			v.Mute = *oc.Mute
		}
		v.GainDB = RoundDB(r.LinearToDB(v.Gain))
		views = append(views, v)
	}
	return views
}
