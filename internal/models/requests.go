package models

// PresetCreate is the POST body for creating a preset. Without a snapshot
// the preset is captured from the live device.
type PresetCreate struct {
	Name     string    `json:"name"`
	ID       *int      `json:"id,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// PresetUpdate is the PATCH body for updating a preset. Recapture replaces
// the stored snapshot with the live device state.
type PresetUpdate struct {
	Name      *string   `json:"name,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	Recapture bool      `json:"recapture,omitempty"`
}

// OutputUpdate is the PATCH body for one output channel. Gain and GainDB are
// mutually exclusive.
type OutputUpdate struct {
	Gain   *float64 `json:"gain,omitempty"`
	GainDB *float64 `json:"gain_db,omitempty"`
	Mute   *bool    `json:"mute,omitempty"`
}

// StandbyUpdate is the PATCH body for the standby flag.
type StandbyUpdate struct {
	Standby *bool `json:"standby"`
}
