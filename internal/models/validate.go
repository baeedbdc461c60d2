package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// MandatoryOutputs is the number of output channels every applicable
// snapshot carries.
const MandatoryOutputs = 4

// ValidateShape checks that s has exactly the four mandatory output channels
// under their canonical keys.
func ValidateShape(s *Snapshot) error {
	if s == nil || s.OutputChannels == nil {
		return fmt.Errorf("%w: output_channels missing", ErrInvalidScene)
	}
	var missing []string
	for ch := 0; ch < MandatoryOutputs; ch++ {
		if s.OutputChannels[Index(ch)] == nil {
			missing = append(missing, Index(ch))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: output channel(s) %s missing", ErrInvalidScene, strings.Join(missing, ", "))
	}
	if len(s.OutputChannels) != MandatoryOutputs {
		var extra []string
		for k := range s.OutputChannels {
			if !isMandatoryKey(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return fmt.Errorf("%w: unexpected output channel key(s) %q", ErrInvalidScene, extra)
	}
	return nil
}

func isMandatoryKey(k string) bool {
	for ch := 0; ch < MandatoryOutputs; ch++ {
		if k == Index(ch) {
			return true
		}
	}
	return false
}

// ValidateChannelGains checks every present output channel gain against
// [0, max]. Call after ValidateShape.
func ValidateChannelGains(s *Snapshot, max float64) error {
	for ch := 0; ch < MandatoryOutputs; ch++ {
		oc := s.Output(ch)
		if oc == nil || oc.Gain == nil {
			continue
		}
		if g := *oc.Gain; math.IsNaN(g) || math.IsInf(g, 0) || g < 0 || g > max {
			return fmt.Errorf("%w: channel %d gain %v outside [0, %v]", ErrValidation, ch, g, max)
		}
	}
	return nil
}

// ValidateScene applies the preset store rules: a non-empty name, the
// mandatory channel shape, and a gain plus mute on every output channel with
// the gain inside [0, maxGain].
func ValidateScene(name string, s *Snapshot, maxGain float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := ValidateShape(s); err != nil {
		return err
	}
	for ch := 0; ch < MandatoryOutputs; ch++ {
		oc := s.Output(ch)
		if oc.Gain == nil {
			return fmt.Errorf("%w: channel %d missing gain", ErrValidation, ch)
		}
		if oc.Mute == nil {
			return fmt.Errorf("%w: channel %d missing mute", ErrValidation, ch)
		}
	}
	if err := ValidateFinite(s); err != nil {
		return err
	}
	return ValidateChannelGains(s, maxGain)
}

// ValidateFinite rejects snapshots holding NaN or infinite numbers, which
// neither the device nor the preset document can carry.
func ValidateFinite(s *Snapshot) error {
	if _, err := json.Marshal(s); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
