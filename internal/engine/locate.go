package engine

import (
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// ref points at one optional scalar field of a snapshot. Exactly one member
// is set.
type ref struct {
	s **string
	f **float64
	i **int
	b **bool
}

// present reports whether the referenced field holds a value.
func (r ref) present() bool {
	switch {
	case r.s != nil:
		return *r.s != nil
	case r.f != nil:
		return *r.f != nil
	case r.i != nil:
		return *r.i != nil
	case r.b != nil:
		return *r.b != nil
	}
	return false
}

// locate finds the snapshot field addressed by k. With create set, missing
// containers on the way are allocated; otherwise a missing container yields
// ok=false. Capture and apply both go through here so every table key has
// exactly one field in each direction.
func locate(s *models.Snapshot, k params.Key, create bool) (ref, bool) {
	switch k.Section {
	case params.SectionOutput:
		oc := entry(&s.OutputChannels, k.Channel, create)
		if oc == nil {
			return ref{}, false
		}
		switch k.Field {
		case params.FieldName:
			return ref{s: &oc.Name}, true
		case params.FieldEnable:
			return ref{b: &oc.Enable}, true
		case params.FieldGain:
			return ref{f: &oc.Gain}, true
		case params.FieldMute:
			return ref{b: &oc.Mute}, true
		case params.FieldPolarity:
			return ref{b: &oc.Polarity}, true
		case params.FieldDelayEnable:
			return ref{b: &oc.DelayEnable}, true
		case params.FieldDelay:
			return ref{f: &oc.Delay}, true
		}

	case params.SectionOutputIIR, params.SectionOutputPreIIR:
		oc := entry(&s.OutputChannels, k.Channel, create)
		if oc == nil {
			return ref{}, false
		}
		bands := &oc.IIR
		if k.Section == params.SectionOutputPreIIR {
			bands = &oc.PreIIR
		}
		return bandField(entry(bands, k.Band, create), k.Field)

	case params.SectionLimiter:
		bank := entry(&s.Limiters, k.Channel, create)
		if bank == nil {
			return ref{}, false
		}
		slot := bank.Slot(k.Limiter.Key())
		if slot == nil {
			return ref{}, false
		}
		if *slot == nil {
			if !create {
				return ref{}, false
			}
			*slot = &models.Limiter{}
		}
		switch k.Field {
		case params.FieldEnable:
			return ref{b: &(*slot).Enable}, true
		case params.FieldThreshold:
			return ref{f: &(*slot).Threshold}, true
		}

	case params.SectionCrossover:
		key := models.Index(k.Channel)
		xo := s.Crossovers[key]
		if xo == nil {
			if !create {
				return ref{}, false
			}
			if s.Crossovers == nil {
				s.Crossovers = make(map[string]models.Crossover)
			}
			xo = make(models.Crossover)
			s.Crossovers[key] = xo
		}
		band := xo[models.Index(k.Band)]
		if band == nil {
			if !create {
				return ref{}, false
			}
			band = &models.CrossoverBand{}
			xo[models.Index(k.Band)] = band
		}
		switch k.Field {
		case params.FieldEnable:
			return ref{b: &band.Enable}, true
		case params.FieldFc:
			return ref{f: &band.Fc}, true
		case params.FieldSlope:
			return ref{i: &band.Slope}, true
		}

	case params.SectionInput:
		ic := entry(&s.InputChannels, k.Channel, create)
		if ic == nil {
			return ref{}, false
		}
		switch k.Field {
		case params.FieldEnable:
			return ref{b: &ic.Enable}, true
		case params.FieldGain:
			return ref{f: &ic.Gain}, true
		case params.FieldMute:
			return ref{b: &ic.Mute}, true
		case params.FieldPolarity:
			return ref{b: &ic.Polarity}, true
		case params.FieldShadingGain:
			return ref{f: &ic.ShadingGain}, true
		case params.FieldDelayEnable:
			return ref{b: &ic.DelayEnable}, true
		case params.FieldDelay:
			return ref{f: &ic.Delay}, true
		}

	case params.SectionInputIIR:
		ic := entry(&s.InputChannels, k.Channel, create)
		if ic == nil {
			return ref{}, false
		}
		return bandField(entry(&ic.IIR, k.Band, create), k.Field)

	case params.SectionMatrixInput:
		m := matrix(s, create)
		if m == nil {
			return ref{}, false
		}
		return gainMuteField(entry(&m.Inputs, k.Input, create), k.Field)

	case params.SectionMatrixRouting:
		m := matrix(s, create)
		if m == nil {
			return ref{}, false
		}
		mc := entry(&m.Channels, k.Channel, create)
		if mc == nil {
			return ref{}, false
		}
		return gainMuteField(entry(&mc.Routing, k.Input, create), k.Field)

	case params.SectionGenerals:
		if k.Field == params.FieldStandby {
			return ref{b: &s.Standby}, true
		}
	}
	return ref{}, false
}

// entry returns m[i], allocating the map and element when create is set.
func entry[T any](m *map[string]*T, i int, create bool) *T {
	key := models.Index(i)
	if v := (*m)[key]; v != nil {
		return v
	}
	if !create {
		return nil
	}
	if *m == nil {
		*m = make(map[string]*T)
	}
	v := new(T)
	(*m)[key] = v
	return v
}

func matrix(s *models.Snapshot, create bool) *models.Matrix {
	if s.Matrix == nil && create {
		s.Matrix = &models.Matrix{}
	}
	return s.Matrix
}

func bandField(b *models.EQBand, f params.Field) (ref, bool) {
	if b == nil {
		return ref{}, false
	}
	switch f {
	case params.FieldEnable:
		return ref{b: &b.Enable}, true
	case params.FieldType:
		return ref{i: &b.Type}, true
	case params.FieldFc:
		return ref{f: &b.Fc}, true
	case params.FieldGain:
		return ref{f: &b.Gain}, true
	case params.FieldQ:
		return ref{f: &b.Q}, true
	case params.FieldSlope:
		return ref{i: &b.Slope}, true
	}
	return ref{}, false
}

func gainMuteField(g *models.GainMute, f params.Field) (ref, bool) {
	if g == nil {
		return ref{}, false
	}
	switch f {
	case params.FieldGain:
		return ref{f: &g.Gain}, true
	case params.FieldMute:
		return ref{b: &g.Mute}, true
	}
	return ref{}, false
}
