package models

import "math"

// Decibel display limits. Later firmware reaches +15 dB; legacy firmware +6 dB.
const (
	DBMin       = -60.0
	DBMax       = 15.0
	LegacyDBMax = 6.0
)

// GainRange is a decibel display window with its linear equivalents.
// The wire value is always linear; decibels are a view of it.
type GainRange struct {
	MinDB float64
	MaxDB float64
}

// Display ranges.
var (
	ExtendedGainRange = GainRange{MinDB: DBMin, MaxDB: DBMax}
	LegacyGainRange   = GainRange{MinDB: DBMin, MaxDB: LegacyDBMax}
)

// LinearFloor is the smallest linear gain with a distinct decibel value.
var LinearFloor = ExtendedGainRange.Floor()

// LinearCeil is the largest linear gain representable in decibels.
var LinearCeil = ExtendedGainRange.Ceil()

// Floor returns the linear gain of MinDB.
func (r GainRange) Floor() float64 { return math.Pow(10, r.MinDB/20) }

// Ceil returns the linear gain of MaxDB.
func (r GainRange) Ceil() float64 { return math.Pow(10, r.MaxDB/20) }

// LinearToDB converts a linear gain to decibels. Values at or below the
// floor, zero included, map to MinDB.
func (r GainRange) LinearToDB(linear float64) float64 {
	if math.IsNaN(linear) {
		return r.MinDB
	}
	db := 20 * math.Log10(math.Max(linear, r.Floor()))
	return clamp(db, r.MinDB, r.MaxDB)
}

// DBToLinear converts decibels to a linear gain.
func (r GainRange) DBToLinear(db float64) float64 {
	if math.IsNaN(db) {
		db = r.MinDB
	}
	lin := math.Pow(10, clamp(db, r.MinDB, r.MaxDB)/20)
	return clamp(lin, 0, r.Ceil())
}

// LinearToDB converts with the extended display range.
func LinearToDB(linear float64) float64 { return ExtendedGainRange.LinearToDB(linear) }

// DBToLinear converts with the extended display range.
func DBToLinear(db float64) float64 { return ExtendedGainRange.DBToLinear(db) }

// RoundDB rounds a decibel value to one decimal for display.
func RoundDB(db float64) float64 { return math.Round(db*10) / 10 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
