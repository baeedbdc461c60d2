package params

import "fmt"

// Section groups keys by the subtree of the parameter tree they live in.
type Section int

const (
	SectionOutput Section = iota + 1
	SectionOutputIIR
	SectionOutputPreIIR
	SectionLimiter
	SectionCrossover
	SectionInput
	SectionInputIIR
	SectionMatrixInput
	SectionMatrixRouting
	SectionGenerals
)

// Field names one scalar within a section.
type Field string

const (
	FieldName        Field = "name"
	FieldEnable      Field = "enable"
	FieldGain        Field = "gain"
	FieldMute        Field = "mute"
	FieldPolarity    Field = "polarity"
	FieldDelayEnable Field = "delay_enable"
	FieldDelay       Field = "delay"
	FieldShadingGain Field = "shading_gain"
	FieldType        Field = "type"
	FieldFc          Field = "fc"
	FieldQ           Field = "q"
	FieldSlope       Field = "slope"
	FieldThreshold   Field = "threshold"
	FieldStandby     Field = "standby"
)

// Kind is the Go-side value kind of a field.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindBool
)

// Key addresses one parameter. Unused indices stay zero.
type Key struct {
	Section Section
	Field   Field
	Channel int
	Band    int
	Input   int
	Limiter Limiter
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/ch%d/b%d/in%d/lim%d", k.Section, k.Field, k.Channel, k.Band, k.Input, k.Limiter)
}

// Limiter identifies one limiter of an output channel's limiter bank.
type Limiter int

const (
	LimiterClip Limiter = iota
	LimiterPeak
	LimiterVRMS
	LimiterIRMS
	LimiterClamp
	LimiterThermal
	LimiterTruePower
)

// LimiterInfo describes a limiter kind.
type LimiterInfo struct {
	Limiter Limiter
	Key     string // snapshot key
	Node    string // tree node name
	Unit    string
}

var limiters = []LimiterInfo{
	{LimiterClip, "clip", "ClipLimiter", "dB"},
	{LimiterPeak, "peak", "PeakLimiter", "dB"},
	{LimiterVRMS, "vrms", "VRMSLimiter", "V"},
	{LimiterIRMS, "irms", "IRMSLimiter", "A"},
	{LimiterClamp, "clamp", "ClampLimiter", "A"},
	{LimiterThermal, "thermal", "ThermalLimiter", "%"},
	{LimiterTruePower, "truepower", "TruePowerLimiter", "W"},
}

// Key returns the snapshot key of l ("clip", "peak", ...).
func (l Limiter) Key() string {
	if l < 0 || int(l) >= len(limiters) {
		return ""
	}
	return limiters[l].Key
}

// Limiters returns the limiter kinds in tree order.
func Limiters() []LimiterInfo {
	out := make([]LimiterInfo, len(limiters))
	copy(out, limiters)
	return out
}

// Tree roots.
const (
	liveRoot   = "/Device/Audio/Presets/Live"
	outputRoot = liveRoot + "/OutputProcess/Channels/Channel-%d"
	inputRoot  = liveRoot + "/InputProcess/Channels/Channel-%d"
	matrixRoot = liveRoot + "/InputProcess/Matrix"

	StandbyPath      = liveRoot + "/Generals/Standby/Value"
	ModelNamePath    = "/Device/Config/Hardware/Model/Name"
	ModelSerialPath  = "/Device/Config/Hardware/Model/Serial"
	ManufacturerPath = "/Device/Config/Hardware/Manufacturer"
)

// DeviceInfoPaths are read when identifying a device.
var DeviceInfoPaths = []string{ModelNamePath, ModelSerialPath, ManufacturerPath}

type leaf struct {
	field  Field
	suffix string
	kind   Kind
}

var (
	outputLeaves = []leaf{
		{FieldName, "/Name", KindString},
		{FieldEnable, "/Enable", KindBool},
		{FieldGain, "/Gain/Value", KindFloat},
		{FieldMute, "/Mute/Value", KindBool},
		{FieldPolarity, "/OutPolarity/Value", KindBool},
		{FieldDelayEnable, "/OutDelay/Enable", KindBool},
		{FieldDelay, "/OutDelay/Value", KindFloat},
	}
	inputLeaves = []leaf{
		{FieldEnable, "/Enable/Value", KindBool},
		{FieldGain, "/Gain/Value", KindFloat},
		{FieldMute, "/Mute/Value", KindBool},
		{FieldPolarity, "/InPolarity/Value", KindBool},
		{FieldShadingGain, "/ShadingGain/Value", KindFloat},
		{FieldDelayEnable, "/InDelay/Enable/Value", KindBool},
		{FieldDelay, "/InDelay/Value", KindFloat},
	}
	bandLeaves = []leaf{
		{FieldEnable, "/Enable", KindBool},
		{FieldType, "/Type/Value", KindInt},
		{FieldFc, "/Fc/Value", KindFloat},
		{FieldGain, "/Gain/Value", KindFloat},
		{FieldQ, "/Q/Value", KindFloat},
		{FieldSlope, "/Slope/Value", KindInt},
	}
	crossoverLeaves = []leaf{
		{FieldEnable, "/Enable", KindBool},
		{FieldFc, "/Fc/Value", KindFloat},
		{FieldSlope, "/Slope/Value", KindInt},
	}
	limiterLeaves = []leaf{
		{FieldEnable, "/Enable", KindBool},
		{FieldThreshold, "/Threshold/Value", KindFloat},
	}
	gainMuteLeaves = []leaf{
		{FieldGain, "/Gain/Value", KindFloat},
		{FieldMute, "/Mute/Value", KindBool},
	}
)

// Entry is one row of the table.
type Entry struct {
	Key  Key
	Path string
	Kind Kind
}

// Table maps keys to paths for one schema.
type Table struct {
	schema  Schema
	entries []Entry
	byKey   map[Key]int
	byPath  map[string]int
}

// NewTable computes the table for a schema.
func NewTable(s Schema) *Table {
	t := &Table{
		schema: s,
		byKey:  make(map[Key]int),
		byPath: make(map[string]int),
	}

	for ch := 0; ch < OutputChannels; ch++ {
		base := fmt.Sprintf(outputRoot, ch)
		for _, l := range outputLeaves {
			t.add(Key{Section: SectionOutput, Field: l.field, Channel: ch}, base+l.suffix, l.kind)
		}
		t.addBands(SectionOutputIIR, ch, base+"/IIR/Bands/Band-%d", s.OutputIIRBands)
		t.addBands(SectionOutputPreIIR, ch, base+"/PreIIR/Bands/Band-%d", s.PreIIRBands)
		for _, lim := range limiters {
			node := base + "/Limiters/" + lim.Node
			for _, l := range limiterLeaves {
				t.add(Key{Section: SectionLimiter, Field: l.field, Channel: ch, Limiter: lim.Limiter}, node+l.suffix, l.kind)
			}
		}
		for b := 0; b < s.CrossoverBands; b++ {
			node := fmt.Sprintf(base+"/Xover/Bands/Band-%d", b)
			for _, l := range crossoverLeaves {
				t.add(Key{Section: SectionCrossover, Field: l.field, Channel: ch, Band: b}, node+l.suffix, l.kind)
			}
		}
	}

	for ch := 0; ch < InputChannels; ch++ {
		base := fmt.Sprintf(inputRoot, ch)
		for _, l := range inputLeaves {
			t.add(Key{Section: SectionInput, Field: l.field, Channel: ch}, base+l.suffix, l.kind)
		}
		t.addBands(SectionInputIIR, ch, base+"/ZoneBlock/IIR/Bands/Band-%d", s.InputIIRBands)
	}

	for in := 0; in < MatrixInputs; in++ {
		node := fmt.Sprintf(matrixRoot+"/Inputs/Input-%d", in)
		for _, l := range gainMuteLeaves {
			t.add(Key{Section: SectionMatrixInput, Field: l.field, Input: in}, node+l.suffix, l.kind)
		}
	}
	for ch := 0; ch < OutputChannels; ch++ {
		for in := 0; in < MatrixInputs; in++ {
			node := fmt.Sprintf(matrixRoot+"/Channels/Channel-%d/Routing/Input-%d", ch, in)
			for _, l := range gainMuteLeaves {
				t.add(Key{Section: SectionMatrixRouting, Field: l.field, Channel: ch, Input: in}, node+l.suffix, l.kind)
			}
		}
	}

	t.add(Key{Section: SectionGenerals, Field: FieldStandby}, StandbyPath, KindBool)
	return t
}

func (t *Table) addBands(sec Section, ch int, tmpl string, n int) {
	for b := 0; b < n; b++ {
		node := fmt.Sprintf(tmpl, b)
		for _, l := range bandLeaves {
			t.add(Key{Section: sec, Field: l.field, Channel: ch, Band: b}, node+l.suffix, l.kind)
		}
	}
}

func (t *Table) add(k Key, path string, kind Kind) {
	if _, dup := t.byKey[k]; dup {
		panic("params: duplicate key " + k.String())
	}
	if _, dup := t.byPath[path]; dup {
		panic("params: duplicate path " + path)
	}
	t.byKey[k] = len(t.entries)
	t.byPath[path] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: k, Path: path, Kind: kind})
}

// Schema returns the schema the table was built for.
func (t *Table) Schema() Schema { return t.schema }

// Len returns the number of addressable parameters.
func (t *Table) Len() int { return len(t.entries) }

// Path returns the path for k.
func (t *Table) Path(k Key) (string, bool) {
	i, ok := t.byKey[k]
	if !ok {
		return "", false
	}
	return t.entries[i].Path, true
}

// Lookup returns the table entry for a path.
func (t *Table) Lookup(path string) (Entry, bool) {
	i, ok := t.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns every entry in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Paths returns every path in table order.
func (t *Table) Paths() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Path
	}
	return out
}
