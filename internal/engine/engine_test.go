package engine_test

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// setup returns a mock seeded with defaults and an engine talking to it.
func setup(t *testing.T, schema params.Schema) (*device.MockDevice, *engine.Engine) {
	t.Helper()
	mock := device.NewMockDevice()
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	c := device.New(device.Config{URL: srv.URL + device.EndpointPath, Timeout: time.Second})
	t.Cleanup(c.Disconnect)
	e := engine.New(c, schema)
	mock.Seed(engine.Defaults(e.Table()))
	mock.ResetRequests()
	return mock, e
}

func path(t *testing.T, e *engine.Engine, k params.Key) string {
	t.Helper()
	p, ok := e.Table().Path(k)
	if !ok {
		t.Fatalf("no path for %s", k)
	}
	return p
}

func gainKey(ch int) params.Key {
	return params.Key{Section: params.SectionOutput, Field: params.FieldGain, Channel: ch}
}

// minimal returns a snapshot carrying only gain and mute on the four outputs.
func minimal(gain float64) *models.Snapshot {
	s := &models.Snapshot{OutputChannels: map[string]*models.OutputChannel{}}
	for ch := 0; ch < 4; ch++ {
		s.OutputChannels[models.Index(ch)] = &models.OutputChannel{
			Gain: models.Ptr(gain),
			Mute: models.Ptr(false),
		}
	}
	return s
}

func TestCaptureSingleBatch(t *testing.T) {
	mock, e := setup(t, params.Extended)

	snap, err := e.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	reqs := mock.Requests()
	if len(reqs) != 1 || reqs[0].Action != "READ" {
		t.Fatalf("expected one READ batch, got %d requests", len(reqs))
	}
	if len(reqs[0].Paths) != e.Table().Len() {
		t.Errorf("read %d paths, want %d", len(reqs[0].Paths), e.Table().Len())
	}

	if len(snap.OutputChannels) != 4 || len(snap.InputChannels) != 4 {
		t.Fatalf("channels: %d out, %d in", len(snap.OutputChannels), len(snap.InputChannels))
	}
	if got := len(snap.Output(0).IIR); got != params.Extended.OutputIIRBands {
		t.Errorf("output IIR bands = %d", got)
	}
	if got := len(snap.Crossovers["3"]); got != params.Extended.CrossoverBands {
		t.Errorf("crossover bands = %d", got)
	}
	if snap.Limiters["2"].TruePower == nil {
		t.Error("truepower limiter not captured")
	}
	if got := len(snap.Matrix.Channels["1"].Routing); got != 4 {
		t.Errorf("routing inputs = %d", got)
	}
	if snap.Standby == nil || *snap.Standby {
		t.Errorf("standby = %v", snap.Standby)
	}
}

func TestCaptureDefaultsMissingPaths(t *testing.T) {
	mock, e := setup(t, params.Extended)
	gain := path(t, e, gainKey(1))
	fc := path(t, e, params.Key{Section: params.SectionOutputIIR, Field: params.FieldFc, Channel: 2, Band: 3})
	name := path(t, e, params.Key{Section: params.SectionOutput, Field: params.FieldName, Channel: 3})
	mock.Set(gain, 0.5)
	mock.Set(fc, 250.0)
	mock.SetOmit(gain, true)
	mock.SetFailRead(fc, true)
	mock.SetOmit(name, true)

	snap, err := e.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got := *snap.Output(1).Gain; got != 1.0 {
		t.Errorf("omitted gain = %v, want 1.0", got)
	}
	if got := *snap.Output(2).IIR["3"].Fc; got != 1000.0 {
		t.Errorf("failed fc = %v, want 1000", got)
	}
	if got := *snap.Output(3).Name; got != "Output 4" {
		t.Errorf("name = %q", got)
	}
}

func TestCaptureDefaults(t *testing.T) {
	_, e := setup(t, params.Extended)
	snap, _ := e.Decode(map[string]any{})

	oc := snap.Output(0)
	if *oc.Name != "Output 1" || !*oc.Enable || *oc.Gain != 1.0 || *oc.Mute || *oc.Polarity || *oc.DelayEnable || *oc.Delay != 0 {
		t.Errorf("output defaults wrong: %+v", oc)
	}
	b := oc.IIR["0"]
	if *b.Enable || *b.Type != 0 || *b.Fc != 1000 || *b.Gain != 1 || *b.Q != 1 || *b.Slope != 12 {
		t.Errorf("band defaults wrong: %+v", b)
	}
	ic := snap.Input(0)
	if !*ic.Enable || *ic.ShadingGain != 1 || *ic.Mute {
		t.Errorf("input defaults wrong: %+v", ic)
	}
	lim := snap.Limiters["0"].Clip
	if *lim.Enable || *lim.Threshold != 1 {
		t.Errorf("limiter defaults wrong: %+v", lim)
	}
	xo := snap.Crossovers["0"]["1"]
	if *xo.Enable || *xo.Fc != 1000 || *xo.Slope != 12 {
		t.Errorf("crossover defaults wrong: %+v", xo)
	}
	if gm := snap.Matrix.Inputs["0"]; *gm.Gain != 1 || *gm.Mute {
		t.Errorf("matrix input defaults wrong: %+v", gm)
	}
}

func TestCaptureDefaultsIntegerFields(t *testing.T) {
	mock, e := setup(t, params.Extended)
	slope := path(t, e, params.Key{Section: params.SectionOutputIIR, Field: params.FieldSlope, Channel: 1, Band: 4})
	xoSlope := path(t, e, params.Key{Section: params.SectionCrossover, Field: params.FieldSlope, Channel: 2, Band: 1})
	typ := path(t, e, params.Key{Section: params.SectionInputIIR, Field: params.FieldType, Channel: 3, Band: 0})
	mock.Set(slope, codec.Int(24))
	mock.Set(typ, codec.Int(5))
	mock.SetOmit(slope, true)
	mock.SetOmit(xoSlope, true)
	mock.SetFailRead(typ, true)

	snap, err := e.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if b := snap.Output(1).IIR["4"]; b.Slope == nil || *b.Slope != 12 {
		t.Errorf("omitted IIR slope = %v, want 12", b.Slope)
	}
	if xo := snap.Crossovers["2"]["1"]; xo.Slope == nil || *xo.Slope != 12 {
		t.Errorf("omitted crossover slope = %v, want 12", xo.Slope)
	}
	if b := snap.Input(3).IIR["0"]; b.Type == nil || *b.Type != 0 {
		t.Errorf("failed filter type = %v, want 0", b.Type)
	}
}

func TestDecodeEmptyFillsEveryField(t *testing.T) {
	_, e := setup(t, params.Extended)
	snap, missing := e.Decode(map[string]any{})
	if missing != e.Table().Len() {
		t.Errorf("missing = %d, want %d", missing, e.Table().Len())
	}
	w, err := e.Writes(snap)
	if err != nil {
		t.Fatalf("Writes: %v", err)
	}
	if len(w) != e.Table().Len() {
		t.Errorf("defaulted snapshot yields %d writes, want %d", len(w), e.Table().Len())
	}
}

func TestCaptureCoercesKinds(t *testing.T) {
	_, e := setup(t, params.Extended)
	typ := path(t, e, params.Key{Section: params.SectionOutputIIR, Field: params.FieldType, Channel: 0, Band: 0})
	gain := path(t, e, gainKey(0))
	mute := path(t, e, params.Key{Section: params.SectionOutput, Field: params.FieldMute, Channel: 0})

	snap, missing := e.Decode(map[string]any{
		typ:  float64(3),
		gain: int64(2),
		mute: "maybe",
	})
	if *snap.Output(0).IIR["0"].Type != 3 {
		t.Errorf("type = %d", *snap.Output(0).IIR["0"].Type)
	}
	if *snap.Output(0).Gain != 2 {
		t.Errorf("gain = %v", *snap.Output(0).Gain)
	}
	if *snap.Output(0).Mute {
		t.Error("uncoercible mute should default to false")
	}
	if missing != e.Table().Len()-2 {
		t.Errorf("missing = %d", missing)
	}
}

func TestCaptureFailsOnBatchError(t *testing.T) {
	mock, e := setup(t, params.Extended)
	mock.SetStatus(500)

	snap, err := e.Capture(context.Background())
	if !errors.Is(err, device.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if snap != nil {
		t.Error("capture returned a partial snapshot")
	}
}

func TestApplySparse(t *testing.T) {
	mock, e := setup(t, params.Extended)

	if err := e.Apply(context.Background(), minimal(1.0)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, ok := mock.LastWrite()
	if !ok {
		t.Fatal("no write issued")
	}
	var want []string
	for ch := 0; ch < 4; ch++ {
		want = append(want,
			path(t, e, gainKey(ch)),
			path(t, e, params.Key{Section: params.SectionOutput, Field: params.FieldMute, Channel: ch}))
	}
	got := append([]string(nil), w.Paths...)
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wrote %v\nwant %v", got, want)
	}
	if len(mock.Requests()) != 1 {
		t.Errorf("expected one request, got %d", len(mock.Requests()))
	}
}

func TestApplyPartialFailure(t *testing.T) {
	mock, e := setup(t, params.Extended)
	bad := path(t, e, gainKey(2))
	mock.SetFailWrite(bad, true)

	err := e.Apply(context.Background(), minimal(1.0))
	if !errors.Is(err, engine.ErrPartialApply) {
		t.Fatalf("expected ErrPartialApply, got %v", err)
	}
	var pe *engine.PartialApplyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PartialApplyError, got %T", err)
	}
	if !reflect.DeepEqual(pe.Paths, []string{bad}) {
		t.Errorf("failed paths = %v", pe.Paths)
	}
	if pe.Results[bad] != device.MockFailResult {
		t.Errorf("result = %d", pe.Results[bad])
	}
}

func TestApplyStandbyFailureIsSoft(t *testing.T) {
	mock, e := setup(t, params.Extended)
	mock.SetFailWrite(params.StandbyPath, true)

	snap := minimal(1.0)
	snap.Standby = models.Ptr(true)
	if err := e.Apply(context.Background(), snap); err != nil {
		t.Fatalf("standby failure should be soft, got %v", err)
	}
	w, _ := mock.LastWrite()
	if _, ok := w.Data[params.StandbyPath]; !ok {
		t.Error("standby was not written")
	}
}

func TestApplyValidatesBeforeIO(t *testing.T) {
	tests := []struct {
		name string
		snap func() *models.Snapshot
		want error
	}{
		{"nil", func() *models.Snapshot { return nil }, models.ErrInvalidScene},
		{"three channels", func() *models.Snapshot {
			s := minimal(1)
			delete(s.OutputChannels, "3")
			return s
		}, models.ErrInvalidScene},
		{"extra channel", func() *models.Snapshot {
			s := minimal(1)
			s.OutputChannels["4"] = &models.OutputChannel{}
			return s
		}, models.ErrInvalidScene},
		{"gain too high", func() *models.Snapshot { return minimal(10.5) }, models.ErrValidation},
		{"negative gain", func() *models.Snapshot { return minimal(-0.1) }, models.ErrValidation},
		{"nan gain", func() *models.Snapshot { return minimal(math.NaN()) }, models.ErrValidation},
		{"infinite delay", func() *models.Snapshot {
			s := minimal(1)
			s.OutputChannels["1"].Delay = models.Ptr(math.Inf(1))
			return s
		}, models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, e := setup(t, params.Extended)
			err := e.Apply(context.Background(), tt.snap())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if n := len(mock.Requests()); n != 0 {
				t.Errorf("%d requests sent before validation failed", n)
			}
		})
	}
}

func TestApplyLegacyGainRange(t *testing.T) {
	_, e := setup(t, params.Legacy)
	if err := e.Apply(context.Background(), minimal(2.5)); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation for 2.5 on legacy, got %v", err)
	}
	if err := e.Apply(context.Background(), minimal(2.0)); err != nil {
		t.Fatalf("Apply 2.0: %v", err)
	}
}

func TestApplyWriteTags(t *testing.T) {
	mock, e := setup(t, params.Extended)
	snap := minimal(1.0)
	snap.Output(0).IIR = map[string]*models.EQBand{"0": {Type: models.Ptr(4), Fc: models.Ptr(80.0), Slope: models.Ptr(24)}}
	snap.Crossovers = map[string]models.Crossover{"1": {"0": {Slope: models.Ptr(48)}}}
	snap.Output(1).Name = models.Ptr("Sub")

	if err := e.Apply(context.Background(), snap); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, _ := mock.LastWrite()

	tests := []struct {
		key  params.Key
		want codec.Type
	}{
		{params.Key{Section: params.SectionOutputIIR, Field: params.FieldType, Channel: 0, Band: 0}, codec.TypeInt},
		{params.Key{Section: params.SectionOutputIIR, Field: params.FieldSlope, Channel: 0, Band: 0}, codec.TypeInt},
		{params.Key{Section: params.SectionOutputIIR, Field: params.FieldFc, Channel: 0, Band: 0}, codec.TypeFloat},
		{params.Key{Section: params.SectionCrossover, Field: params.FieldSlope, Channel: 1, Band: 0}, codec.TypeInt},
		{params.Key{Section: params.SectionOutput, Field: params.FieldName, Channel: 1}, codec.TypeString},
		{params.Key{Section: params.SectionOutput, Field: params.FieldMute, Channel: 1}, codec.TypeBool},
		{gainKey(3), codec.TypeFloat},
	}
	for _, tt := range tests {
		p := path(t, e, tt.key)
		d, ok := w.Data[p]
		if !ok {
			t.Errorf("%s not written", p)
			continue
		}
		if d.Type != tt.want {
			t.Errorf("%s: tag %v, want %v", p, d.Type, tt.want)
		}
	}
	if len(w.Paths) != 8+3+1+1 {
		t.Errorf("wrote %d paths", len(w.Paths))
	}
}

func TestCaptureApplySymmetry(t *testing.T) {
	for _, schema := range []params.Schema{params.Legacy, params.Extended, params.Late} {
		t.Run(schema.Name, func(t *testing.T) {
			_, e := setup(t, schema)
			snap, err := e.Capture(context.Background())
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			entries, err := e.Writes(snap)
			if err != nil {
				t.Fatalf("Writes: %v", err)
			}
			if len(entries) != e.Table().Len() {
				t.Fatalf("captured snapshot yields %d writes, table has %d paths", len(entries), e.Table().Len())
			}

			if err := e.Apply(context.Background(), snap); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			again, err := e.Capture(context.Background())
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			if !reflect.DeepEqual(snap, again) {
				t.Error("capture after apply differs")
			}
		})
	}
}

func TestGainEndToEnd(t *testing.T) {
	mock, e := setup(t, params.Extended)
	mock.Set(path(t, e, gainKey(0)), 2.0)

	snap, err := e.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if db := models.RoundDB(models.LinearToDB(*snap.Output(0).Gain)); db != 6.0 {
		t.Errorf("displayed %v dB, want 6.0", db)
	}

	snap.Output(0).Gain = models.Ptr(models.DBToLinear(0.0))
	if err := e.Apply(context.Background(), snap); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	d, _ := mock.Data(path(t, e, gainKey(0)))
	if d.FloatValue == nil || *d.FloatValue != 1.0 {
		t.Errorf("wire gain = %v, want 1.0", d.FloatValue)
	}
}

func TestSet(t *testing.T) {
	mock, e := setup(t, params.Extended)
	ctx := context.Background()

	if err := e.Set(ctx, gainKey(1), 0.25); err != nil {
		t.Fatalf("Set gain: %v", err)
	}
	if v, _ := mock.Get(path(t, e, gainKey(1))); v != 0.25 {
		t.Errorf("gain = %v", v)
	}

	lim := params.Key{Section: params.SectionLimiter, Field: params.FieldThreshold, Channel: 0, Limiter: params.LimiterThermal}
	if err := e.Set(ctx, lim, 80.0); err != nil {
		t.Fatalf("Set limiter: %v", err)
	}

	if err := e.Set(ctx, gainKey(1), 11.0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if err := e.Set(ctx, gainKey(9), 1.0); !errors.Is(err, engine.ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}

	mock.SetFailWrite(path(t, e, gainKey(1)), true)
	if err := e.Set(ctx, gainKey(1), 0.5); !errors.Is(err, engine.ErrPartialApply) {
		t.Errorf("expected ErrPartialApply, got %v", err)
	}
	if err := e.Set(ctx, params.Key{Section: params.SectionGenerals, Field: params.FieldStandby}, true); err != nil {
		t.Errorf("standby: %v", err)
	}
}

func TestSetIntegerValues(t *testing.T) {
	mock, e := setup(t, params.Extended)
	ctx := context.Background()
	typ := params.Key{Section: params.SectionOutputIIR, Field: params.FieldType, Channel: 0, Band: 0}

	if err := e.Set(ctx, typ, 3); err != nil {
		t.Fatalf("Set type: %v", err)
	}
	d, _ := mock.Data(path(t, e, typ))
	if d.Type != codec.TypeInt || d.IntValue == nil || *d.IntValue != 3 {
		t.Errorf("wire type = %+v, want INT 3", d)
	}

	if err := e.Set(ctx, gainKey(2), 1); err != nil {
		t.Fatalf("Set gain with int: %v", err)
	}
	d, _ = mock.Data(path(t, e, gainKey(2)))
	if d.Type != codec.TypeFloat || d.FloatValue == nil || *d.FloatValue != 1 {
		t.Errorf("wire gain = %+v, want FLOAT 1", d)
	}
}

func TestProbe(t *testing.T) {
	mock, _ := setup(t, params.Extended)
	ctx := context.Background()

	got, err := engine.Probe(ctx, clientFor(t, mock))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got.Name != params.Extended.Name {
		t.Errorf("probe = %s, want extended", got.Name)
	}

	late := params.NewTable(params.Late)
	p, _ := late.Path(params.Key{Section: params.SectionCrossover, Field: params.FieldEnable, Channel: 0, Band: 2})
	mock.Set(p, false)
	got, err = engine.Resolve(ctx, clientFor(t, mock), "auto")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name != params.Late.Name {
		t.Errorf("probe = %s, want late", got.Name)
	}

	got, err = engine.Resolve(ctx, clientFor(t, mock), "legacy")
	if err != nil || got.Name != "legacy" {
		t.Errorf("Resolve legacy = %v, %v", got.Name, err)
	}
}

func clientFor(t *testing.T, mock *device.MockDevice) *device.Client {
	t.Helper()
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return device.New(device.Config{URL: srv.URL + device.EndpointPath, Timeout: time.Second})
}

func TestSetAllSingleBatch(t *testing.T) {
	mock, e := setup(t, params.Extended)
	mute := params.Key{Section: params.SectionOutput, Field: params.FieldMute, Channel: 0}

	err := e.SetAll(context.Background(),
		engine.Assignment{Key: gainKey(0), Value: 0.5},
		engine.Assignment{Key: mute, Value: true},
	)
	if err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	reqs := mock.Requests()
	if len(reqs) != 1 || len(reqs[0].Paths) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", reqs)
	}

	mock.ResetRequests()
	err = e.SetAll(context.Background(),
		engine.Assignment{Key: gainKey(0), Value: 0.5},
		engine.Assignment{Key: mute, Value: "loud"},
	)
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Error("request sent despite invalid value")
	}
}
