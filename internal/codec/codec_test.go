package codec_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/openbias/biasd/internal/codec"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"bool", true, `{"type":40,"boolValue":true}`},
		{"string", "Output 1", `{"type":10,"stringValue":"Output 1"}`},
		{"float", 1.5, `{"type":20,"floatValue":1.5}`},
		{"int is float", 3, `{"type":20,"floatValue":3}`},
		{"uint8 is float", uint8(7), `{"type":20,"floatValue":7}`},
		{"explicit int", codec.Int(24), `{"type":30,"intValue":24}`},
		{"false bool", false, `{"type":40,"boolValue":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := codec.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, _ := json.Marshal(d)
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	for _, v := range []any{nil, []int{1}, map[string]int{}, struct{}{}} {
		if _, err := codec.Encode(v); !errors.Is(err, codec.ErrUnsupportedType) {
			t.Errorf("Encode(%#v) err = %v, want ErrUnsupportedType", v, err)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		raw    string
		want   any
		wantOK bool
	}{
		{`{"type":10,"stringValue":"Bias Q2"}`, "Bias Q2", true},
		{`{"type":20,"floatValue":2.0}`, 2.0, true},
		{`{"type":30,"intValue":12}`, int64(12), true},
		{`{"type":40,"boolValue":true}`, true, true},
		{`{"type":99,"floatValue":1}`, nil, false},
		{`{"type":20}`, nil, false},
	}
	for _, tt := range tests {
		var d codec.Data
		if err := json.Unmarshal([]byte(tt.raw), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		got, ok := codec.Decode(d)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Decode(%s) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoercion(t *testing.T) {
	if f, ok := codec.AsFloat(int64(3)); !ok || f != 3 {
		t.Errorf("AsFloat(int64 3) = %v, %v", f, ok)
	}
	if n, ok := codec.AsInt(24.0); !ok || n != 24 {
		t.Errorf("AsInt(24.0) = %v, %v", n, ok)
	}
	if b, ok := codec.AsBool(int64(0)); !ok || b {
		t.Errorf("AsBool(0) = %v, %v", b, ok)
	}
	if b, ok := codec.AsBool("on"); !ok || !b {
		t.Errorf("AsBool(on) = %v, %v", b, ok)
	}
	if _, ok := codec.AsBool("maybe"); ok {
		t.Error("AsBool(maybe) should fail")
	}
	if s, ok := codec.AsString(1.25); !ok || s != "1.25" {
		t.Errorf("AsString(1.25) = %q, %v", s, ok)
	}
}

func TestCoercionNumericKinds(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		wantF float64
		wantI int
	}{
		{"int", 12, 12, 12},
		{"int32", int32(-3), -3, -3},
		{"uint8", uint8(7), 7, 7},
		{"float32", float32(2.5), 2.5, 2},
		{"codec.Int", codec.Int(4), 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f, ok := codec.AsFloat(tt.in); !ok || f != tt.wantF {
				t.Errorf("AsFloat = %v, %v; want %v", f, ok, tt.wantF)
			}
			if n, ok := codec.AsInt(tt.in); !ok || n != tt.wantI {
				t.Errorf("AsInt = %v, %v; want %v", n, ok, tt.wantI)
			}
			if b, ok := codec.AsBool(tt.in); !ok || b != (tt.wantF != 0) {
				t.Errorf("AsBool = %v, %v", b, ok)
			}
		})
	}
}

func TestCoercionRejectsNonFinite(t *testing.T) {
	for _, in := range []any{"inf", "-Inf", "NaN", math.Inf(1), math.NaN()} {
		if f, ok := codec.AsFloat(in); ok {
			t.Errorf("AsFloat(%v) = %v, want rejection", in, f)
		}
		if n, ok := codec.AsInt(in); ok {
			t.Errorf("AsInt(%v) = %v, want rejection", in, n)
		}
	}
}
