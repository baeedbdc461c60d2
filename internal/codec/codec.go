// Package codec converts Go values to and from the amplifier's tagged wire
// representation.
package codec

import (
	"errors"
	"fmt"
	"log/slog"
)

// Type is the wire-level type tag carried in every data object.
type Type int

// Wire type tags. The numbering is fixed by the device firmware.
const (
	TypeString Type = 10
	TypeFloat  Type = 20
	TypeInt    Type = 30
	TypeBool   Type = 40
)

// ResultSuccess is the per-entry result code the device returns for a
// successful read or write.
const ResultSuccess = 10

// ErrUnsupportedType is returned by Encode for values with no wire mapping.
var ErrUnsupportedType = errors.New("codec: unsupported value type")

func (t Type) String() string {
	switch t {
	case TypeString:
		return "STRING"
	case TypeFloat:
		return "FLOAT"
	case TypeInt:
		return "INT"
	case TypeBool:
		return "BOOL"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Int marks a value that must travel with the INT tag (filter types, slopes).
// Plain Go integers are encoded as FLOAT.
type Int int64

// Data is the wire data object: a type tag plus exactly one value field.
type Data struct {
	Type        Type     `json:"type"`
	StringValue *string  `json:"stringValue,omitempty"`
	FloatValue  *float64 `json:"floatValue,omitempty"`
	IntValue    *int64   `json:"intValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
}

// Encode maps a Go value to its wire data object.
func Encode(v any) (Data, error) {
	switch x := v.(type) {
	case bool:
		return Data{Type: TypeBool, BoolValue: &x}, nil
	case string:
		return Data{Type: TypeString, StringValue: &x}, nil
	case Int:
		n := int64(x)
		return Data{Type: TypeInt, IntValue: &n}, nil
	case float64:
		return floatData(x), nil
	case float32:
		return floatData(float64(x)), nil
	case int:
		return floatData(float64(x)), nil
	case int8:
		return floatData(float64(x)), nil
	case int16:
		return floatData(float64(x)), nil
	case int32:
		return floatData(float64(x)), nil
	case int64:
		return floatData(float64(x)), nil
	case uint:
		return floatData(float64(x)), nil
	case uint8:
		return floatData(float64(x)), nil
	case uint16:
		return floatData(float64(x)), nil
	case uint32:
		return floatData(float64(x)), nil
	case uint64:
		return floatData(float64(x)), nil
	default:
		return Data{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func floatData(f float64) Data {
	return Data{Type: TypeFloat, FloatValue: &f}
}

// Decode returns the Go value carried by d: string, float64, int64 or bool.
// Unknown tags and missing value fields report ok=false and are logged; they
// never fail the surrounding batch.
func Decode(d Data) (v any, ok bool) {
	switch d.Type {
	case TypeString:
		if d.StringValue != nil {
			return *d.StringValue, true
		}
	case TypeFloat:
		if d.FloatValue != nil {
			return *d.FloatValue, true
		}
	case TypeInt:
		if d.IntValue != nil {
			return *d.IntValue, true
		}
	case TypeBool:
		if d.BoolValue != nil {
			return *d.BoolValue, true
		}
	default:
		slog.Warn("codec: unknown data type", "type", int(d.Type))
		return nil, false
	}
	slog.Warn("codec: data object without value", "type", d.Type.String())
	return nil, false
}
