package wirefunc

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind classifies values, both decoded and verified.
type Kind int

const (
	KindInvalid Kind = iota
	KindAbsent
	KindNull
	KindBool
	KindNumber
	KindInteger // numbers with no fractional part; only used as an expectation
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindAbsent:  "absent",
	KindNull:    "null",
	KindBool:    "bool",
	KindNumber:  "number",
	KindInteger: "integer",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind maps a primitive name ("string", "number", "int", "integer",
// "bool", "boolean") to its Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "string":
		return KindString, true
	case "number", "float":
		return KindNumber, true
	case "int", "integer":
		return KindInteger, true
	case "bool", "boolean":
		return KindBool, true
	}
	return KindInvalid, false
}

// KindOf reports the runtime kind of v. All numeric representations report
// KindNumber.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case AbsentValue:
		return KindAbsent
	case bool:
		return KindBool
	case string:
		return KindString
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case []any:
		return KindArray
	case map[string]any, Record, Tagged:
		return KindObject
	}
	return KindInvalid
}

// asFloat converts any numeric representation to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// asInteger converts an integral numeric representation to int64. Floats
// and literals such as 2.0 are accepted when they carry no fraction.
func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
