package wirefunc

// AbsentValue is the type of Absent.
type AbsentValue struct{}

// Absent is the normalized "no value" representation. It marks an optional
// field that was missing and a nullable value that was null on the wire, so
// verified data never carries a surviving nil for those.
var Absent = AbsentValue{}

// IsAbsent reports whether v is Absent.
func IsAbsent(v any) bool {
	_, ok := v.(AbsentValue)
	return ok
}

func (AbsentValue) String() string { return "absent" }

// MarshalJSON renders Absent as null so typed binding yields zero values and
// nil pointers.
func (AbsentValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }
