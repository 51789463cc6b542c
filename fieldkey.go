package wirefunc

import (
	"errors"
	"math"
)

// FieldKey converts a field id into its minified wire key: 0 -> "a",
// 25 -> "z", 26 -> "aa", 27 -> "ab" and so on (bijective base 26 over
// lowercase letters).
//
// Lowercase letters only: no escaping in query strings, and no key that a
// JavaScript engine would treat as an array index.
func FieldKey(id uint64) string {
	var buf [14]byte // 26^14 > 2^64
	i := len(buf)
	n := id
	for {
		i--
		buf[i] = byte('a' + n%26)
		if n < 26 {
			break
		}
		n = n/26 - 1
	}
	return string(buf[i:])
}

var (
	errEmptyFieldKey   = errors.New("wirefunc: empty field key")
	errFieldKeyChar    = errors.New("wirefunc: field key must contain only a-z")
	errFieldKeyTooLong = errors.New("wirefunc: field key overflows uint64")
)

// ParseFieldKey is the inverse of FieldKey.
func ParseFieldKey(key string) (uint64, error) {
	if key == "" {
		return 0, errEmptyFieldKey
	}
	// id' = 26*id + 26 + digit keeps the accumulator equal to the id itself,
	// so the whole uint64 range round-trips
	var id uint64
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 'a' || c > 'z' {
			return 0, errFieldKeyChar
		}
		digit := uint64(c - 'a')
		if i == 0 {
			id = digit
			continue
		}
		add := 26 + digit
		if id > (math.MaxUint64-add)/26 {
			return 0, errFieldKeyTooLong
		}
		id = id*26 + add
	}
	return id, nil
}
